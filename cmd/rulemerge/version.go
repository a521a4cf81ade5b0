package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/rulemerge"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of rulemerge",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rulemerge version %s\n", rulemerge.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
