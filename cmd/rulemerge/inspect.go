package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var inspectBuild bool

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print engine and repository state as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd)
		if err != nil {
			return err
		}

		if inspectBuild {
			// Failures show up in the state's last build.
			_, _ = e.Build(cmd.Context())
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(e.State())
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectBuild, "build", false, "Run a build before printing the state")
	rootCmd.AddCommand(inspectCmd)
}
