package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/rulemerge/pkg/core"
)

var checkCmd = &cobra.Command{
	Use:   "check [rule...]",
	Short: "Verify outputs match their sources without writing",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd)
		if err != nil {
			return err
		}

		report, err := e.Check(cmd.Context(), args...)
		if report == nil {
			return err
		}

		for _, res := range report.Results {
			switch res.Status {
			case core.StatusUpToDate:
				fmt.Fprintf(cmd.OutOrStdout(), "ok    %s (%s)\n", res.Rule, res.Output)
			case core.StatusStale:
				fmt.Fprintf(cmd.OutOrStdout(), "STALE %s (%s)\n", res.Rule, res.Output)
			}
		}
		printFailures(cmd.ErrOrStderr(), report)
		return failedErr(report)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
