package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/rulemerge/pkg/core"
	"github.com/aretw0/rulemerge/pkg/git"
)

var buildCommit bool

var buildCmd = &cobra.Command{
	Use:   "build [rule...]",
	Short: "Build the outputs of all or the named rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd)
		if err != nil {
			return err
		}

		report, err := e.Build(cmd.Context(), args...)
		if report == nil {
			return err
		}

		printFailures(cmd.ErrOrStderr(), report)
		printSummary(cmd.OutOrStdout(), report)

		if buildCommit {
			if err := commitOutputs(cmd, e.Manifest().Root, report); err != nil {
				return err
			}
		}
		return failedErr(report)
	},
}

func commitOutputs(cmd *cobra.Command, root string, report *core.Report) error {
	if !git.IsInstalled() {
		return errors.New("--commit requires git on PATH")
	}

	client := git.NewClient(root, slog.Default())
	if !client.IsRepo(cmd.Context()) {
		return fmt.Errorf("--commit: %s is not a git work tree", root)
	}

	outputs := make(map[string]string)
	for _, res := range report.Results {
		if res.Status == core.StatusOK {
			outputs[res.Rule] = res.Output
		}
	}

	committed, err := client.CommitOutputs(cmd.Context(), outputs)
	if err != nil {
		return fmt.Errorf("commit outputs: %w", err)
	}
	if len(committed) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "committed %d outputs\n", len(committed))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "outputs unchanged, nothing to commit")
	}
	return nil
}

func init() {
	buildCmd.Flags().BoolVar(&buildCommit, "commit", false, "Commit regenerated outputs to git")
	rootCmd.AddCommand(buildCmd)
}
