package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aretw0/rulemerge/pkg/core"
)

var listJSON bool

type listedInclude struct {
	Path     string        `json:"path"`
	Category core.Category `json:"category,omitempty"`
}

type listedRule struct {
	Name         string          `json:"name"`
	Output       string          `json:"output"`
	Order        []core.Category `json:"order"`
	BaseFiles    []string        `json:"base_files"`
	IncludeFiles []listedInclude `json:"include_files"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the rules of the manifest",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd)
		if err != nil {
			return err
		}

		rules := e.Manifest().Rules
		out := cmd.OutOrStdout()

		if listJSON {
			listed := make([]listedRule, 0, len(rules))
			for _, r := range rules {
				lr := listedRule{
					Name:         r.Name,
					Output:       r.Output,
					Order:        r.Order,
					BaseFiles:    r.BaseFiles,
					IncludeFiles: make([]listedInclude, 0, len(r.IncludeFiles)),
				}
				for _, inc := range r.IncludeFiles {
					lr.IncludeFiles = append(lr.IncludeFiles, listedInclude(inc))
				}
				listed = append(listed, lr)
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(listed)
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tORDER\tSOURCES\tOUTPUT")
		for _, r := range rules {
			order := make([]string, 0, len(r.Order))
			for _, c := range r.Order {
				order = append(order, string(c))
			}
			sources := append([]string(nil), r.BaseFiles...)
			for _, inc := range r.IncludeFiles {
				sources = append(sources, inc.Path)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, strings.Join(order, ","), strings.Join(sources, " "), r.Output)
		}
		return tw.Flush()
	},
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}
