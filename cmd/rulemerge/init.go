package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/rulemerge/pkg/core"
	"github.com/aretw0/rulemerge/pkg/git"
	"github.com/aretw0/rulemerge/pkg/manifest"
)

var (
	initForce bool
	initGit   bool
)

// starterDocs are created next to a new manifest unless they exist.
var starterDocs = map[string]string{
	"rules/base.md":   "# Guidelines\n\nRules shared by every project.\n",
	"rules/python.md": "# Python\n\nLanguage specific rules.\n",
	"rules/django.md": "# Django\n\nFramework specific rules.\n",
}

func starterManifest() core.Manifest {
	return core.Manifest{
		Rules: []core.Rule{{
			Name:      "python_django",
			BaseFiles: []string{"rules/base.md"},
			IncludeFiles: []core.Include{
				{Path: "rules/python.md"},
				{Path: "rules/django.md"},
			},
			Output: "build/python_django.md",
			Order:  core.DefaultOrder,
		}},
		Settings: core.DefaultSettings(),
	}
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a starter manifest and rule documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := manifestPath
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		data, err := manifest.Encode(starterManifest())
		if err != nil {
			return err
		}

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return err
		}

		for name, content := range starterDocs {
			p := filepath.Join(dir, filepath.FromSlash(name))
			if _, err := os.Stat(p); err == nil {
				continue
			}
			if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
				return err
			}
			if err := os.WriteFile(p, []byte(content), 0644); err != nil {
				return err
			}
		}

		if initGit {
			if !git.IsInstalled() {
				return errors.New("--git requires git on PATH")
			}
			if err := git.NewClient(dir, slog.Default()).Init(cmd.Context()); err != nil {
				return err
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Initialized rulemerge manifest at", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing manifest")
	initCmd.Flags().BoolVar(&initGit, "git", false, "Also run git init")
	rootCmd.AddCommand(initCmd)
}
