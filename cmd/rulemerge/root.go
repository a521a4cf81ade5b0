package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/rulemerge"
	"github.com/aretw0/rulemerge/internal/config"
)

var (
	verbose      bool
	logFormat    string
	manifestPath string
	concurrency  int

	envErr error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rulemerge",
	Short: "Assemble guideline documents into generated outputs from a manifest",
	Long: `rulemerge reads a build.yaml manifest of merge rules and concatenates base,
language and framework documents into one output per rule.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envErr != nil {
			return envErr
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}

		var handler slog.Handler
		switch logFormat {
		case "text":
			handler = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
		case "json":
			handler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
		default:
			return fmt.Errorf("unknown log format %q (want text or json)", logFormat)
		}
		slog.SetDefault(slog.New(handler))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cfg, err := config.Load()
	if err != nil {
		envErr = err
		cfg = config.CLI{Manifest: "build.yaml", LogFormat: "text"}
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", cfg.Verbose, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", cfg.LogFormat, "Log format: text or json")
	rootCmd.PersistentFlags().StringVarP(&manifestPath, "manifest", "f", cfg.Manifest, "Path to the build manifest")
	rootCmd.PersistentFlags().IntVarP(&concurrency, "concurrency", "j", cfg.Concurrency, "Rules built in parallel (0 = one per CPU)")
}

// resolveManifest returns the manifest to use. Without an explicit
// --manifest, a missing default is searched for in parent directories.
func resolveManifest(cmd *cobra.Command) (string, error) {
	if cmd.Flags().Changed("manifest") || fileExists(manifestPath) {
		return manifestPath, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	found, err := rulemerge.FindManifest(wd, filepath.Base(manifestPath))
	if err != nil {
		return "", fmt.Errorf("no manifest: %w", err)
	}
	return found, nil
}

func openEngine(cmd *cobra.Command) (*rulemerge.Engine, error) {
	path, err := resolveManifest(cmd)
	if err != nil {
		return nil, err
	}
	return rulemerge.New(path,
		rulemerge.WithLogger(slog.Default()),
		rulemerge.WithConcurrency(concurrency),
	)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
