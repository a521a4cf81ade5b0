package rulemerge

import (
	"context"
	"log/slog"
	"os"

	"github.com/aretw0/rulemerge/internal/platform"
	"github.com/aretw0/rulemerge/pkg/core"
	"github.com/aretw0/rulemerge/pkg/engine"
)

// --- Types ---

// Engine builds, checks and renders the rules of a manifest.
type Engine = engine.Engine

// Manifest is the parsed description of all merge rules.
type Manifest = core.Manifest

// Report summarizes a build or check.
type Report = core.Report

// --- Configuration ---

// Option defines a functional option for configuring the engine.
type Option = platform.Option

// WithLogger sets the logger for the engine and its adapters.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRepository allows injecting a custom content store and output sink.
func WithRepository(repo core.Repository) Option {
	return platform.WithRepository(repo)
}

// WithRoot overrides the directory sources and outputs resolve against.
func WithRoot(root string) Option {
	return platform.WithRoot(root)
}

// WithClassifier replaces the lookup assigning include files to categories.
func WithClassifier(c core.Classifier) Option {
	return platform.WithClassifier(c)
}

// WithCategories adds identifiers or patterns to a category's lookup.
func WithCategories(c core.Category, ids ...string) Option {
	return platform.WithCategories(c, ids...)
}

// WithConcurrency bounds how many rules run in parallel.
func WithConcurrency(n int) Option {
	return platform.WithConcurrency(n)
}

// WithCommentSyntax sets the comment delimiters stripped from sources.
func WithCommentSyntax(start, end string) Option {
	return platform.WithCommentSyntax(start, end)
}

// WithFileMode sets the permissions of written outputs.
func WithFileMode(mode os.FileMode) Option {
	return platform.WithFileMode(mode)
}

// WithWatcherErrorHandler registers a callback for runtime watcher failures.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Factory ---

// New loads the manifest at path and returns an engine for it.
func New(path string, opts ...Option) (*Engine, error) {
	return platform.New(path, opts...)
}

// FromManifest returns an engine for an already parsed manifest.
func FromManifest(m Manifest, opts ...Option) (*Engine, error) {
	return platform.FromManifest(m, opts...)
}

// Build loads the manifest at path and builds the named rules, or all of
// them.
func Build(ctx context.Context, path string, names []string, opts ...Option) (*Report, error) {
	e, err := New(path, opts...)
	if err != nil {
		return nil, err
	}
	return e.Build(ctx, names...)
}

// FindManifest looks upwards from startDir for a manifest file called name.
func FindManifest(startDir, name string) (string, error) {
	return platform.FindManifest(startDir, name)
}
