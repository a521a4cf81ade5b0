package platform

import (
	"log/slog"
	"os"

	"github.com/aretw0/rulemerge/pkg/core"
	"github.com/aretw0/rulemerge/pkg/merge"
)

// options holds the internal configuration for the engine factory.
type options struct {
	repository   core.Repository
	classifier   core.Classifier
	logger       *slog.Logger
	root         string
	concurrency  int
	comments     merge.CommentSyntax
	fileMode     os.FileMode
	categories   map[core.Category][]string
	errorHandler func(error)
}

// Option defines a functional option for configuring the engine.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		categories: make(map[core.Category][]string),
	}
}

// WithLogger sets the logger for the engine and the filesystem adapter.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRepository allows injecting a custom content store and sink (e.g. an
// in-memory store in tests). If provided, the default filesystem adapter is
// skipped.
func WithRepository(repo core.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithRoot overrides the directory source references and outputs resolve
// against. Defaults to the manifest's directory.
func WithRoot(root string) Option {
	return func(o *options) {
		o.root = root
	}
}

// WithClassifier replaces the naming-convention lookup used to assign
// include files to categories.
func WithClassifier(c core.Classifier) Option {
	return func(o *options) {
		o.classifier = c
	}
}

// WithCategories adds identifiers (names or doublestar patterns) to the
// classification lookup of a category.
func WithCategories(c core.Category, ids ...string) Option {
	return func(o *options) {
		o.categories[c] = append(o.categories[c], ids...)
	}
}

// WithConcurrency bounds how many rules run in parallel.
// Zero means one per CPU.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithCommentSyntax sets the comment delimiters stripped when
// preserve_comments is false. Defaults to HTML comments.
func WithCommentSyntax(start, end string) Option {
	return func(o *options) {
		o.comments = merge.CommentSyntax{Open: start, Close: end}
	}
}

// WithFileMode sets the permissions of written outputs.
func WithFileMode(mode os.FileMode) Option {
	return func(o *options) {
		o.fileMode = mode
	}
}

// WithWatcherErrorHandler registers a callback for runtime watcher failures
// (e.g. permission denied) which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}
