// Package fs is the filesystem adapter of the merge engine. It reads source
// documents from a content root, expands doublestar patterns against it,
// writes outputs atomically and watches the root for changes.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/rulemerge/pkg/core"
)

// Repository implements core.Repository on top of a directory.
type Repository struct {
	Root   string
	config Config

	mu            sync.RWMutex
	reads         int
	writes        int
	lastWrite     *time.Time
	watcherActive bool
}

// Config holds the configuration for the filesystem repository.
type Config struct {
	// Root is the directory relative paths resolve against.
	Root string
	// FileMode is applied to written outputs. Zero means 0644.
	FileMode os.FileMode
	Logger   *slog.Logger
	// ErrorHandler receives runtime watcher failures, which are otherwise
	// only logged.
	ErrorHandler func(error)
}

// NewRepository creates a filesystem-backed repository rooted at config.Root.
func NewRepository(config Config) *Repository {
	if config.Root == "" {
		config.Root = "."
	}
	if abs, err := filepath.Abs(config.Root); err == nil {
		config.Root = abs
	}
	if config.FileMode == 0 {
		config.FileMode = 0644
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Repository{
		Root:   config.Root,
		config: config,
	}
}

// Abs resolves p against the repository root unless it is absolute.
func (r *Repository) Abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(r.Root, p)
}

// Rel returns the slash-separated path of abs relative to the root.
func (r *Repository) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(r.Root, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// Read returns the document at p. Directories and missing files both
// yield core.ErrNotFound.
func (r *Repository) Read(ctx context.Context, p string) (core.Document, error) {
	if err := ctx.Err(); err != nil {
		return core.Document{}, err
	}

	abs := r.Abs(p)
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return core.Document{}, fmt.Errorf("%w: %s", core.ErrNotFound, p)
		}
		return core.Document{}, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	if info.IsDir() {
		return core.Document{}, fmt.Errorf("%w: %s is a directory", core.ErrNotFound, p)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return core.Document{}, fmt.Errorf("failed to read %s: %w", p, err)
	}

	r.mu.Lock()
	r.reads++
	r.mu.Unlock()

	return core.Document{Path: p, Content: string(data)}, nil
}

// Glob expands a doublestar pattern into regular files, sorted lexically.
// Relative patterns match below the root and yield root-relative paths.
func (r *Repository) Glob(ctx context.Context, pattern string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var matches []string
	if filepath.IsAbs(pattern) {
		m, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		matches = m
	} else {
		slashed := path.Clean(filepath.ToSlash(pattern))
		m, err := doublestar.Glob(os.DirFS(r.Root), slashed, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, match := range m {
			if isTempFile(match) {
				continue
			}
			matches = append(matches, filepath.FromSlash(match))
		}
	}

	sort.Strings(matches)
	return matches, nil
}

// Write replaces the file at p atomically, creating parent directories.
func (r *Repository) Write(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	abs := r.Abs(p)
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := writeFileAtomic(abs, data, r.config.FileMode); err != nil {
		return err
	}

	now := time.Now()
	r.mu.Lock()
	r.writes++
	r.lastWrite = &now
	r.mu.Unlock()

	r.config.Logger.Debug("output written", "path", abs, "bytes", len(data))
	return nil
}

func isTempFile(p string) bool {
	return strings.HasPrefix(path.Base(filepath.ToSlash(p)), TempFilePrefix)
}

var _ core.Repository = (*Repository)(nil)
