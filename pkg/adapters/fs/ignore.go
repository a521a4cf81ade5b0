package fs

import (
	"path"
	"path/filepath"
	"slices"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreList holds root-relative doublestar patterns. It may be replaced
// while a watcher reads it. The zero value and nil ignore nothing.
type IgnoreList struct {
	mu       sync.RWMutex
	patterns []string
}

// NewIgnoreList returns a list holding patterns.
func NewIgnoreList(patterns ...string) *IgnoreList {
	l := &IgnoreList{}
	l.Set(patterns...)
	return l
}

// Set replaces every pattern.
func (l *IgnoreList) Set(patterns ...string) {
	cleaned := make([]string, 0, len(patterns))
	for _, p := range patterns {
		cleaned = append(cleaned, path.Clean(filepath.ToSlash(p)))
	}

	l.mu.Lock()
	l.patterns = cleaned
	l.mu.Unlock()
}

// Patterns returns a copy of the current patterns.
func (l *IgnoreList) Patterns() []string {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.patterns)
}

// Match reports whether rel is covered. A directory matches "dir/**" as well.
func (l *IgnoreList) Match(rel string, isDir bool) bool {
	if l == nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, p := range l.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if isDir && p == rel+"/**" {
			return true
		}
	}
	return false
}
