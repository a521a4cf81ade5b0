// Package core holds the domain model of the merge engine: manifests, rules,
// categories, documents and the contracts adapters implement.
package core

import (
	"fmt"
	"path/filepath"
)

// Category is a classification bucket for the source documents of a rule.
type Category string

const (
	CategoryBase      Category = "base"
	CategoryLanguage  Category = "language"
	CategoryFramework Category = "framework"
)

// DefaultOrder is used when a rule does not declare an order.
var DefaultOrder = []Category{CategoryBase, CategoryLanguage, CategoryFramework}

// Valid reports whether c is one of the recognized categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryBase, CategoryLanguage, CategoryFramework:
		return true
	}
	return false
}

// ParseCategory converts a manifest tag into a Category.
func ParseCategory(tag string) (Category, error) {
	c := Category(tag)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, tag)
	}
	return c, nil
}

// Include is one entry of a rule's include_files.
// An empty Category means the entry is classified by the engine.
type Include struct {
	Path     string
	Category Category
}

// Rule describes how one output document is assembled.
type Rule struct {
	Name         string
	BaseFiles    []string
	IncludeFiles []Include
	Output       string
	Order        []Category
}

// HasCategory reports whether the rule's order contains c.
func (r Rule) HasCategory(c Category) bool {
	for _, o := range r.Order {
		if o == c {
			return true
		}
	}
	return false
}

// Settings are the global merge settings of a manifest.
type Settings struct {
	Separator            string
	PreserveComments     bool
	MergeHeaders         bool
	AllowEmptyCategories bool

	// Categories is an optional lookup of identifiers or glob patterns per
	// category, used to classify include files.
	Categories map[Category][]string
}

// DefaultSeparator is inserted between concatenated documents.
const DefaultSeparator = "\n\n---\n\n"

// DefaultSettings returns the settings used when a manifest omits them.
func DefaultSettings() Settings {
	return Settings{
		Separator:        DefaultSeparator,
		PreserveComments: true,
		MergeHeaders:     false,
	}
}

// Manifest is the complete declarative description of a build.
type Manifest struct {
	// Source is the path the manifest was loaded from, if any.
	Source string
	// Root is the directory relative references are resolved against.
	Root     string
	Rules    []Rule
	Settings Settings
}

// Rule returns the rule with the given name.
func (m Manifest) Rule(name string) (Rule, bool) {
	for _, r := range m.Rules {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

// Select returns the rules matching names, in manifest order.
// No names selects every rule.
func (m Manifest) Select(names ...string) ([]Rule, error) {
	if len(names) == 0 {
		return m.Rules, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := m.Rule(n); !ok {
			return nil, &ManifestError{Source: m.Source, Rule: n, Err: ErrUnknownRule}
		}
		wanted[n] = true
	}

	selected := make([]Rule, 0, len(wanted))
	for _, r := range m.Rules {
		if wanted[r.Name] {
			selected = append(selected, r)
		}
	}
	return selected, nil
}

// Resolve returns path joined to the manifest root unless it is absolute.
func (m Manifest) Resolve(path string) string {
	if filepath.IsAbs(path) || m.Root == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(m.Root, path)
}

// Document is an immutable text resource identified by its path.
type Document struct {
	Path    string
	Content string
}

// EventType represents the type of change observed in the content store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"

	// EventReconcile carries no path: anything may have changed, for
	// example after a git checkout.
	EventReconcile EventType = "RECONCILE"
)

// Event represents a change to a file under the content root.
type Event struct {
	Type      EventType
	Path      string // slash separated, relative to the root
	Timestamp int64  // Unix timestamp
}

func (e Event) String() string {
	if e.Path == "" {
		return string(e.Type)
	}
	return fmt.Sprintf("%s %s", e.Type, e.Path)
}
