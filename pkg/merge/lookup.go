package merge

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/rulemerge/pkg/core"
)

// Match strengths, strongest first.
const (
	matchNone = iota
	matchSegment
	matchToken
	matchExact
)

var lookupCategories = []core.Category{core.CategoryLanguage, core.CategoryFramework}

// Lookup classifies include files by naming convention against a
// caller-supplied table of identifiers per category.
//
// An identifier matches, from strongest to weakest:
//   - a glob pattern (doublestar syntax) matching the slash path,
//     or the file stem, case-insensitively ("python" matches "Python.md");
//   - the first dash, underscore or dot separated token of the stem
//     ("django" matches "django-rest.md");
//   - any directory segment ("go" matches "go/style.md").
//
// Only the strongest matches count. A path matching both categories at the
// same strength is ambiguous and left unclassified.
type Lookup struct {
	entries map[core.Category][]string
}

// NewLookup builds a Lookup from identifiers per category. Entries for the
// base category are ignored.
func NewLookup(categories map[core.Category][]string) *Lookup {
	entries := make(map[core.Category][]string, len(lookupCategories))
	for _, c := range lookupCategories {
		entries[c] = append([]string(nil), categories[c]...)
	}
	return &Lookup{entries: entries}
}

// Add appends identifiers to a category.
func (l *Lookup) Add(c core.Category, ids ...string) {
	if c == core.CategoryBase || !c.Valid() {
		return
	}
	l.entries[c] = append(l.entries[c], ids...)
}

// Match returns every category tied for the strongest match of p.
func (l *Lookup) Match(p string) []core.Category {
	slash := filepath.ToSlash(p)
	base := path.Base(slash)
	stem := strings.ToLower(strings.TrimSuffix(base, path.Ext(base)))
	token := stem
	if i := strings.IndexAny(stem, "-_."); i > 0 {
		token = stem[:i]
	}

	var segments []string
	if dir := path.Dir(slash); dir != "." && dir != "/" {
		segments = strings.Split(strings.ToLower(strings.Trim(dir, "/")), "/")
	}

	best := matchNone
	var matched []core.Category
	for _, c := range lookupCategories {
		strength := matchNone
		for _, id := range l.entries[c] {
			strength = max(strength, matchStrength(id, slash, stem, token, segments))
		}
		switch {
		case strength == matchNone || strength < best:
		case strength > best:
			best = strength
			matched = []core.Category{c}
		default:
			matched = append(matched, c)
		}
	}
	return matched
}

// Classify implements core.Classifier.
func (l *Lookup) Classify(p string) (core.Category, bool) {
	matched := l.Match(p)
	if len(matched) != 1 {
		return "", false
	}
	return matched[0], true
}

func matchStrength(id, slash, stem, token string, segments []string) int {
	if IsPattern(id) {
		if ok, err := doublestar.Match(id, slash); err == nil && ok {
			return matchExact
		}
		return matchNone
	}

	id = strings.ToLower(id)
	switch {
	case id == stem:
		return matchExact
	case id == token:
		return matchToken
	}
	for _, s := range segments {
		if s == id {
			return matchSegment
		}
	}
	return matchNone
}

// IsPattern reports whether ref contains glob meta characters.
func IsPattern(ref string) bool {
	return strings.ContainsAny(ref, "*?[{")
}

var _ core.Classifier = (*Lookup)(nil)
