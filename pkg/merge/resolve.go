package merge

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aretw0/rulemerge/pkg/core"
)

// Group is the ordered set of documents resolved for one category.
type Group struct {
	Category  core.Category
	Paths     []string
	Documents []core.Document
}

// Plan is a rule with its sources resolved into category groups, in the
// rule's order.
type Plan struct {
	Rule   core.Rule
	Groups []Group
}

// Sources returns every resolved source path in concatenation order.
func (p *Plan) Sources() []string {
	var out []string
	for _, g := range p.Groups {
		out = append(out, g.Paths...)
	}
	return out
}

// ambiguityReporter is implemented by classifiers that can tell an ambiguous
// path apart from an unknown one.
type ambiguityReporter interface {
	Match(path string) []core.Category
}

// Resolve determines which documents belong to each category of rule.
//
// Base documents come from BaseFiles. Include files take their declared
// category, else the classifier's answer, else the only non-base category
// in the order. Glob references are expanded through store. A path reached
// twice is kept at its first position only.
func Resolve(ctx context.Context, rule core.Rule, settings core.Settings, store core.Store, classifier core.Classifier) (*Plan, error) {
	seen := make(map[string]bool)
	byCategory := make(map[core.Category][]string, len(rule.Order))

	add := func(c core.Category, p string) {
		key := filepath.Clean(p)
		if seen[key] {
			return
		}
		seen[key] = true
		byCategory[c] = append(byCategory[c], p)
	}

	if rule.HasCategory(core.CategoryBase) {
		for _, ref := range rule.BaseFiles {
			paths, err := expand(ctx, rule, ref, store)
			if err != nil {
				return nil, err
			}
			for _, p := range paths {
				add(core.CategoryBase, p)
			}
		}
	}

	fallback, hasFallback := singleIncludeCategory(rule)

	for _, inc := range rule.IncludeFiles {
		paths, err := expand(ctx, rule, inc.Path, store)
		if err != nil {
			return nil, err
		}

		for _, p := range paths {
			c := inc.Category
			if c == "" && classifier != nil {
				c, _ = classifier.Classify(p)
			}
			if c == "" {
				if !hasFallback {
					return nil, unclassified(rule, p, classifier)
				}
				c = fallback
			}
			if !rule.HasCategory(c) {
				return nil, &core.CategoryResolutionError{
					Rule:     rule.Name,
					Category: c,
					Path:     p,
					Err:      fmt.Errorf("%w: classified as %s, which the order omits", core.ErrUnclassified, c),
				}
			}
			add(c, p)
		}
	}

	plan := &Plan{Rule: rule}
	for _, c := range rule.Order {
		paths := byCategory[c]
		if len(paths) == 0 {
			if settings.AllowEmptyCategories {
				continue
			}
			return nil, &core.CategoryResolutionError{Rule: rule.Name, Category: c, Err: core.ErrEmptyCategory}
		}
		plan.Groups = append(plan.Groups, Group{Category: c, Paths: paths})
	}

	return plan, nil
}

// Load reads every document of the plan from store. Nothing is written, so
// a failure leaves outputs untouched.
func (p *Plan) Load(ctx context.Context, store core.Store) error {
	for gi := range p.Groups {
		g := &p.Groups[gi]
		g.Documents = make([]core.Document, 0, len(g.Paths))
		for _, path := range g.Paths {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := store.Read(ctx, path)
			if err != nil {
				return &core.MissingDocumentError{Rule: p.Rule.Name, Path: path, Err: err}
			}
			g.Documents = append(g.Documents, doc)
		}
	}
	return nil
}

func expand(ctx context.Context, rule core.Rule, ref string, store core.Store) ([]string, error) {
	if !IsPattern(ref) {
		return []string{ref}, nil
	}

	paths, err := store.Glob(ctx, ref)
	if err != nil {
		return nil, &core.MissingDocumentError{Rule: rule.Name, Path: ref, Err: err}
	}
	if len(paths) == 0 {
		return nil, &core.MissingDocumentError{
			Rule: rule.Name,
			Path: ref,
			Err:  fmt.Errorf("%w: pattern matched no files", core.ErrNotFound),
		}
	}
	return paths, nil
}

// singleIncludeCategory returns the non-base category of the order when
// there is exactly one.
func singleIncludeCategory(rule core.Rule) (core.Category, bool) {
	var found core.Category
	n := 0
	for _, c := range rule.Order {
		if c != core.CategoryBase {
			found = c
			n++
		}
	}
	return found, n == 1
}

func unclassified(rule core.Rule, path string, classifier core.Classifier) error {
	err := core.ErrUnclassified
	if r, ok := classifier.(ambiguityReporter); ok && len(r.Match(path)) > 1 {
		err = core.ErrAmbiguous
	}
	return &core.CategoryResolutionError{Rule: rule.Name, Path: path, Err: err}
}
