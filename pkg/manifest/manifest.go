// Package manifest loads and validates merge manifests (conventionally build.yaml).
//
// A manifest has two top-level keys:
//
//	merge_rules:
//	  - name: python_django
//	    base_files: [base.md]
//	    include_files: [python.md, django.md]
//	    output: build/python_django.md
//	    order: [base, language, framework]
//	settings:
//	  separator: "\n\n---\n\n"
//	  preserve_comments: true
//	  merge_headers: false
//
// Decoding is strict: unknown keys are rejected so that typos never silently
// change a build.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/rulemerge/pkg/core"
)

// DefaultFilename is the manifest name looked up when none is given.
const DefaultFilename = "build.yaml"

type rawManifest struct {
	MergeRules []rawRule    `yaml:"merge_rules"`
	Settings   *rawSettings `yaml:"settings,omitempty"`
}

type rawRule struct {
	Name         string       `yaml:"name"`
	BaseFiles    []string     `yaml:"base_files"`
	IncludeFiles []rawInclude `yaml:"include_files,omitempty"`
	Output       string       `yaml:"output"`
	Order        []string     `yaml:"order,omitempty"`
}

type rawSettings struct {
	Separator            *quotedString       `yaml:"separator,omitempty"`
	PreserveComments     *bool               `yaml:"preserve_comments,omitempty"`
	MergeHeaders         *bool               `yaml:"merge_headers,omitempty"`
	AllowEmptyCategories *bool               `yaml:"allow_empty_categories,omitempty"`
	Categories           map[string][]string `yaml:"categories,omitempty"`
}

// quotedString is always encoded double quoted. Block scalars lose leading
// newlines on the way back, which matters for separators.
type quotedString string

func (q quotedString) MarshalYAML() (interface{}, error) {
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!str",
		Style: yaml.DoubleQuotedStyle,
		Value: string(q),
	}, nil
}

// rawInclude accepts either a bare path or a {path, category} mapping.
type rawInclude struct {
	Path     string
	Category string
}

func (i *rawInclude) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Decode(&i.Path)
	case yaml.MappingNode:
		for k := 0; k+1 < len(n.Content); k += 2 {
			key, val := n.Content[k], n.Content[k+1]
			switch key.Value {
			case "path":
				if err := val.Decode(&i.Path); err != nil {
					return err
				}
			case "category":
				if err := val.Decode(&i.Category); err != nil {
					return err
				}
			default:
				return fmt.Errorf("line %d: field %s not found in include entry", key.Line, key.Value)
			}
		}
		return nil
	}
	return fmt.Errorf("line %d: include entry must be a path or a mapping", n.Line)
}

func (i rawInclude) MarshalYAML() (interface{}, error) {
	if i.Category == "" {
		return i.Path, nil
	}
	return map[string]string{"path": i.Path, "category": i.Category}, nil
}

// Load reads and parses the manifest at path. Relative references in the
// manifest resolve against the manifest's directory.
func Load(path string) (core.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Manifest{}, &core.ManifestError{Source: path, Err: err}
	}

	m, err := Parse(data, path)
	if err != nil {
		return core.Manifest{}, err
	}
	m.Root = filepath.Dir(path)
	return m, nil
}

// Parse decodes and validates manifest data. source is only used in errors.
func Parse(data []byte, source string) (core.Manifest, error) {
	fail := func(rule, field string, err error) (core.Manifest, error) {
		return core.Manifest{}, &core.ManifestError{Source: source, Rule: rule, Field: field, Err: err}
	}

	// Shape check first so a wrong merge_rules type gets a precise error.
	var probe struct {
		MergeRules yaml.Node `yaml:"merge_rules"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return fail("", "", err)
	}
	switch probe.MergeRules.Kind {
	case 0:
		return fail("", "merge_rules", core.ErrMissingField)
	case yaml.SequenceNode:
	default:
		return fail("", "merge_rules", errors.New("must be a sequence"))
	}

	var raw rawManifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return fail("", "", errors.New("empty manifest"))
		}
		return fail("", "", err)
	}

	settings, err := convertSettings(raw.Settings)
	if err != nil {
		return fail("", "settings.categories", err)
	}

	m := core.Manifest{Source: source, Settings: settings}
	names := make(map[string]bool, len(raw.MergeRules))
	outputs := make(map[string]string, len(raw.MergeRules))

	for i, rr := range raw.MergeRules {
		label := rr.Name
		if label == "" {
			label = fmt.Sprintf("merge_rules[%d]", i)
		}

		rule, field, err := convertRule(rr)
		if err != nil {
			return fail(label, field, err)
		}

		if names[rule.Name] {
			return fail(rule.Name, "name", core.ErrDuplicateRule)
		}
		names[rule.Name] = true

		out := filepath.Clean(rule.Output)
		if owner, ok := outputs[out]; ok {
			return fail(rule.Name, "output", fmt.Errorf("%w: %s (also %q)", core.ErrDuplicateOutput, rule.Output, owner))
		}
		outputs[out] = rule.Name

		m.Rules = append(m.Rules, rule)
	}

	return m, nil
}

func convertRule(rr rawRule) (core.Rule, string, error) {
	switch {
	case rr.Name == "":
		return core.Rule{}, "name", core.ErrMissingField
	case rr.Output == "":
		return core.Rule{}, "output", core.ErrMissingField
	case len(rr.BaseFiles) == 0:
		return core.Rule{}, "base_files", core.ErrMissingField
	}

	for i, b := range rr.BaseFiles {
		if b == "" {
			return core.Rule{}, fmt.Sprintf("base_files[%d]", i), core.ErrMissingField
		}
	}

	rule := core.Rule{
		Name:      rr.Name,
		BaseFiles: append([]string(nil), rr.BaseFiles...),
		Output:    rr.Output,
	}

	if len(rr.Order) == 0 {
		rule.Order = append([]core.Category(nil), core.DefaultOrder...)
	}
	seen := make(map[core.Category]bool, len(rr.Order))
	for i, tag := range rr.Order {
		c, err := core.ParseCategory(tag)
		if err != nil {
			return core.Rule{}, fmt.Sprintf("order[%d]", i), err
		}
		if seen[c] {
			return core.Rule{}, fmt.Sprintf("order[%d]", i), fmt.Errorf("%w: %s", core.ErrDuplicateCategory, c)
		}
		seen[c] = true
		rule.Order = append(rule.Order, c)
	}

	for i, inc := range rr.IncludeFiles {
		if inc.Path == "" {
			return core.Rule{}, fmt.Sprintf("include_files[%d].path", i), core.ErrMissingField
		}
		entry := core.Include{Path: inc.Path}
		if inc.Category != "" {
			c, err := core.ParseCategory(inc.Category)
			if err == nil && c == core.CategoryBase {
				err = fmt.Errorf("%w: include files cannot be declared as base", core.ErrUnknownCategory)
			}
			if err != nil {
				return core.Rule{}, fmt.Sprintf("include_files[%d].category", i), err
			}
			entry.Category = c
		}
		rule.IncludeFiles = append(rule.IncludeFiles, entry)
	}

	return rule, "", nil
}

func convertSettings(rs *rawSettings) (core.Settings, error) {
	s := core.DefaultSettings()
	if rs == nil {
		return s, nil
	}

	if rs.Separator != nil {
		s.Separator = string(*rs.Separator)
	}
	if rs.PreserveComments != nil {
		s.PreserveComments = *rs.PreserveComments
	}
	if rs.MergeHeaders != nil {
		s.MergeHeaders = *rs.MergeHeaders
	}
	if rs.AllowEmptyCategories != nil {
		s.AllowEmptyCategories = *rs.AllowEmptyCategories
	}

	if len(rs.Categories) > 0 {
		s.Categories = make(map[core.Category][]string, len(rs.Categories))
		for tag, ids := range rs.Categories {
			c, err := core.ParseCategory(tag)
			if err != nil {
				return core.Settings{}, err
			}
			if c == core.CategoryBase {
				return core.Settings{}, fmt.Errorf("%w: base is not a lookup category", core.ErrUnknownCategory)
			}
			s.Categories[c] = append([]string(nil), ids...)
		}
	}

	return s, nil
}

// Encode renders m back to manifest YAML. Settings equal to the defaults are
// still written out so the result documents every knob.
func Encode(m core.Manifest) ([]byte, error) {
	raw := rawManifest{
		MergeRules: make([]rawRule, 0, len(m.Rules)),
	}

	for _, r := range m.Rules {
		rr := rawRule{
			Name:      r.Name,
			BaseFiles: r.BaseFiles,
			Output:    r.Output,
		}
		for _, inc := range r.IncludeFiles {
			rr.IncludeFiles = append(rr.IncludeFiles, rawInclude{Path: inc.Path, Category: string(inc.Category)})
		}
		for _, c := range r.Order {
			rr.Order = append(rr.Order, string(c))
		}
		raw.MergeRules = append(raw.MergeRules, rr)
	}

	s := m.Settings
	sep := quotedString(s.Separator)
	rs := &rawSettings{
		Separator:        &sep,
		PreserveComments: &s.PreserveComments,
		MergeHeaders:     &s.MergeHeaders,
	}
	if s.AllowEmptyCategories {
		rs.AllowEmptyCategories = &s.AllowEmptyCategories
	}
	if len(s.Categories) > 0 {
		rs.Categories = make(map[string][]string, len(s.Categories))
		for c, ids := range s.Categories {
			rs.Categories[string(c)] = ids
		}
	}
	raw.Settings = rs

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(raw); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
