// Package merge resolves merge rules into ordered document groups and
// assembles them into the final output text. Everything here is pure: the
// same plan and options always yield the same bytes.
package merge

import (
	"strings"

	"github.com/aretw0/rulemerge/pkg/core"
)

// CommentSyntax delimits comment blocks inside source documents.
type CommentSyntax struct {
	Open  string
	Close string
}

// HTMLComments is the syntax of Markdown/HTML comments.
var HTMLComments = CommentSyntax{Open: "<!--", Close: "-->"}

// Options controls how documents are assembled.
type Options struct {
	Separator        string
	PreserveComments bool
	MergeHeaders     bool

	// Comments is used when PreserveComments is false.
	// The zero value means HTMLComments.
	Comments CommentSyntax
}

// OptionsFrom derives assembly options from manifest settings.
func OptionsFrom(s core.Settings) Options {
	return Options{
		Separator:        s.Separator,
		PreserveComments: s.PreserveComments,
		MergeHeaders:     s.MergeHeaders,
	}
}

// Assemble concatenates the loaded documents of groups: documents within a
// group and then the group blocks are joined with the separator. Empty
// groups contribute nothing.
func Assemble(groups []Group, opts Options) string {
	syntax := opts.Comments
	if syntax.Open == "" || syntax.Close == "" {
		syntax = HTMLComments
	}

	var seen map[string]bool
	if opts.MergeHeaders {
		seen = make(map[string]bool)
	}

	blocks := make([]string, 0, len(groups))
	for _, g := range groups {
		if len(g.Documents) == 0 {
			continue
		}
		parts := make([]string, 0, len(g.Documents))
		for _, d := range g.Documents {
			content := d.Content
			if !opts.PreserveComments {
				content = StripComments(content, syntax)
			}
			if seen != nil {
				content = mergeHeaders(content, seen)
			}
			parts = append(parts, content)
		}
		blocks = append(blocks, strings.Join(parts, opts.Separator))
	}

	return strings.Join(blocks, opts.Separator)
}

// StripComments removes every complete comment block from text. A comment
// that is alone on its line(s) takes those lines with it. An opener without
// a matching closer is left as is.
func StripComments(text string, syntax CommentSyntax) string {
	if syntax.Open == "" || syntax.Close == "" {
		return text
	}

	var sb strings.Builder
	pos := 0
	for {
		rel := strings.Index(text[pos:], syntax.Open)
		if rel < 0 {
			break
		}
		start := pos + rel

		closeRel := strings.Index(text[start+len(syntax.Open):], syntax.Close)
		if closeRel < 0 {
			break
		}
		end := start + len(syntax.Open) + closeRel + len(syntax.Close)

		lineStart := strings.LastIndexByte(text[:start], '\n') + 1
		lineEnd := len(text)
		if i := strings.IndexByte(text[end:], '\n'); i >= 0 {
			lineEnd = end + i
		}
		if lineStart >= pos && isBlank(text[lineStart:start]) && isBlank(text[end:lineEnd]) {
			start = lineStart
			end = lineEnd
			if end < len(text) {
				end++ // the newline
			}
		}

		sb.WriteString(text[pos:start])
		pos = end
	}
	sb.WriteString(text[pos:])
	return sb.String()
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// MergeHeaders drops every repeated top-level heading line, keeping the
// first occurrence of each distinct heading text. Body lines are never
// removed and lines inside fenced code blocks are left alone.
func MergeHeaders(text string) string {
	return mergeHeaders(text, make(map[string]bool))
}

// mergeHeaders records kept headings in seen so that it can run once per
// document. Fence state never crosses a call.
func mergeHeaders(text string, seen map[string]bool) string {
	lines := strings.SplitAfter(text, "\n")

	var sb strings.Builder
	sb.Grow(len(text))

	fence := ""
	for _, line := range lines {
		bare := strings.TrimRight(line, "\r\n")

		if fence != "" {
			if closesFence(bare, fence) {
				fence = ""
			}
			sb.WriteString(line)
			continue
		}
		if f := openFence(bare); f != "" {
			fence = f
			sb.WriteString(line)
			continue
		}

		if title, ok := topHeading(bare); ok {
			if seen[title] {
				continue
			}
			seen[title] = true
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// topHeading returns the normalized text of an ATX level-one heading.
func topHeading(line string) (string, bool) {
	s, ok := trimIndent(line)
	if !ok || !strings.HasPrefix(s, "#") {
		return "", false
	}
	s = s[1:]
	if s != "" && s[0] != ' ' && s[0] != '\t' {
		return "", false // "##..." or "#tag"
	}

	s = strings.TrimSpace(s)
	// Optional closing sequence: "# Title ##"
	if trimmed := strings.TrimRight(s, "#"); trimmed != s {
		if trimmed == "" || strings.HasSuffix(trimmed, " ") || strings.HasSuffix(trimmed, "\t") {
			s = strings.TrimSpace(trimmed)
		}
	}
	return s, true
}

func openFence(line string) string {
	s, ok := trimIndent(line)
	if !ok {
		return ""
	}
	for _, marker := range []byte{'`', '~'} {
		n := 0
		for n < len(s) && s[n] == marker {
			n++
		}
		if n >= 3 {
			return s[:n]
		}
	}
	return ""
}

func closesFence(line, fence string) bool {
	s, ok := trimIndent(line)
	if !ok {
		return false
	}
	s = strings.TrimRight(s, " \t")
	return len(s) >= len(fence) && strings.Trim(s, fence[:1]) == ""
}

// trimIndent strips up to three leading spaces; four or more make an
// indented code line.
func trimIndent(line string) (string, bool) {
	n := 0
	for n < len(line) && line[n] == ' ' {
		n++
	}
	if n > 3 {
		return "", false
	}
	return line[n:], true
}
