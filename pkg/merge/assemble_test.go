package merge

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aretw0/rulemerge/pkg/core"
)

func docs(contents ...string) []core.Document {
	out := make([]core.Document, 0, len(contents))
	for i, c := range contents {
		out = append(out, core.Document{Path: string(rune('a'+i)) + ".md", Content: c})
	}
	return out
}

func TestAssemble(t *testing.T) {
	base := "# Base\n\nBe kind."
	python := "# Python\n\nUse type hints."
	django := "# Django\n\nFat models."

	t.Run("Joins Categories With Separator", func(t *testing.T) {
		groups := []Group{
			{Category: core.CategoryBase, Documents: docs(base)},
			{Category: core.CategoryLanguage, Documents: docs(python)},
			{Category: core.CategoryFramework, Documents: docs(django)},
		}
		got := Assemble(groups, Options{Separator: core.DefaultSeparator, PreserveComments: true})
		want := base + "\n\n---\n\n" + python + "\n\n---\n\n" + django
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Assemble mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Joins Documents Within A Group", func(t *testing.T) {
		groups := []Group{
			{Category: core.CategoryBase, Documents: docs("one", "two")},
			{Category: core.CategoryLanguage, Documents: docs("three")},
		}
		got := Assemble(groups, Options{Separator: "|", PreserveComments: true})
		if got != "one|two|three" {
			t.Errorf("expected 'one|two|three', got %q", got)
		}
	})

	t.Run("Skips Empty Groups", func(t *testing.T) {
		groups := []Group{
			{Category: core.CategoryBase, Documents: docs("one")},
			{Category: core.CategoryLanguage},
			{Category: core.CategoryFramework, Documents: docs("two")},
		}
		got := Assemble(groups, Options{Separator: "|", PreserveComments: true})
		if got != "one|two" {
			t.Errorf("expected 'one|two', got %q", got)
		}
	})

	t.Run("Strips Comments Per Document", func(t *testing.T) {
		groups := []Group{
			{Category: core.CategoryBase, Documents: docs("keep <!-- drop --> this", "<!-- header -->\nbody")},
		}
		got := Assemble(groups, Options{Separator: "\n", PreserveComments: false})
		if got != "keep  this\nbody" {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("Custom Comment Syntax", func(t *testing.T) {
		groups := []Group{
			{Category: core.CategoryBase, Documents: docs("a {# note #}b <!-- kept -->")},
		}
		got := Assemble(groups, Options{PreserveComments: false, Comments: CommentSyntax{Open: "{#", Close: "#}"}})
		if got != "a b <!-- kept -->" {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("Merges Headers Across Documents", func(t *testing.T) {
		groups := []Group{
			{Category: core.CategoryBase, Documents: docs("# Rules\nbase body")},
			{Category: core.CategoryLanguage, Documents: docs("# Rules\npython body")},
		}
		got := Assemble(groups, Options{Separator: "\n\n", PreserveComments: true, MergeHeaders: true})
		want := "# Rules\nbase body\n\npython body"
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Assemble mismatch (-want +got):\n%s", diff)
		}
		if strings.Count(got, "# Rules") != 1 {
			t.Errorf("expected exactly one heading, got:\n%s", got)
		}
	})

	t.Run("Unclosed Fence Stays Inside Its Document", func(t *testing.T) {
		groups := []Group{
			{Category: core.CategoryBase, Documents: docs("# Rules\n\n```go\ncode")},
			{Category: core.CategoryLanguage, Documents: docs("# Rules\n\nlang body")},
		}
		got := Assemble(groups, Options{Separator: "\n\n", PreserveComments: true, MergeHeaders: true})
		want := "# Rules\n\n```go\ncode\n\n\nlang body"
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Assemble mismatch (-want +got):\n%s", diff)
		}
		if strings.Count(got, "# Rules") != 1 {
			t.Errorf("expected exactly one heading, got:\n%s", got)
		}
	})
}

func TestStripComments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no comments", "plain text\n", "plain text\n"},
		{"inline", "a <!-- x --> b", "a  b"},
		{"whole line", "a\n<!-- x -->\nb\n", "a\nb\n"},
		{"indented whole line", "a\n   <!-- x -->  \nb", "a\nb"},
		{"multi line", "a\n<!--\nsecret\n-->\nb", "a\nb"},
		{"last line without newline", "a\n<!-- x -->", "a\n"},
		{"several", "<!-- 1 -->\na <!-- 2 -->b\n<!-- 3 -->\n", "a b\n"},
		{"unterminated", "a <!-- never closed\nb", "a <!-- never closed\nb"},
		{"two on one line", "<!--a--> <!--b-->\nc", " \nc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripComments(tt.in, HTMLComments)
			if got != tt.want {
				t.Errorf("StripComments(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMergeHeaders(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "keeps first occurrence",
			in:   "# Rules\none\n# Rules\ntwo\n",
			want: "# Rules\none\ntwo\n",
		},
		{
			name: "distinct headings kept",
			in:   "# A\none\n# B\ntwo",
			want: "# A\none\n# B\ntwo",
		},
		{
			name: "closing hashes and spacing normalized",
			in:   "# Rules #\none\n#   Rules\ntwo",
			want: "# Rules #\none\ntwo",
		},
		{
			name: "second level headings untouched",
			in:   "## Sub\none\n## Sub\ntwo",
			want: "## Sub\none\n## Sub\ntwo",
		},
		{
			name: "hashtags are not headings",
			in:   "#tag\n#tag\n",
			want: "#tag\n#tag\n",
		},
		{
			name: "fenced code ignored",
			in:   "# Run\n```sh\n# Run\n```\n# Run\nbody",
			want: "# Run\n```sh\n# Run\n```\nbody",
		},
		{
			name: "tilde fence with longer closer",
			in:   "~~~\n# X\n~~~~\n# X\n# X\n",
			want: "~~~\n# X\n~~~~\n# X\n",
		},
		{
			name: "indented code ignored",
			in:   "# X\n    # X\n",
			want: "# X\n    # X\n",
		},
		{
			name: "crlf line endings",
			in:   "# X\r\na\r\n# X\r\nb",
			want: "# X\r\na\r\nb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeHeaders(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("MergeHeaders mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
