package git

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Footer marks commits created by rulemerge.
const Footer = "Generated-by: rulemerge"

// CommitTypeChore is used when no commit type is given.
const CommitTypeChore = "chore"

// FormatCommitMessage builds a Conventional Commit message:
//
//	<type>(<scope>): <subject>
//
//	<body>
//
//	Generated-by: rulemerge
func FormatCommitMessage(ctype, scope, subject, body string) string {
	var sb strings.Builder

	if ctype == "" {
		ctype = CommitTypeChore
	}
	sb.WriteString(ctype)

	if scope != "" {
		sb.WriteString("(")
		sb.WriteString(scope)
		sb.WriteString(")")
	}

	sb.WriteString(": ")
	sb.WriteString(subject)

	if body != "" {
		sb.WriteString("\n\n")
		sb.WriteString(strings.TrimSpace(body))
	}

	sb.WriteString("\n\n")
	sb.WriteString(Footer)

	return sb.String()
}

// BuildCommitMessage describes a regeneration of the given outputs, keyed by
// rule name.
func BuildCommitMessage(outputs map[string]string) string {
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	var body strings.Builder
	for _, name := range names {
		fmt.Fprintf(&body, "- %s -> %s\n", name, outputs[name])
	}

	noun := "outputs"
	if len(outputs) == 1 {
		noun = "output"
	}
	subject := fmt.Sprintf("regenerate %d %s", len(outputs), noun)
	return FormatCommitMessage(CommitTypeChore, "build", subject, body.String())
}

// CommitOutputs stages and commits the outputs that carry changes (rule
// name -> path relative to the work dir). It returns the sorted names of the
// committed rules, which is empty when nothing changed.
func (c *Client) CommitOutputs(ctx context.Context, outputs map[string]string) ([]string, error) {
	if len(outputs) == 0 {
		return nil, nil
	}

	unlock, err := c.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	// One status per output: porcelain paths are relative to the top level,
	// not to the work dir.
	changed := make(map[string]string)
	var committed, files []string
	for _, name := range names {
		status, err := c.Status(ctx, outputs[name])
		if err != nil {
			return nil, err
		}
		if status == "" {
			continue
		}
		changed[name] = outputs[name]
		committed = append(committed, name)
		files = append(files, outputs[name])
	}
	if len(committed) == 0 {
		c.Logger.Debug("outputs unchanged, nothing to commit")
		return nil, nil
	}

	if err := c.Add(ctx, files...); err != nil {
		return nil, err
	}
	if err := c.Commit(ctx, BuildCommitMessage(changed), files...); err != nil {
		return nil, err
	}
	return committed, nil
}
