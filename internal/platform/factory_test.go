package platform_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/rulemerge/internal/platform"
	"github.com/aretw0/rulemerge/pkg/core"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("Default Lookup Classifies Common Names", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "build.yaml", `
merge_rules:
  - name: python_django
    base_files: [base.md]
    include_files: [rules/django.md, rules/python.md]
    output: build/python_django.md
`)
		writeFile(t, dir, "base.md", "base")
		writeFile(t, dir, "rules/python.md", "py")
		writeFile(t, dir, "rules/django.md", "dj")

		e, err := platform.New(filepath.Join(dir, "build.yaml"), platform.WithConcurrency(1))
		require.NoError(t, err)

		_, err = e.Build(ctx)
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, "build/python_django.md"))
		require.NoError(t, err)
		assert.Equal(t, "base\n\n---\n\npy\n\n---\n\ndj", string(data))
	})

	t.Run("Manifest Table Replaces Defaults", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "build.yaml", `
merge_rules:
  - name: r
    base_files: [base.md]
    include_files: [python.md, house-style.md]
    output: out.md
settings:
  categories:
    language: [house]
    framework: [python]
`)
		writeFile(t, dir, "base.md", "b")
		writeFile(t, dir, "python.md", "p")
		writeFile(t, dir, "house-style.md", "h")

		e, err := platform.New(filepath.Join(dir, "build.yaml"))
		require.NoError(t, err)

		plan, err := e.Plan(ctx, "r")
		require.NoError(t, err)
		require.Len(t, plan.Groups, 3)
		assert.Equal(t, []string{"house-style.md"}, plan.Groups[1].Paths)
		assert.Equal(t, []string{"python.md"}, plan.Groups[2].Paths)
	})

	t.Run("Extra Categories Extend Lookup", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "build.yaml", `
merge_rules:
  - name: r
    base_files: [base.md]
    include_files: [gleam.md, lustre.md]
    output: out.md
`)
		writeFile(t, dir, "base.md", "b")
		writeFile(t, dir, "gleam.md", "g")
		writeFile(t, dir, "lustre.md", "l")

		e, err := platform.New(filepath.Join(dir, "build.yaml"),
			platform.WithCategories(core.CategoryLanguage, "gleam"),
			platform.WithCategories(core.CategoryFramework, "lustre"),
		)
		require.NoError(t, err)

		text, err := e.Render(ctx, "r")
		require.NoError(t, err)
		assert.Equal(t, "b\n\n---\n\ng\n\n---\n\nl", text)
	})

	t.Run("Custom Classifier And Root", func(t *testing.T) {
		dir := t.TempDir()
		content := t.TempDir()
		writeFile(t, dir, "build.yaml", `
merge_rules:
  - name: r
    base_files: [a.txt]
    include_files: [b.txt]
    output: out.txt
    order: [base, framework]
`)
		writeFile(t, content, "a.txt", "A")
		writeFile(t, content, "b.txt", "B <!-- x -->{# y #}")

		classifier := core.ClassifierFunc(func(string) (core.Category, bool) {
			return core.CategoryFramework, true
		})
		e, err := platform.New(filepath.Join(dir, "build.yaml"),
			platform.WithRoot(content),
			platform.WithClassifier(classifier),
			platform.WithCommentSyntax("{#", "#}"),
		)
		require.NoError(t, err)

		text, err := e.Render(ctx, "r")
		require.NoError(t, err)
		assert.Equal(t, "A\n\n---\n\nB <!-- x -->{# y #}", text, "comments are preserved by default")

		_, err = e.Build(ctx)
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(content, "out.txt"))
		assert.NoFileExists(t, filepath.Join(dir, "out.txt"))
	})

	t.Run("Malformed Manifest", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "build.yaml", "merge_rules: {}\n")

		e, err := platform.New(filepath.Join(dir, "build.yaml"))
		assert.Nil(t, e)
		var me *core.ManifestError
		assert.True(t, errors.As(err, &me), "got %v", err)
	})

	t.Run("Missing Manifest", func(t *testing.T) {
		_, err := platform.New(filepath.Join(t.TempDir(), "build.yaml"))
		assert.Equal(t, core.KindManifest, core.ErrorKind(err))
	})
}
