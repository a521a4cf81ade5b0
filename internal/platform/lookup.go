package platform

import (
	"github.com/aretw0/rulemerge/pkg/core"
	"github.com/aretw0/rulemerge/pkg/merge"
)

// DefaultCategories is the classification table used when a manifest does
// not declare settings.categories.
var DefaultCategories = map[core.Category][]string{
	core.CategoryLanguage: {
		"c", "cpp", "csharp", "dart", "elixir", "go", "golang", "haskell",
		"java", "javascript", "js", "kotlin", "lua", "php", "python", "py",
		"ruby", "rust", "scala", "shell", "bash", "sql", "swift",
		"typescript", "ts", "zig",
		"languages/**",
	},
	core.CategoryFramework: {
		"actix", "angular", "django", "dotnet", "echo", "express", "fastapi",
		"flask", "flutter", "gin", "laravel", "nestjs", "nextjs", "nuxt",
		"phoenix", "rails", "react", "spring", "svelte", "tailwind", "vue",
		"frameworks/**",
	},
}

// newLookup builds the classifier for m: the manifest's own table when it
// declares one, the defaults otherwise, extended with extra.
func newLookup(m core.Manifest, extra map[core.Category][]string) *merge.Lookup {
	table := m.Settings.Categories
	if len(table) == 0 {
		table = DefaultCategories
	}

	l := merge.NewLookup(table)
	for c, ids := range extra {
		l.Add(c, ids...)
	}
	return l
}
