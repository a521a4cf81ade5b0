// Package rulemerge is the Composition Root of the rule merge engine.
//
// It assembles guideline documents into generated outputs following a
// declarative YAML manifest. Each merge rule names base documents, include
// documents classified as language or framework material, an output path
// and the order categories are concatenated in.
//
// Features:
//
//   - **Declarative Manifest**: rules and settings live in build.yaml, decoded strictly.
//   - **Category Ordering**: base, language and framework blocks in any declared order.
//   - **Heading Merge**: repeated top-level headings collapse without losing body text.
//   - **Atomic Outputs**: writes go through a temp file and rename, so readers never see partial results.
//   - **Isolated Failures**: one failing rule never blocks the others.
//   - **Watch Mode**: supervised fsnotify worker rebuilds only affected rules.
//
// Usage:
//
//	e, err := rulemerge.New("build.yaml",
//		rulemerge.WithConcurrency(4),
//		rulemerge.WithLogger(logger),
//	)
//
//	report, err := e.Build(ctx)
package rulemerge
