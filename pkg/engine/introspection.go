package engine

import (
	"github.com/aretw0/introspection"

	"github.com/aretw0/rulemerge/pkg/core"
)

// EngineState exposes internal state for observability.
type EngineState struct {
	Manifest       string       `json:"manifest"`
	Rules          []string     `json:"rules"`
	Concurrency    int          `json:"concurrency"`
	Builds         int          `json:"builds"`
	LastBuild      *core.Report `json:"last_build,omitempty"`
	RepositoryType string       `json:"repository_type"`
	Repository     any          `json:"repository,omitempty"`
}

// State implements introspection.Introspectable.
func (e *Engine) State() any {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]string, 0, len(e.manifest.Rules))
	for _, r := range e.manifest.Rules {
		rules = append(rules, r.Name)
	}

	state := EngineState{
		Manifest:       e.manifest.Source,
		Rules:          rules,
		Concurrency:    e.concurrency,
		Builds:         e.builds,
		LastBuild:      e.lastBuild,
		RepositoryType: "repository",
	}
	if comp, ok := e.repo.(introspection.Component); ok {
		state.RepositoryType = comp.ComponentType()
	}
	if in, ok := e.repo.(introspection.Introspectable); ok {
		state.Repository = in.State()
	}
	return state
}

// ComponentType implements introspection.Component.
func (e *Engine) ComponentType() string {
	return "engine"
}

var _ introspection.Introspectable = (*Engine)(nil)
var _ introspection.Component = (*Engine)(nil)
