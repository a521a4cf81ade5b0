// Package config reads the CLI defaults from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Prefix is prepended to every variable name.
const Prefix = "RULEMERGE_"

// CLI holds the defaults of the rulemerge command line. Flags override them.
type CLI struct {
	Manifest    string `env:"MANIFEST" envDefault:"build.yaml"`
	Concurrency int    `env:"CONCURRENCY" envDefault:"0"`
	Verbose     bool   `env:"VERBOSE" envDefault:"false"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads CLI from the process environment.
func Load() (CLI, error) {
	return LoadFrom(nil)
}

// LoadFrom reads CLI from environ, or from the process environment when
// environ is nil.
func LoadFrom(environ map[string]string) (CLI, error) {
	var cfg CLI
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix, Environment: environ}); err != nil {
		return CLI{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return CLI{}, fmt.Errorf("parse env: %sLOG_FORMAT must be text or json, got %q", Prefix, cfg.LogFormat)
	}
	if cfg.Concurrency < 0 {
		return CLI{}, fmt.Errorf("parse env: %sCONCURRENCY must not be negative", Prefix)
	}
	return cfg, nil
}
