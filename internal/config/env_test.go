package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("parse env: %v", err)
	}
	want := CLI{Manifest: "build.yaml", LogFormat: "text"}
	if cfg != want {
		t.Fatalf("expected %+v, got %+v", want, cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"RULEMERGE_MANIFEST":    "rules/merge.yaml",
		"RULEMERGE_CONCURRENCY": "3",
		"RULEMERGE_VERBOSE":     "true",
		"RULEMERGE_LOG_FORMAT":  "json",
		"MANIFEST":              "ignored.yaml",
	})
	if err != nil {
		t.Fatalf("parse env: %v", err)
	}
	want := CLI{Manifest: "rules/merge.yaml", Concurrency: 3, Verbose: true, LogFormat: "json"}
	if cfg != want {
		t.Fatalf("expected %+v, got %+v", want, cfg)
	}
}

func TestLoadProcessEnvironment(t *testing.T) {
	t.Setenv("RULEMERGE_MANIFEST", "other.yaml")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Manifest != "other.yaml" {
		t.Fatalf("expected other.yaml, got %q", cfg.Manifest)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]map[string]string{
		"bad int":        {"RULEMERGE_CONCURRENCY": "many"},
		"negative":       {"RULEMERGE_CONCURRENCY": "-1"},
		"bad log format": {"RULEMERGE_LOG_FORMAT": "xml"},
	}
	for name, environ := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(environ)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), "parse env:") {
				t.Fatalf("expected parse env prefix, got %v", err)
			}
		})
	}
}
