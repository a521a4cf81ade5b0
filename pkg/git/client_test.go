package git

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestClient_Lock(t *testing.T) {
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, nil)
	ctx := context.Background()

	unlock, err := client.Lock(ctx)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}

	lockPath := filepath.Join(tmpDir, LockFile)
	if _, err := os.Stat(lockPath); os.IsNotExist(err) {
		t.Error("Lock file not created")
	}

	// A second acquisition must wait; give up via the context.
	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := client.Lock(waitCtx); err == nil {
		t.Error("expected contended lock to fail once the context expires")
	}

	unlock()

	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Error("Lock file not removed after unlock")
	}
}

func setupRepo(t *testing.T) (*Client, string) {
	t.Helper()
	if !IsInstalled() {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	client := NewClient(dir, nil)
	ctx := context.Background()
	if err := client.Init(ctx); err != nil {
		t.Fatalf("Failed to init: %v", err)
	}
	for _, args := range [][]string{
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "Test"},
		{"config", "commit.gpgsign", "false"},
	} {
		if _, err := client.Run(ctx, args...); err != nil {
			t.Fatalf("git %v: %v", args, err)
		}
	}
	return client, dir
}

func TestClient_Init(t *testing.T) {
	client, dir := setupRepo(t)

	if _, err := os.Stat(filepath.Join(dir, ".git")); os.IsNotExist(err) {
		t.Error(".git directory not created")
	}
	if !client.IsRepo(context.Background()) {
		t.Error("expected IsRepo to be true after init")
	}
}

func TestClient_CommitOutputs(t *testing.T) {
	client, dir := setupRepo(t)
	ctx := context.Background()

	if err := os.MkdirAll(filepath.Join(dir, "build"), 0755); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join("build", "python.md")
	if err := os.WriteFile(filepath.Join(dir, out), []byte("v1"), 0644); err != nil {
		t.Fatal(err)
	}

	committed, err := client.CommitOutputs(ctx, map[string]string{"python": out})
	if err != nil {
		t.Fatalf("CommitOutputs failed: %v", err)
	}
	if len(committed) != 1 || committed[0] != "python" {
		t.Fatalf("expected python to be committed, got %v", committed)
	}

	msg, err := client.Run(ctx, "log", "-1", "--format=%B")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(msg, "chore(build): regenerate 1 output") {
		t.Errorf("unexpected commit message: %q", msg)
	}
	if !strings.Contains(msg, Footer) {
		t.Errorf("commit message misses footer: %q", msg)
	}

	// Same bytes again: nothing to commit.
	committed, err = client.CommitOutputs(ctx, map[string]string{"python": out})
	if err != nil {
		t.Fatalf("CommitOutputs failed: %v", err)
	}
	if len(committed) != 0 {
		t.Errorf("expected no commit for unchanged output, got %v", committed)
	}
}

func TestClient_CommitOutputsOnlyChanged(t *testing.T) {
	client, dir := setupRepo(t)
	ctx := context.Background()

	if err := os.MkdirAll(filepath.Join(dir, "build"), 0755); err != nil {
		t.Fatal(err)
	}
	outputs := map[string]string{
		"go":     filepath.Join("build", "go.md"),
		"python": filepath.Join("build", "python.md"),
	}
	for _, p := range outputs {
		if err := os.WriteFile(filepath.Join(dir, p), []byte("v1"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := client.CommitOutputs(ctx, outputs); err != nil {
		t.Fatalf("CommitOutputs failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, outputs["go"]), []byte("v2"), 0644); err != nil {
		t.Fatal(err)
	}
	committed, err := client.CommitOutputs(ctx, outputs)
	if err != nil {
		t.Fatalf("CommitOutputs failed: %v", err)
	}
	if len(committed) != 1 || committed[0] != "go" {
		t.Fatalf("expected only go to be committed, got %v", committed)
	}

	msg, err := client.Run(ctx, "log", "-1", "--format=%B")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(msg, "chore(build): regenerate 1 output") {
		t.Errorf("unexpected commit message: %q", msg)
	}
	if strings.Contains(msg, "python") {
		t.Errorf("unchanged output listed in commit message: %q", msg)
	}
}
