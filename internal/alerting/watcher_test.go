package alerting

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const oneRule = "rules:\n  - name: first\n    type: error\n    condition: \"true\"\n"

const twoRules = oneRule + "  - name: second\n    type: performance\n    condition: fcp > 1000\n"

func TestWatcherReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(oneRule), 0o644); err != nil {
		t.Fatal(err)
	}

	e, _, _ := newTestEngine(DefaultConfig())
	w, err := NewWatcher(path, e)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := w.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := len(e.Rules()); got != 1 {
		t.Fatalf("rules = %d, want 1", got)
	}
	if err := w.LastError(); err != nil {
		t.Errorf("LastError = %v, want nil", err)
	}

	if err := os.WriteFile(path, []byte("rules:\n  - name: broken\n    type: error\n    condition: \"==\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := w.Reload(); err == nil {
		t.Error("expected reload of an invalid file to fail")
	}
	if got := e.Rules(); len(got) != 1 || got[0].Name != "first" {
		t.Errorf("rules = %v, failed reload must keep the current set", got)
	}
	if w.LastError() == nil {
		t.Error("LastError should report the failed reload")
	}
}

func TestWatcherRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(oneRule), 0o644); err != nil {
		t.Fatal(err)
	}

	e, _, _ := newTestEngine(DefaultConfig())
	w, err := NewWatcher(path, e)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	if err := os.WriteFile(path, []byte(twoRules), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(e.Rules()) != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("rules = %d after write, want 2", len(e.Rules()))
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
