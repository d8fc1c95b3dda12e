package cliconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`org = "before"`), 0o600); err != nil {
		t.Fatal(err)
	}

	got := make(chan FileConfig, 1)
	w := NewWatcher(path, func(fc FileConfig) {
		select {
		case got <- fc:
		default:
		}
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte(`org = "after"`), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case fc := <-got:
		if fc.Org != "after" {
			t.Errorf("Org = %q, want %q", fc.Org, "after")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`org = "keep"`), 0o600); err != nil {
		t.Fatal(err)
	}

	got := make(chan FileConfig, 1)
	w := NewWatcher(path, func(fc FileConfig) { got <- fc }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte(`org = "x"`), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-got:
		t.Error("callback fired for unrelated file")
	case <-time.After(500 * time.Millisecond):
	}
}
