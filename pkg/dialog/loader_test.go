package dialog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeDialog(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write dialog: %v", err)
	}
}

func TestLoaderLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dialog.yaml")
	custom := bytes.Replace(defaultDialogYAML,
		[]byte("name: barbeque-nation"), []byte("name: custom"), 1)
	writeDialog(t, path, custom)

	e := NewEngine(nil)
	g, err := NewLoader(path, e).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if g.Name() != "custom" {
		t.Errorf("name = %q, want %q", g.Name(), "custom")
	}
	if e.Graph() != g {
		t.Error("loaded graph was not installed in the engine")
	}
}

func TestLoaderLoadDefaultsName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unnamed.yaml")
	writeDialog(t, path, bytes.Replace(defaultDialogYAML,
		[]byte("name: barbeque-nation\n"), nil, 1))

	g, err := NewLoader(path, nil).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if g.Name() != "unnamed.yaml" {
		t.Errorf("name = %q, want %q", g.Name(), "unnamed.yaml")
	}
}

func TestLoaderLoadInvalidKeepsGraph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dialog.yaml")
	writeDialog(t, path, []byte("states:\n  - name: lobby\n    prompt: hi\n"))

	e := NewEngine(nil)
	before := e.Graph()
	if _, err := NewLoader(path, e).Load(); err == nil {
		t.Fatal("expected error for invalid definition")
	}
	if e.Graph() != before {
		t.Error("invalid definition replaced the graph")
	}
}

func TestLoaderWatchAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dialog.yaml")
	writeDialog(t, path, defaultDialogYAML)

	e := NewEngine(nil)
	loader := NewLoader(path, e)
	if _, err := loader.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	done := make(chan struct{})
	errCh := make(chan error, 1)
	go func() { errCh <- loader.WatchAndReload(done) }()
	defer func() {
		close(done)
		<-errCh
	}()

	// Give the watcher a moment to register before editing.
	time.Sleep(100 * time.Millisecond)
	writeDialog(t, path, bytes.Replace(defaultDialogYAML,
		[]byte(`version: "1.0"`), []byte(`version: "2.0"`), 1))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if e.Graph().Version() == "2.0" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("graph version = %q after reload, want %q", e.Graph().Version(), "2.0")
}
