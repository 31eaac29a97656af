package dialog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Loader loads a graph definition from a YAML file and optionally keeps an
// engine in sync with it.
type Loader struct {
	path   string
	engine *Engine
}

// NewLoader creates a loader that installs graphs read from path into engine.
func NewLoader(path string, engine *Engine) *Loader {
	return &Loader{path: path, engine: engine}
}

// Load reads and validates the file, then installs the graph.
func (l *Loader) Load() (*Graph, error) {
	g, err := l.loadFile()
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", l.path, err)
	}
	if l.engine != nil {
		l.engine.SetGraph(g)
	}
	return g, nil
}

func (l *Loader) loadFile() (*Graph, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, err
	}
	if def.Name == "" {
		def.Name = filepath.Base(l.path)
	}
	return NewGraph(def)
}

// WatchAndReload watches the file's directory and reloads on changes to the
// file. An invalid edit is logged and the previous graph stays active.
// This blocks until the done channel is closed.
func (l *Loader) WatchAndReload(done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(l.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch dir %q: %w", dir, err)
	}

	target := filepath.Clean(l.path)
	for {
		select {
		case <-done:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if g, err := l.Load(); err != nil {
					slog.Warn("dialog reload failed, keeping previous graph",
						slog.String("path", l.path), slog.String("error", err.Error()))
				} else {
					slog.Info("dialog reloaded",
						slog.String("name", g.Name()), slog.String("version", g.Version()))
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
