package calllog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
)

// FileFallback writes entries as JSON files in a directory.
type FileFallback struct {
	dir string
	now func() time.Time
}

// NewFileFallback creates a fallback writing into dir.
func NewFileFallback(dir string) *FileFallback {
	if dir == "" {
		dir = "logs"
	}
	return &FileFallback{dir: dir, now: time.Now}
}

// Write stores e as conversation_log_<timestamp>.json and returns the path.
// The file appears atomically and is synced before it is renamed into place.
func (f *FileFallback) Write(e *Entry) (string, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}

	path := f.nextPath()
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return "", fmt.Errorf("create pending log file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	enc := json.NewEncoder(pending)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		return "", fmt.Errorf("write log file: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("commit log file: %w", err)
	}
	return path, nil
}

// nextPath picks a file name that is not yet taken. Several logs in the
// same second get a numeric suffix.
func (f *FileFallback) nextPath() string {
	stamp := f.now().Format("20060102150405")
	path := filepath.Join(f.dir, "conversation_log_"+stamp+".json")
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(f.dir, fmt.Sprintf("conversation_log_%s_%d.json", stamp, n))
	}
}
