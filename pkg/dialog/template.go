package dialog

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/template"
)

const maxTemplateOutput = 64 * 1024

// parsePrompt compiles a prompt. Slot names are addressed directly, for
// example {{if .outlet}}{{.outlet}}{{else}}Not specified yet{{end}}.
// Missing slots render as the empty string.
func parsePrompt(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt: %w", err)
	}
	return tmpl, nil
}

// limitWriter caps output from template.Execute.
type limitWriter struct {
	w       io.Writer
	n       int64
	written int64
}

func (lw *limitWriter) Write(p []byte) (int, error) {
	if lw.written+int64(len(p)) > lw.n {
		allowed := lw.n - lw.written
		if allowed > 0 {
			n, err := lw.w.Write(p[:allowed])
			lw.written += int64(n)
			if err != nil {
				return n, err
			}
		}
		return 0, fmt.Errorf("prompt output exceeds %d bytes", lw.n)
	}
	n, err := lw.w.Write(p)
	lw.written += int64(n)
	return n, err
}

func executePrompt(tmpl *template.Template, c Context) (string, error) {
	var buf bytes.Buffer
	lw := &limitWriter{w: &buf, n: maxTemplateOutput}
	if err := tmpl.Execute(lw, c.Values()); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
