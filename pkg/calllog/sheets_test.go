package calllog

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/api/option"
)

func newTestAppender(t *testing.T, h http.HandlerFunc) *SheetsAppender {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	a, err := NewSheetsAppender(t.Context(), SheetsConfig{
		SpreadsheetID:    "sheet-123",
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
	},
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewSheetsAppender: %v", err)
	}
	return a
}

func TestSheetsAppenderAppend(t *testing.T) {
	var (
		path  string
		query string
		body  struct {
			Values [][]any `json:"values"`
		}
	)
	a := newTestAppender(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		query = r.URL.RawQuery
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-123"}`))
	})

	if err := a.Append(t.Context(), []any{"voice", "9876543210"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if !strings.Contains(path, "sheet-123") || !strings.HasSuffix(path, ":append") {
		t.Errorf("path = %q", path)
	}
	if !strings.Contains(query, "valueInputOption=RAW") || !strings.Contains(query, "insertDataOption=INSERT_ROWS") {
		t.Errorf("query = %q", query)
	}
	want := [][]any{{"voice", "9876543210"}}
	if diff := cmp.Diff(want, body.Values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	if a.State() != "closed" {
		t.Errorf("state = %q, want closed", a.State())
	}
}

func TestSheetsAppenderOpensCircuit(t *testing.T) {
	var calls atomic.Int32
	a := newTestAppender(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"code":400,"message":"bad range"}}`, http.StatusBadRequest)
	})

	for i := range 2 {
		err := a.Append(t.Context(), []any{"x"})
		if err == nil || errors.Is(err, ErrSheetUnavailable) {
			t.Fatalf("attempt %d: err = %v, want request error", i, err)
		}
	}
	if a.State() != "open" {
		t.Fatalf("state = %q, want open", a.State())
	}

	if err := a.Append(t.Context(), []any{"x"}); !errors.Is(err, ErrSheetUnavailable) {
		t.Errorf("err = %v, want ErrSheetUnavailable", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("server saw %d calls, want 2", n)
	}
}

func TestNewSheetsAppenderRequiresID(t *testing.T) {
	if _, err := NewSheetsAppender(t.Context(), SheetsConfig{}); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
}
