package calllog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/grillbook/grillbook/pkg/events"
)

type fakeStore struct {
	mu      sync.Mutex
	entries []*Entry
	err     error
}

func (s *fakeStore) Create(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *fakeStore) ListByPhone(_ context.Context, phone string, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for i := len(s.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.entries[i].Phone == phone {
			out = append(out, *s.entries[i])
		}
	}
	return out, nil
}

func (s *fakeStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type fakeAppender struct {
	rows [][]any
	err  error
}

func (a *fakeAppender) Append(_ context.Context, row []any) error {
	if a.err != nil {
		return a.err
	}
	a.rows = append(a.rows, row)
	return nil
}

type eventLog struct {
	mu   sync.Mutex
	data []events.CallLogRecordedData
}

func (l *eventLog) Emit(_ context.Context, et events.EventType, _ string, data any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if d, ok := data.(events.CallLogRecordedData); ok && et == events.CallLogRecorded {
		l.data = append(l.data, d)
	}
	return nil
}

func newTestRecorder(t *testing.T, store EntryStore, sheet Appender) (*Recorder, *eventLog, string) {
	t.Helper()
	dir := t.TempDir()
	em := &eventLog{}
	r := NewRecorder(store, sheet, NewFileFallback(dir), em)
	r.now = func() time.Time { return time.Date(2025, 3, 15, 14, 0, 0, 0, time.UTC) }
	return r, em, dir
}

func bookingRequest() Request {
	return Request{
		Modality:     "call",
		Phone:        "+91 98765 43210",
		Conversation: "Customer: I want to book a table for 4 people.\nAgent: Sure.",
		Outcome:      "Availability",
		OutletName:   "Barbeque Nation Koramangala",
		BookingDate:  "15/03/2025",
		BookingTime:  "19:30",
		CustomerName: "Asha",
		Guests:       "4",
		Summary:      "Asha booked a table for 4.",
	}
}

func TestRecorderRecordToSheet(t *testing.T) {
	store := &fakeStore{}
	sheet := &fakeAppender{}
	r, em, _ := newTestRecorder(t, store, sheet)

	res, err := r.Record(t.Context(), bookingRequest())
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if res.Status != StatusSuccess || res.Sink != SinkSheets {
		t.Errorf("result = %s/%s, want success/sheets", res.Status, res.Sink)
	}
	if store.len() != 1 {
		t.Errorf("store has %d entries, want 1", store.len())
	}
	if len(sheet.rows) != 1 {
		t.Fatalf("sheet has %d rows, want 1", len(sheet.rows))
	}

	e := res.Entry
	if e.Phone != "9876543210" {
		t.Errorf("phone = %q", e.Phone)
	}
	if e.BookingDate != "2025-03-15" {
		t.Errorf("booking date = %q", e.BookingDate)
	}
	if e.CallTime != "2025-03-15 19:30:00" {
		t.Errorf("call time = %q, want IST", e.CallTime)
	}
	if len(em.data) != 1 || em.data[0].Sink != SinkSheets {
		t.Errorf("events = %+v", em.data)
	}
}

func TestRecorderFallsBackToFile(t *testing.T) {
	tests := []struct {
		name  string
		sheet Appender
	}{
		{name: "sheet not configured", sheet: nil},
		{name: "sheet failing", sheet: &fakeAppender{err: ErrSheetUnavailable}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, em, dir := newTestRecorder(t, nil, tt.sheet)

			res, err := r.Record(t.Context(), bookingRequest())
			if err != nil {
				t.Fatalf("Record: %v", err)
			}
			if res.Status != StatusWarning || res.Sink != SinkFile {
				t.Errorf("result = %s/%s, want warning/file", res.Status, res.Sink)
			}
			if filepath.Dir(res.Path) != dir {
				t.Errorf("path %q not in %q", res.Path, dir)
			}
			if _, err := os.Stat(res.Path); err != nil {
				t.Errorf("fallback file missing: %v", err)
			}
			if len(em.data) != 1 || em.data[0].Status != StatusWarning {
				t.Errorf("events = %+v", em.data)
			}
		})
	}
}

func TestRecorderDatabaseErrorIsNotFatal(t *testing.T) {
	r, _, _ := newTestRecorder(t, &fakeStore{err: errors.New("db down")}, &fakeAppender{})
	res, err := r.Record(t.Context(), bookingRequest())
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if res.Status != StatusSuccess {
		t.Errorf("status = %q", res.Status)
	}
}

func TestRecorderRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{name: "bad phone", mutate: func(r *Request) { r.Phone = "12345" }},
		{name: "missing phone", mutate: func(r *Request) { r.Phone = "" }},
		{name: "empty conversation", mutate: func(r *Request) { r.Conversation = "  " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			r, _, _ := newTestRecorder(t, store, &fakeAppender{})
			req := bookingRequest()
			tt.mutate(&req)

			if _, err := r.Record(t.Context(), req); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
			if store.len() != 0 {
				t.Error("invalid request reached the store")
			}
		})
	}
}

func TestRecorderDerivesMissingFields(t *testing.T) {
	r, _, _ := newTestRecorder(t, nil, nil)
	e, err := r.NewEntry(Request{
		Phone:        "9876543210",
		Conversation: "I would like to know the timings of the Koramangala outlet.",
	})
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	if e.Modality != "chat" {
		t.Errorf("modality = %q, want chat", e.Modality)
	}
	if e.Outcome == "" || e.Summary == "" {
		t.Errorf("outcome %q and summary %q should be derived", e.Outcome, e.Summary)
	}
	if e.BookingDate == "" || e.BookingTime == "" || e.Guests == "" {
		t.Errorf("missing fields should default, got %+v", e)
	}
}

func TestRequestFromEnded(t *testing.T) {
	req := RequestFromEnded(events.ConversationEndedData{
		Modality: "call",
		Context: map[string]string{
			"phone":         "9876543210",
			"outlet":        "Barbeque Nation Delhi",
			"guests":        "6",
			"customer_name": "Ravi",
		},
		Transcript: "bot: hello",
	})
	if req.Phone != "9876543210" || req.OutletName != "Barbeque Nation Delhi" || req.Guests != "6" || req.CustomerName != "Ravi" {
		t.Errorf("unexpected request %+v", req)
	}
	if req.Conversation != "bot: hello" {
		t.Errorf("conversation = %q", req.Conversation)
	}
}

func TestRecorderHistory(t *testing.T) {
	store := &fakeStore{}
	r, _, _ := newTestRecorder(t, store, &fakeAppender{})

	for range 3 {
		if _, err := r.Record(t.Context(), bookingRequest()); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := r.History(t.Context(), "+91 98765 43210", 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("History returned %d entries, want 2", len(got))
	}
	for _, e := range got {
		if e.Phone != "9876543210" {
			t.Errorf("phone = %q", e.Phone)
		}
	}

	if _, err := r.History(t.Context(), "12", 2); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad phone error = %v, want ErrInvalidInput", err)
	}

	noDB := NewRecorder(nil, nil, NewFileFallback(t.TempDir()), nil)
	if _, err := noDB.History(t.Context(), "9876543210", 2); !errors.Is(err, ErrHistoryUnavailable) {
		t.Errorf("no store error = %v, want ErrHistoryUnavailable", err)
	}
}
