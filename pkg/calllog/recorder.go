package calllog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/grillbook/grillbook/pkg/analysis"
	"github.com/grillbook/grillbook/pkg/events"
	"github.com/grillbook/grillbook/pkg/metrics"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusWarning = "warning"
)

// Sink names, as reported in results and metrics.
const (
	SinkSheets = "sheets"
	SinkFile   = "file"
)

var (
	// ErrInvalidInput is returned for log requests that cannot be recorded.
	ErrInvalidInput = errors.New("invalid conversation log")
	// ErrHistoryUnavailable is returned when no database backs the recorder.
	ErrHistoryUnavailable = errors.New("conversation log history unavailable")
)

// EntryStore persists entries.
type EntryStore interface {
	Create(ctx context.Context, e *Entry) error
}

// EntryLister reads entries back.
type EntryLister interface {
	ListByPhone(ctx context.Context, phone string, limit int) ([]Entry, error)
}

// Appender adds a row to the remote log.
type Appender interface {
	Append(ctx context.Context, row []any) error
}

// Request describes a conversation to log. Empty analysis fields are
// derived from the conversation text.
type Request struct {
	Modality     string `json:"modality"`
	Phone        string `json:"phone_number"`
	Conversation string `json:"conversation"`
	Outcome      string `json:"call_outcome,omitempty"`
	OutletName   string `json:"outlet_name,omitempty"`
	BookingDate  string `json:"booking_date,omitempty"`
	BookingTime  string `json:"booking_time,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	Guests       string `json:"guests,omitempty"`
	Summary      string `json:"call_summary,omitempty"`
}

// Result reports where an entry ended up.
type Result struct {
	Status  string `json:"status"`
	Sink    string `json:"sink"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
	Entry   *Entry `json:"data"`
}

// Recorder writes entries to the database, the spreadsheet and, when the
// spreadsheet fails, a local file. The database and spreadsheet are
// optional.
type Recorder struct {
	store    EntryStore
	sheet    Appender
	fallback *FileFallback
	events   events.Emitter
	now      func() time.Time
}

// NewRecorder creates a recorder. store and sheet may be nil.
func NewRecorder(store EntryStore, sheet Appender, fallback *FileFallback, emitter events.Emitter) *Recorder {
	if fallback == nil {
		fallback = NewFileFallback("")
	}
	if emitter == nil {
		emitter = events.Discard
	}
	return &Recorder{store: store, sheet: sheet, fallback: fallback, events: emitter, now: time.Now}
}

// NewEntry validates req and fills in the derived fields.
func (r *Recorder) NewEntry(req Request) (*Entry, error) {
	phone, err := analysis.ValidatePhone(req.Phone)
	if err != nil {
		return nil, fmt.Errorf("%w: phone number %q", ErrInvalidInput, req.Phone)
	}
	if strings.TrimSpace(req.Conversation) == "" {
		return nil, fmt.Errorf("%w: conversation is required", ErrInvalidInput)
	}

	modality := req.Modality
	if modality == "" {
		modality = "chat"
	}
	found := analysis.ExtractEntities(req.Conversation)
	outcome := req.Outcome
	if outcome == "" {
		outcome = string(analysis.ClassifyOutcome(req.Conversation))
	}
	summary := req.Summary
	if summary == "" {
		summary = analysis.Summarize(req.Conversation)
	}

	return &Entry{
		Modality:     modality,
		CallTime:     analysis.CallTime(r.now()),
		Phone:        phone,
		Outcome:      outcome,
		OutletName:   or(req.OutletName, found.Outlet),
		BookingDate:  analysis.FormatDate(or(req.BookingDate, found.Date)),
		BookingTime:  analysis.FormatTime(or(req.BookingTime, found.Time)),
		CustomerName: or(req.CustomerName, found.Name),
		Guests:       or(req.Guests, found.Guests),
		Summary:      summary,
		Conversation: req.Conversation,
	}, nil
}

// Record logs a conversation. It fails only when the request is invalid
// or neither the spreadsheet nor the local file accepted the entry.
func (r *Recorder) Record(ctx context.Context, req Request) (*Result, error) {
	entry, err := r.NewEntry(req)
	if err != nil {
		return nil, err
	}

	if r.store != nil {
		if err := r.store.Create(ctx, entry); err != nil {
			slog.ErrorContext(ctx, "conversation log not saved to database",
				slog.String("phone", entry.Phone), slog.String("error", err.Error()))
		}
	}

	res, err := r.deliver(ctx, entry)
	if err != nil {
		metrics.CallLogsTotal.WithLabelValues(SinkFile, "error").Inc()
		return nil, err
	}
	metrics.CallLogsTotal.WithLabelValues(res.Sink, res.Status).Inc()

	if err := r.events.Emit(ctx, events.CallLogRecorded, "", events.CallLogRecordedData{
		Status:  res.Status,
		Sink:    res.Sink,
		Outcome: entry.Outcome,
	}); err != nil {
		slog.WarnContext(ctx, "call log event not published", slog.String("error", err.Error()))
	}
	return res, nil
}

func (r *Recorder) deliver(ctx context.Context, entry *Entry) (*Result, error) {
	reason := "spreadsheet logging is not configured"
	if r.sheet != nil {
		err := r.sheet.Append(ctx, entry.Row())
		if err == nil {
			return &Result{
				Status:  StatusSuccess,
				Sink:    SinkSheets,
				Message: "Conversation logged successfully to Google Sheets",
				Entry:   entry,
			}, nil
		}
		slog.ErrorContext(ctx, "conversation log not appended to spreadsheet", slog.String("error", err.Error()))
		reason = "Google Sheets error: " + err.Error()
	}

	path, err := r.fallback.Write(entry)
	if err != nil {
		return nil, fmt.Errorf("write local conversation log: %w", err)
	}
	slog.InfoContext(ctx, "conversation log saved locally", slog.String("path", path))
	return &Result{
		Status:  StatusWarning,
		Sink:    SinkFile,
		Message: "Conversation logged locally due to " + reason,
		Path:    path,
		Entry:   entry,
	}, nil
}

// RequestFromEnded builds a log request from a conversation.ended event,
// preferring the details collected during the conversation.
func RequestFromEnded(d events.ConversationEndedData) Request {
	phone := d.Phone
	if phone == "" {
		phone = d.Context["phone"]
	}
	return Request{
		Modality:     d.Modality,
		Phone:        phone,
		Conversation: d.Transcript,
		OutletName:   d.Context["outlet"],
		BookingDate:  d.Context["booking_date"],
		BookingTime:  d.Context["booking_time"],
		CustomerName: d.Context["customer_name"],
		Guests:       d.Context["guests"],
	}
}

func or(v, fallback string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

// History returns up to limit entries for phone, newest first.
func (r *Recorder) History(ctx context.Context, phone string, limit int) ([]Entry, error) {
	p, err := analysis.ValidatePhone(phone)
	if err != nil {
		return nil, fmt.Errorf("%w: phone number %q", ErrInvalidInput, phone)
	}
	lister, ok := r.store.(EntryLister)
	if !ok {
		return nil, ErrHistoryUnavailable
	}
	entries, err := lister.ListByPhone(ctx, p, limit)
	if err != nil {
		return nil, fmt.Errorf("list call logs: %w", err)
	}
	return entries, nil
}
