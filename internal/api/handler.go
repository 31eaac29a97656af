// Package api serves the REST surface: conversation helpers, the
// knowledge base, bookings and conversation logs.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/grillbook/grillbook/pkg/booking"
	"github.com/grillbook/grillbook/pkg/budget"
	"github.com/grillbook/grillbook/pkg/calllog"
	"github.com/grillbook/grillbook/pkg/dialog"
	"github.com/grillbook/grillbook/pkg/knowledge"
	"github.com/grillbook/grillbook/pkg/voiceagent"
)

const maxRequestBodySize = 1 << 20 // 1 MiB

// Deps are the services behind the REST API.
type Deps struct {
	Engine     *dialog.Engine
	Budget     *budget.Budgeter
	Knowledge  *knowledge.Base
	Bookings   *booking.Service
	Logs       *calllog.Recorder
	Dispatcher *voiceagent.Dispatcher
	Agents     *voiceagent.Client
	// WebhookURL is registered with new voice agents for function calls.
	WebhookURL string
	// WebhookSecret, when set, must sign function-call bodies.
	WebhookSecret string
}

// Handler provides the REST endpoints.
type Handler struct {
	Deps
}

// NewHandler creates the REST handler, filling unset dependencies with
// defaults.
func NewHandler(d Deps) *Handler {
	if d.Engine == nil {
		d.Engine = dialog.NewEngine(nil)
	}
	if d.Budget == nil {
		d.Budget = budget.New(nil, 0)
	}
	if d.Knowledge == nil {
		d.Knowledge = knowledge.Default()
	}
	if d.Dispatcher == nil {
		d.Dispatcher = voiceagent.NewDispatcher(d.Knowledge, d.Bookings, d.Budget)
	}
	if d.Agents == nil {
		d.Agents = voiceagent.NewClient(voiceagent.ClientConfig{}, nil)
	}
	return &Handler{Deps: d}
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/conversation/state-prompt", h.StatePrompt)
	mux.HandleFunc("POST /api/conversation/transition", h.Transition)
	mux.Handle("POST /api/conversation/function-call",
		voiceagent.RequireSignature(h.WebhookSecret, http.HandlerFunc(h.FunctionCall)))
	mux.HandleFunc("POST /api/conversation/agents", h.CreateAgent)
	mux.HandleFunc("PUT /api/conversation/agents/{id}", h.UpdateAgent)

	mux.HandleFunc("GET /api/knowledge/outlets", h.Outlets)
	mux.HandleFunc("GET /api/knowledge/faq", h.FAQ)
	mux.HandleFunc("GET /api/knowledge/menu", h.Menu)
	mux.HandleFunc("POST /api/knowledge/query", h.Query)

	mux.HandleFunc("POST /api/bookings", h.withBookings(h.CreateBooking))
	mux.HandleFunc("GET /api/bookings", h.withBookings(h.FindBooking))
	mux.HandleFunc("PATCH /api/bookings/{id}", h.withBookings(h.UpdateBooking))
	mux.HandleFunc("POST /api/bookings/cancel", h.withBookings(h.CancelBooking))

	mux.HandleFunc("POST /api/logs", h.withLogs(h.RecordLog))
	mux.HandleFunc("GET /api/logs", h.withLogs(h.LogHistory))
	mux.HandleFunc("POST /api/logs/analyze", h.Analyze)
}

// withBookings answers 503 when no booking service is configured.
func (h *Handler) withBookings(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.Bookings == nil {
			writeError(w, http.StatusServiceUnavailable, "booking service unavailable")
			return
		}
		next(w, r)
	}
}

// withLogs answers 503 when no conversation log recorder is configured.
func (h *Handler) withLogs(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.Logs == nil {
			writeError(w, http.StatusServiceUnavailable, "conversation log unavailable")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeServiceError maps package sentinels to 400 and 404. Anything else
// is logged and reported as a 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidInput), errors.Is(err, calllog.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, calllog.ErrHistoryUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON body of at most maxRequestBodySize bytes, writing a
// 400 and returning false when it cannot.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
