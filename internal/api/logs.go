package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/grillbook/grillbook/pkg/analysis"
	"github.com/grillbook/grillbook/pkg/calllog"
)

// RecordLog handles POST /api/logs. A log kept only in the local fallback
// is still a 201, with status "warning".
func (h *Handler) RecordLog(w http.ResponseWriter, r *http.Request) {
	var req calllog.Request
	if !decode(w, r, &req) {
		return
	}
	res, err := h.Logs.Record(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// LogHistory handles GET /api/logs?phone=...&limit=...
func (h *Handler) LogHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 20
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, 100)
	}
	entries, err := h.Logs.History(r.Context(), q.Get("phone"), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Count: len(entries), Data: entries})
}

// Analyze handles POST /api/logs/analyze
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Conversation) == "" {
		writeError(w, http.StatusBadRequest, "conversation is required")
		return
	}
	writeJSON(w, http.StatusOK, analysis.Analyze(req.Conversation))
}
