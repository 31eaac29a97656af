package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/grillbook/grillbook/pkg/knowledge"
)

func (h *Handler) list(w http.ResponseWriter, n int, rows any, important []string) {
	writeJSON(w, http.StatusOK, ListResponse{Count: n, Data: h.Budget.Optimize(rows, important...)})
}

// Outlets handles GET /api/knowledge/outlets
func (h *Handler) Outlets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	outlets := h.Knowledge.Outlets(knowledge.OutletFilter{City: q.Get("location"), ID: q.Get("outlet_id")})
	h.list(w, len(outlets), knowledge.Records(outlets), knowledge.OutletFields)
}

// FAQ handles GET /api/knowledge/faq
func (h *Handler) FAQ(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	faqs := h.Knowledge.FAQs(knowledge.FAQFilter{Query: q.Get("query"), Category: q.Get("category")})
	h.list(w, len(faqs), knowledge.Records(faqs), knowledge.FAQFields)
}

// Menu handles GET /api/knowledge/menu
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := knowledge.MenuFilter{Category: q.Get("category"), Name: q.Get("item_name")}
	if v := q.Get("vegetarian"); v != "" {
		veg, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "vegetarian must be true or false")
			return
		}
		f.Vegetarian = &veg
	}
	items := h.Knowledge.Menu(f)
	h.list(w, len(items), knowledge.Records(items), knowledge.MenuFields)
}

// Query handles POST /api/knowledge/query
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req KnowledgeQueryRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	writeJSON(w, http.StatusOK, ResultResponse{Result: h.Knowledge.Query(req.Query).Payload(h.Budget)})
}
