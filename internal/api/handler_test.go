package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/grillbook/grillbook/pkg/booking"
	"github.com/grillbook/grillbook/pkg/budget"
	"github.com/grillbook/grillbook/pkg/calllog"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	h := NewHandler(Deps{
		Budget:   budget.New(nil, 800),
		Bookings: booking.NewService(booking.NewMemoryStore(), nil, nil),
		Logs:     calllog.NewRecorder(nil, nil, calllog.NewFileFallback(t.TempDir()), nil),
	})
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func setupAPITestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newTestMux(t))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode response: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func TestTransition(t *testing.T) {
	srv := setupAPITestServer(t)

	status, body := do(t, srv, http.MethodPost, "/api/conversation/transition",
		`{"state":"greeting","user_input":"I want to book a table","context":{"customer_name":"Asha"}}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %v", status, body)
	}
	if body["next_state"] != "booking_enquiry" {
		t.Errorf("next_state = %v", body["next_state"])
	}
	ctx, _ := body["context"].(map[string]any)
	if ctx["customer_name"] != "Asha" {
		t.Errorf("context lost a slot: %v", ctx)
	}
	if p, _ := body["prompt"].(string); p == "" {
		t.Error("empty prompt")
	}
}

func TestStatePromptUnknownState(t *testing.T) {
	srv := setupAPITestServer(t)
	status, body := do(t, srv, http.MethodPost, "/api/conversation/state-prompt", `{"state":"bogus"}`)
	if status != http.StatusOK || body["state"] != "greeting" {
		t.Errorf("status %d, body %v", status, body)
	}
}

func TestFunctionCall(t *testing.T) {
	srv := setupAPITestServer(t)

	status, body := do(t, srv, http.MethodPost, "/api/conversation/function-call", `{"name":"cancel_booking","arguments":{}}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	result, _ := body["result"].(map[string]any)
	if result["type"] != "error" {
		t.Errorf("result = %v", result)
	}

	status, _ = do(t, srv, http.MethodPost, "/api/conversation/function-call", `{"arguments":{}}`)
	if status != http.StatusBadRequest {
		t.Errorf("missing name status = %d, want 400", status)
	}
}

func TestCreateAgentWithoutKey(t *testing.T) {
	srv := setupAPITestServer(t)
	status, body := do(t, srv, http.MethodPost, "/api/conversation/agents", `{"agent_name":"Test"}`)
	if status != http.StatusOK || body["status"] != "warning" {
		t.Fatalf("status %d, body %v", status, body)
	}
	agent, _ := body["agent"].(map[string]any)
	if agent["name"] != "Test" {
		t.Errorf("agent = %v", agent)
	}
	if tools, _ := agent["general_tools"].([]any); len(tools) != 4 {
		t.Errorf("tools = %d, want 4", len(tools))
	}
}

func TestKnowledgeEndpoints(t *testing.T) {
	srv := setupAPITestServer(t)

	tests := []struct {
		name      string
		method    string
		path      string
		body      string
		wantCode  int
		wantCount float64
	}{
		{name: "outlets by city", method: http.MethodGet, path: "/api/knowledge/outlets?location=bangalore", wantCode: 200, wantCount: 3},
		{name: "outlet by id", method: http.MethodGet, path: "/api/knowledge/outlets?outlet_id=BBQD001", wantCode: 200, wantCount: 1},
		{name: "vegetarian desserts", method: http.MethodGet, path: "/api/knowledge/menu?category=desserts&vegetarian=true", wantCode: 200, wantCount: 3},
		{name: "bad vegetarian flag", method: http.MethodGet, path: "/api/knowledge/menu?vegetarian=maybe", wantCode: 400},
		{name: "empty query", method: http.MethodPost, path: "/api/knowledge/query", body: `{"query":" "}`, wantCode: 400},
		{name: "malformed body", method: http.MethodPost, path: "/api/knowledge/query", body: `{`, wantCode: 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, srv, tt.method, tt.path, tt.body)
			if status != tt.wantCode {
				t.Fatalf("status = %d, want %d, body %v", status, tt.wantCode, body)
			}
			if tt.wantCode == 200 && body["count"] != tt.wantCount {
				t.Errorf("count = %v, want %v", body["count"], tt.wantCount)
			}
			if tt.wantCode != 200 && body["error"] == nil {
				t.Errorf("error body = %v", body)
			}
		})
	}

	status, body := do(t, srv, http.MethodPost, "/api/knowledge/query", `{"query":"what is on the menu for desserts"}`)
	if status != 200 {
		t.Fatalf("query status = %d", status)
	}
	result, _ := body["result"].(map[string]any)
	if result["type"] != "menu" {
		t.Errorf("result = %v", result)
	}
}

func TestBookingEndpoints(t *testing.T) {
	srv := setupAPITestServer(t)

	status, body := do(t, srv, http.MethodPost, "/api/bookings",
		`{"outlet_id":"BBQB001","date":"2025-12-31","time":"20:00","guests":4,"customer_name":"Ravi","phone":"9876543210"}`)
	if status != http.StatusCreated {
		t.Fatalf("create status = %d, body %v", status, body)
	}
	created, _ := body["booking"].(map[string]any)
	id, _ := created["booking_id"].(string)
	if !strings.HasPrefix(id, "BBQ-") {
		t.Fatalf("booking_id = %q", id)
	}

	status, body = do(t, srv, http.MethodPatch, "/api/bookings/"+id, `{"guests":6}`)
	if status != http.StatusOK {
		t.Fatalf("update status = %d, body %v", status, body)
	}
	if fields, _ := body["updated_fields"].([]any); len(fields) != 1 || fields[0] != "guest count" {
		t.Errorf("updated_fields = %v", body["updated_fields"])
	}

	status, body = do(t, srv, http.MethodGet, "/api/bookings?phone=9876543210", "")
	found, _ := body["booking"].(map[string]any)
	if status != http.StatusOK || found["guests"] != float64(6) {
		t.Errorf("find status %d, body %v", status, body)
	}

	status, body = do(t, srv, http.MethodPost, "/api/bookings/cancel", `{"booking_id":"`+id+`"}`)
	cancelled, _ := body["booking"].(map[string]any)
	if status != http.StatusOK || cancelled["status"] != "cancelled" {
		t.Errorf("cancel status %d, body %v", status, body)
	}

	errorCases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"create missing fields", http.MethodPost, "/api/bookings", `{"outlet_id":"BBQB001"}`, 400},
		{"find without keys", http.MethodGet, "/api/bookings", "", 400},
		{"find unknown", http.MethodGet, "/api/bookings?booking_id=BBQ-00000000", "", 404},
		{"update unknown", http.MethodPatch, "/api/bookings/BBQ-00000000", `{"guests":2}`, 404},
		{"update bad time", http.MethodPatch, "/api/bookings/" + id, `{"time":"late"}`, 400},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, srv, tt.method, tt.path, tt.body)
			if status != tt.want {
				t.Errorf("status = %d, want %d, body %v", status, tt.want, body)
			}
		})
	}
}

func TestLogEndpoints(t *testing.T) {
	srv := setupAPITestServer(t)

	status, body := do(t, srv, http.MethodPost, "/api/logs",
		`{"modality":"chat","phone_number":"9876543210","conversation":"I want to book a table for 2 at Koramangala"}`)
	if status != http.StatusCreated {
		t.Fatalf("status = %d, body %v", status, body)
	}
	if body["status"] != calllog.StatusWarning || body["sink"] != calllog.SinkFile {
		t.Errorf("body = %v", body)
	}

	status, _ = do(t, srv, http.MethodPost, "/api/logs", `{"phone_number":"123","conversation":"hi"}`)
	if status != http.StatusBadRequest {
		t.Errorf("invalid phone status = %d, want 400", status)
	}

	status, _ = do(t, srv, http.MethodGet, "/api/logs?phone=9876543210", "")
	if status != http.StatusServiceUnavailable {
		t.Errorf("history without database status = %d, want 503", status)
	}
	status, _ = do(t, srv, http.MethodGet, "/api/logs?phone=abc", "")
	if status != http.StatusBadRequest {
		t.Errorf("history with bad phone status = %d, want 400", status)
	}

	status, body = do(t, srv, http.MethodPost, "/api/logs/analyze",
		`{"conversation":"I would like to book a table at Barbeque Nation Indiranagar"}`)
	if status != http.StatusOK {
		t.Fatalf("analyze status = %d", status)
	}
	if body["outlet_name"] != "Barbeque Nation Indiranagar" {
		t.Errorf("outlet_name = %v", body["outlet_name"])
	}
	if body["call_outcome"] == nil || body["call_summary"] == nil {
		t.Errorf("analysis = %v", body)
	}
}

func TestRequestBodyLimit(t *testing.T) {
	big := `{"query":"` + strings.Repeat("a", maxRequestBodySize) + `"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/knowledge/query", bytes.NewReader([]byte(big)))
	newTestMux(t).ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestMissingServicesAnswerUnavailable(t *testing.T) {
	h := NewHandler(Deps{Budget: budget.New(nil, 800)})
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	tests := []struct {
		name, method, path, body string
		want                     int
	}{
		{"create booking", http.MethodPost, "/api/bookings", `{"outlet_id":"BBQB001"}`, http.StatusServiceUnavailable},
		{"find booking", http.MethodGet, "/api/bookings?booking_id=BBQ-1", "", http.StatusServiceUnavailable},
		{"cancel booking", http.MethodPost, "/api/bookings/cancel", `{"booking_id":"BBQ-1"}`, http.StatusServiceUnavailable},
		{"record log", http.MethodPost, "/api/logs", `{"phone_number":"9876543210","conversation":"hi"}`, http.StatusServiceUnavailable},
		{"booking function call", http.MethodPost, "/api/conversation/function-call", `{"name":"create_booking","arguments":{}}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}
