package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"github.com/grillbook/grillbook/internal/connectutil"
	"github.com/grillbook/grillbook/internal/session"
	"github.com/grillbook/grillbook/pkg/budget"
	"github.com/grillbook/grillbook/pkg/dialog"
	"github.com/grillbook/grillbook/pkg/events"
	"github.com/grillbook/grillbook/pkg/metrics"
)

type recordedEvent struct {
	Type events.EventType
	ID   string
	Data any
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) Emit(_ context.Context, et events.EventType, id string, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Type: et, ID: id, Data: data})
	return nil
}

func (r *recorder) ofType(et events.EventType) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, e := range r.events {
		if e.Type == et {
			out = append(out, e)
		}
	}
	return out
}

type clients struct {
	start    *connect.Client[StartConversationRequest, StartConversationResponse]
	converse *connect.Client[ConverseRequest, ConverseResponse]
	end      *connect.Client[EndConversationRequest, EndConversationResponse]
	prompt   *connect.Client[GetStatePromptRequest, GetStatePromptResponse]
}

func setupConversationTestServer(t *testing.T, maxTokens int) (clients, *recorder) {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rec := &recorder{}
	h := NewConversationHandler(dialog.NewEngine(nil), session.NewStore(rdb, time.Minute), budget.New(nil, maxTokens), rec)

	mux := http.NewServeMux()
	path, hdlr := NewConversationServiceHandler(h, connectutil.DefaultOptions()...)
	mux.Handle(path, hdlr)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	opts := connectutil.DefaultClientOptions()
	return clients{
		start:    connect.NewClient[StartConversationRequest, StartConversationResponse](server.Client(), server.URL+StartConversationProcedure, opts...),
		converse: connect.NewClient[ConverseRequest, ConverseResponse](server.Client(), server.URL+ConverseProcedure, opts...),
		end:      connect.NewClient[EndConversationRequest, EndConversationResponse](server.Client(), server.URL+EndConversationProcedure, opts...),
		prompt:   connect.NewClient[GetStatePromptRequest, GetStatePromptResponse](server.Client(), server.URL+GetStatePromptProcedure, opts...),
	}, rec
}

func TestConversationLifecycle(t *testing.T) {
	c, rec := setupConversationTestServer(t, 800)
	ctx := t.Context()

	started, err := c.start.CallUnary(ctx, connect.NewRequest(&StartConversationRequest{
		ConversationID: "conv-1",
		Modality:       "call",
		Phone:          "9876543210",
	}))
	if err != nil {
		t.Fatalf("StartConversation: %v", err)
	}
	if started.Msg.State != dialog.Greeting {
		t.Errorf("state = %v, want greeting", started.Msg.State)
	}
	if !strings.Contains(started.Msg.Prompt, "Barbeque Nation") {
		t.Errorf("prompt = %q", started.Msg.Prompt)
	}

	turn, err := c.converse.CallUnary(ctx, connect.NewRequest(&ConverseRequest{
		ConversationID: "conv-1",
		UserInput:      "I want to book a table",
	}))
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if turn.Msg.PreviousState != dialog.Greeting || turn.Msg.State != dialog.BookingEnquiry {
		t.Errorf("transition %v -> %v, want greeting -> booking_enquiry", turn.Msg.PreviousState, turn.Msg.State)
	}
	if len(rec.ofType(events.ConversationTransition)) != 1 {
		t.Errorf("transition events = %d, want 1", len(rec.ofType(events.ConversationTransition)))
	}

	ended, err := c.end.CallUnary(ctx, connect.NewRequest(&EndConversationRequest{ConversationID: "conv-1"}))
	if err != nil {
		t.Fatalf("EndConversation: %v", err)
	}
	if ended.Msg.FinalState != dialog.BookingEnquiry {
		t.Errorf("final state = %v", ended.Msg.FinalState)
	}
	// greeting prompt, caller turn, reply prompt
	if ended.Msg.Turns != 3 {
		t.Errorf("turns = %d, want 3", ended.Msg.Turns)
	}

	endEvents := rec.ofType(events.ConversationEnded)
	if len(endEvents) != 1 {
		t.Fatalf("ended events = %d, want 1", len(endEvents))
	}
	data := endEvents[0].Data.(events.ConversationEndedData)
	if data.Phone != "9876543210" || data.Modality != "call" {
		t.Errorf("ended data = %+v", data)
	}
	if !strings.Contains(data.Transcript, "caller: I want to book a table") {
		t.Errorf("transcript = %q", data.Transcript)
	}

	_, err = c.converse.CallUnary(ctx, connect.NewRequest(&ConverseRequest{ConversationID: "conv-1", UserInput: "hi"}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("code after end = %v, want not_found", connect.CodeOf(err))
	}
}

func TestStartConversationGeneratesID(t *testing.T) {
	c, _ := setupConversationTestServer(t, 800)
	resp, err := c.start.CallUnary(t.Context(), connect.NewRequest(&StartConversationRequest{}))
	if err != nil {
		t.Fatalf("StartConversation: %v", err)
	}
	if resp.Msg.ConversationID == "" {
		t.Error("expected generated conversation id")
	}
}

func TestConversationErrors(t *testing.T) {
	c, _ := setupConversationTestServer(t, 800)
	ctx := t.Context()

	tests := []struct {
		name string
		call func() error
		want connect.Code
	}{
		{
			name: "bad modality",
			call: func() error {
				_, err := c.start.CallUnary(ctx, connect.NewRequest(&StartConversationRequest{Modality: "fax"}))
				return err
			},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "live id reused",
			call: func() error {
				req := &StartConversationRequest{ConversationID: "conv-dup", Modality: "call"}
				if _, err := c.start.CallUnary(ctx, connect.NewRequest(req)); err != nil {
					return err
				}
				_, err := c.start.CallUnary(ctx, connect.NewRequest(req))
				return err
			},
			want: connect.CodeAlreadyExists,
		},
		{
			name: "missing id",
			call: func() error {
				_, err := c.converse.CallUnary(ctx, connect.NewRequest(&ConverseRequest{UserInput: "hi"}))
				return err
			},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "unknown conversation",
			call: func() error {
				_, err := c.end.CallUnary(ctx, connect.NewRequest(&EndConversationRequest{ConversationID: "nope"}))
				return err
			},
			want: connect.CodeNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := connect.CodeOf(tt.call()); got != tt.want {
				t.Errorf("code = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetStatePrompt(t *testing.T) {
	c, _ := setupConversationTestServer(t, 20)

	resp, err := c.prompt.CallUnary(t.Context(), connect.NewRequest(&GetStatePromptRequest{
		State:   "no_such_state",
		Context: dialog.ContextFromMap(map[string]string{"outlet": "Barbeque Nation Delhi"}),
	}))
	if err != nil {
		t.Fatalf("GetStatePrompt: %v", err)
	}
	if resp.Msg.State != dialog.Greeting {
		t.Errorf("state = %v, want greeting fallback", resp.Msg.State)
	}
	if !strings.HasSuffix(resp.Msg.Prompt, budget.Ellipsis) {
		t.Errorf("prompt not truncated to budget: %q", resp.Msg.Prompt)
	}
}

func TestActiveSessionsFollowStore(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := NewConversationHandler(dialog.NewEngine(nil), session.NewStore(rdb, time.Minute), nil, nil)
	ctx := t.Context()

	for _, id := range []string{"a", "b"} {
		if _, err := h.StartConversation(ctx, connect.NewRequest(&StartConversationRequest{ConversationID: id})); err != nil {
			t.Fatalf("StartConversation(%s): %v", id, err)
		}
	}
	if got := testutil.ToFloat64(metrics.ActiveSessions); got != 2 {
		t.Fatalf("active sessions = %v, want 2", got)
	}

	if _, err := h.EndConversation(ctx, connect.NewRequest(&EndConversationRequest{ConversationID: "a"})); err != nil {
		t.Fatalf("EndConversation: %v", err)
	}
	if got := testutil.ToFloat64(metrics.ActiveSessions); got != 1 {
		t.Fatalf("active sessions after end = %v, want 1", got)
	}

	// "b" expires without being ended.
	mr.FastForward(2 * time.Minute)
	h.refreshActive(ctx)
	if got := testutil.ToFloat64(metrics.ActiveSessions); got != 0 {
		t.Errorf("active sessions after expiry = %v, want 0", got)
	}
}
