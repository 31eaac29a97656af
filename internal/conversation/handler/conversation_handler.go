package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/xid"

	"github.com/grillbook/grillbook/internal/session"
	"github.com/grillbook/grillbook/pkg/budget"
	"github.com/grillbook/grillbook/pkg/dialog"
	"github.com/grillbook/grillbook/pkg/events"
	"github.com/grillbook/grillbook/pkg/metrics"
)

// ServiceName is the fully-qualified Connect service name.
const ServiceName = "grillbook.conversation.v1.ConversationService"

// Procedure paths.
const (
	StartConversationProcedure = "/" + ServiceName + "/StartConversation"
	ConverseProcedure          = "/" + ServiceName + "/Converse"
	EndConversationProcedure   = "/" + ServiceName + "/EndConversation"
	GetStatePromptProcedure    = "/" + ServiceName + "/GetStatePrompt"
)

// SessionStore persists conversations between turns.
type SessionStore interface {
	Create(ctx context.Context, sess *session.Session) error
	Get(ctx context.Context, id string) (*session.Session, error)
	Save(ctx context.Context, sess *session.Session) error
	Delete(ctx context.Context, id string) error
	ActiveIDs(ctx context.Context) ([]string, error)
}

type StartConversationRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Modality       string `json:"modality,omitempty"`
	Phone          string `json:"phone,omitempty"`
}

type StartConversationResponse struct {
	ConversationID string       `json:"conversation_id"`
	State          dialog.State `json:"state"`
	Prompt         string       `json:"prompt"`
}

type ConverseRequest struct {
	ConversationID string `json:"conversation_id"`
	UserInput      string `json:"user_input"`
}

type ConverseResponse struct {
	ConversationID string         `json:"conversation_id"`
	PreviousState  dialog.State   `json:"previous_state"`
	State          dialog.State   `json:"state"`
	Trigger        string         `json:"trigger,omitempty"`
	Context        dialog.Context `json:"context"`
	Prompt         string         `json:"prompt"`
}

type EndConversationRequest struct {
	ConversationID string `json:"conversation_id"`
}

type EndConversationResponse struct {
	ConversationID string       `json:"conversation_id"`
	FinalState     dialog.State `json:"final_state"`
	Turns          int          `json:"turns"`
	DurationMs     int64        `json:"duration_ms"`
}

type GetStatePromptRequest struct {
	State   string         `json:"state"`
	Context dialog.Context `json:"context"`
}

type GetStatePromptResponse struct {
	State  dialog.State `json:"state"`
	Prompt string       `json:"prompt"`
}

// ConversationHandler serves the conversation service. Conversations live
// in the session store, so any replica can serve any turn.
type ConversationHandler struct {
	engine   *dialog.Engine
	sessions SessionStore
	budget   *budget.Budgeter
	events   events.Emitter
}

// NewConversationHandler creates the handler. A nil emitter discards
// events.
func NewConversationHandler(engine *dialog.Engine, sessions SessionStore, b *budget.Budgeter, emitter events.Emitter) *ConversationHandler {
	if emitter == nil {
		emitter = events.Discard
	}
	if b == nil {
		b = budget.New(nil, 0)
	}
	return &ConversationHandler{engine: engine, sessions: sessions, budget: b, events: emitter}
}

// NewConversationServiceHandler returns the path prefix and handler for
// the service, in the shape of generated Connect constructors.
func NewConversationServiceHandler(h *ConversationHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(StartConversationProcedure, connect.NewUnaryHandler(StartConversationProcedure, h.StartConversation, opts...))
	mux.Handle(ConverseProcedure, connect.NewUnaryHandler(ConverseProcedure, h.Converse, opts...))
	mux.Handle(EndConversationProcedure, connect.NewUnaryHandler(EndConversationProcedure, h.EndConversation, opts...))
	mux.Handle(GetStatePromptProcedure, connect.NewUnaryHandler(GetStatePromptProcedure, h.GetStatePrompt, opts...))
	return "/" + ServiceName + "/", mux
}

// prompt renders the state's prompt and cuts it to the budget. A template
// failure falls back to the raw prompt text.
func (h *ConversationHandler) prompt(ctx context.Context, s dialog.State, c dialog.Context) string {
	text, err := h.engine.RenderPrompt(s, c)
	if err != nil {
		slog.WarnContext(ctx, "prompt render failed, using raw template",
			slog.String("state", s.String()), slog.String("error", err.Error()))
		text = h.engine.Graph().Prompt(s)
	}
	return h.budget.Truncate(text)
}

func (h *ConversationHandler) load(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("conversation_id is required"))
	}
	sess, err := h.sessions.Get(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("conversation %q not found", id))
	}
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	return sess, nil
}

// refreshActive sets the active-sessions gauge from the store, so sessions
// that expired without being ended drop out.
func (h *ConversationHandler) refreshActive(ctx context.Context) {
	ids, err := h.sessions.ActiveIDs(ctx)
	if err != nil {
		slog.WarnContext(ctx, "active sessions not counted", slog.String("error", err.Error()))
		return
	}
	metrics.ActiveSessions.Set(float64(len(ids)))
}

// ReportActiveSessions refreshes the active-sessions gauge every interval
// until ctx is done.
func (h *ConversationHandler) ReportActiveSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		h.refreshActive(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *ConversationHandler) emit(ctx context.Context, et events.EventType, id string, data any) {
	if err := h.events.Emit(ctx, et, id, data); err != nil {
		slog.WarnContext(ctx, "conversation event not published",
			slog.String("event", string(et)), slog.String("conversation_id", id), slog.String("error", err.Error()))
	}
}

func (h *ConversationHandler) StartConversation(ctx context.Context, req *connect.Request[StartConversationRequest]) (*connect.Response[StartConversationResponse], error) {
	id := req.Msg.ConversationID
	if id == "" {
		id = xid.New().String()
	}
	modality := strings.ToLower(req.Msg.Modality)
	switch modality {
	case "":
		modality = "chat"
	case "call", "chat":
	default:
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("modality %q must be call or chat", req.Msg.Modality))
	}

	sess := session.New(id, modality, req.Msg.Phone)
	prompt := h.prompt(ctx, sess.State, sess.Context)
	sess.AddTurn(session.RoleAssistant, prompt)
	if err := h.sessions.Create(ctx, sess); err != nil {
		if errors.Is(err, session.ErrExists) {
			return nil, connect.NewError(connect.CodeAlreadyExists, fmt.Errorf("conversation %q is already active", id))
		}
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}

	h.refreshActive(ctx)
	h.emit(ctx, events.ConversationStarted, id, events.ConversationStartedData{Modality: modality, Phone: req.Msg.Phone})

	return connect.NewResponse(&StartConversationResponse{
		ConversationID: id,
		State:          sess.State,
		Prompt:         prompt,
	}), nil
}

func (h *ConversationHandler) Converse(ctx context.Context, req *connect.Request[ConverseRequest]) (*connect.Response[ConverseResponse], error) {
	sess, err := h.load(ctx, req.Msg.ConversationID)
	if err != nil {
		return nil, err
	}

	sess.AddTurn(session.RoleCaller, req.Msg.UserInput)
	t := h.engine.Step(sess.CurrentState(), req.Msg.UserInput, sess.CurrentContext())
	sess.Apply(t)

	if t.Changed() {
		metrics.TransitionsTotal.WithLabelValues(t.From.String(), t.To.String()).Inc()
		h.emit(ctx, events.ConversationTransition, sess.ID, events.TransitionData{
			FromState: t.From.String(),
			ToState:   t.To.String(),
			Trigger:   t.Trigger,
		})
	}

	prompt := h.prompt(ctx, t.To, t.Context)
	sess.AddTurn(session.RoleAssistant, prompt)
	if err := h.sessions.Save(ctx, sess); err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}

	return connect.NewResponse(&ConverseResponse{
		ConversationID: sess.ID,
		PreviousState:  t.From,
		State:          t.To,
		Trigger:        t.Trigger,
		Context:        t.Context,
		Prompt:         prompt,
	}), nil
}

func (h *ConversationHandler) EndConversation(ctx context.Context, req *connect.Request[EndConversationRequest]) (*connect.Response[EndConversationResponse], error) {
	sess, err := h.load(ctx, req.Msg.ConversationID)
	if err != nil {
		return nil, err
	}
	if err := h.sessions.Delete(ctx, sess.ID); err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	h.refreshActive(ctx)

	duration := time.Since(sess.StartTime)
	final := sess.CurrentState()
	h.emit(ctx, events.ConversationEnded, sess.ID, events.ConversationEndedData{
		Modality:   sess.Modality,
		Phone:      sess.Phone,
		FinalState: final.String(),
		Context:    sess.CurrentContext().Values(),
		Transcript: sess.TranscriptText(),
		DurationMs: duration.Milliseconds(),
	})

	return connect.NewResponse(&EndConversationResponse{
		ConversationID: sess.ID,
		FinalState:     final,
		Turns:          len(sess.Transcript),
		DurationMs:     duration.Milliseconds(),
	}), nil
}

func (h *ConversationHandler) GetStatePrompt(ctx context.Context, req *connect.Request[GetStatePromptRequest]) (*connect.Response[GetStatePromptResponse], error) {
	s := h.engine.Resolve(ctx, req.Msg.State)
	return connect.NewResponse(&GetStatePromptResponse{
		State:  s,
		Prompt: h.prompt(ctx, s, req.Msg.Context),
	}), nil
}
