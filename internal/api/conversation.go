package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/grillbook/grillbook/pkg/dialog"
	"github.com/grillbook/grillbook/pkg/voiceagent"
)

func (h *Handler) prompt(r *http.Request, s dialog.State, c dialog.Context) string {
	text, err := h.Engine.RenderPrompt(s, c)
	if err != nil {
		slog.WarnContext(r.Context(), "prompt render failed, using raw template",
			slog.String("state", s.String()), slog.String("error", err.Error()))
		text = h.Engine.Graph().Prompt(s)
	}
	return h.Budget.Truncate(text)
}

// StatePrompt handles POST /api/conversation/state-prompt
func (h *Handler) StatePrompt(w http.ResponseWriter, r *http.Request) {
	var req StatePromptRequest
	if !decode(w, r, &req) {
		return
	}
	s := h.Engine.Resolve(r.Context(), req.State)
	writeJSON(w, http.StatusOK, StatePromptResponse{State: s, Prompt: h.prompt(r, s, req.Context)})
}

// Transition handles POST /api/conversation/transition
func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.State == "" {
		req.State = dialog.Greeting.String()
	}
	next, ctx := h.Engine.NextState(r.Context(), req.State, req.UserInput, req.Context)
	writeJSON(w, http.StatusOK, TransitionResponse{
		PreviousState: req.State,
		NextState:     next,
		Context:       ctx,
		Prompt:        h.prompt(r, next, ctx),
	})
}

// FunctionCall handles POST /api/conversation/function-call. Function
// failures are answered with 200 and a message for the caller.
func (h *Handler) FunctionCall(w http.ResponseWriter, r *http.Request) {
	var call voiceagent.Call
	if !decode(w, r, &call) {
		return
	}
	reply, err := h.Dispatcher.Dispatch(r.Context(), call)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ResultResponse{Result: reply})
}

func (h *Handler) agentError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *voiceagent.APIError
	if errors.As(err, &apiErr) {
		slog.WarnContext(r.Context(), "voice platform rejected request",
			slog.Int("status", apiErr.StatusCode), slog.String("body", apiErr.Body))
		writeError(w, http.StatusBadGateway, apiErr.Error())
		return
	}
	writeServiceError(w, r, err)
}

// CreateAgent handles POST /api/conversation/agents. Without an API key
// the agent is described but not created.
func (h *Handler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var req CreateAgentRequest
	if !decode(w, r, &req) {
		return
	}
	initial := h.Engine.Resolve(r.Context(), req.InitialState)
	cfg := voiceagent.NewAgentConfig(req.AgentName, initial.String(),
		h.prompt(r, initial, dialog.NewContext()), h.WebhookURL)

	if !h.Agents.Configured() {
		writeJSON(w, http.StatusOK, AgentResponse{
			Status:  "warning",
			Message: "voice platform API key not configured",
			Agent:   cfg,
		})
		return
	}
	agent, err := h.Agents.CreateAgent(r.Context(), cfg)
	if err != nil {
		h.agentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, AgentResponse{Status: "success", Message: "agent created", Agent: agent.Raw})
}

// UpdateAgent handles PUT /api/conversation/agents/{id}
func (h *Handler) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req UpdateAgentRequest
	if !decode(w, r, &req) {
		return
	}
	u := voiceagent.AgentUpdate{
		Name:         req.AgentName,
		LLMModel:     req.LLMModel,
		VoiceID:      req.VoiceID,
		InitialState: req.InitialState,
	}
	if req.InitialState != nil {
		s := h.Engine.Resolve(r.Context(), *req.InitialState)
		name, prompt := s.String(), h.prompt(r, s, dialog.NewContext())
		u.InitialState, u.Prompt = &name, &prompt
	}

	if !h.Agents.Configured() {
		writeJSON(w, http.StatusOK, AgentResponse{
			Status:  "warning",
			Message: "voice platform API key not configured",
			Agent:   map[string]any{"agent_id": id, "update": u},
		})
		return
	}
	agent, err := h.Agents.UpdateAgent(r.Context(), id, u)
	if err != nil {
		h.agentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AgentResponse{Status: "success", Message: "agent updated", Agent: agent.Raw})
}
