package api

import (
	"github.com/grillbook/grillbook/pkg/booking"
	"github.com/grillbook/grillbook/pkg/dialog"
)

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatePromptRequest is the body of POST /api/conversation/state-prompt.
type StatePromptRequest struct {
	State   string         `json:"state"`
	Context dialog.Context `json:"context"`
}

type StatePromptResponse struct {
	State  dialog.State `json:"state"`
	Prompt string       `json:"prompt"`
}

// TransitionRequest is the body of POST /api/conversation/transition.
type TransitionRequest struct {
	State     string         `json:"state"`
	UserInput string         `json:"user_input"`
	Context   dialog.Context `json:"context"`
}

type TransitionResponse struct {
	PreviousState string         `json:"previous_state"`
	NextState     dialog.State   `json:"next_state"`
	Context       dialog.Context `json:"context"`
	Prompt        string         `json:"prompt"`
}

// CreateAgentRequest is the body of POST /api/conversation/agents.
type CreateAgentRequest struct {
	AgentName    string `json:"agent_name,omitempty"`
	InitialState string `json:"initial_state,omitempty"`
}

// UpdateAgentRequest is the body of PUT /api/conversation/agents/{id}.
type UpdateAgentRequest struct {
	AgentName    *string `json:"agent_name,omitempty"`
	LLMModel     *string `json:"llm_model,omitempty"`
	VoiceID      *string `json:"voice_id,omitempty"`
	InitialState *string `json:"initial_state,omitempty"`
}

type AgentResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Agent   any    `json:"agent"`
}

// KnowledgeQueryRequest is the body of POST /api/knowledge/query.
type KnowledgeQueryRequest struct {
	Query string `json:"query"`
	Type  string `json:"type,omitempty"`
}

type ResultResponse struct {
	Result any `json:"result"`
}

type ListResponse struct {
	Count int `json:"count"`
	Data  any `json:"data"`
}

// UpdateBookingRequest is the body of PATCH /api/bookings/{id}. Absent
// fields are left unchanged.
type UpdateBookingRequest struct {
	OutletID        *string `json:"outlet_id,omitempty"`
	Date            *string `json:"date,omitempty"`
	Time            *string `json:"time,omitempty"`
	Guests          *int    `json:"guests,omitempty"`
	CustomerName    *string `json:"customer_name,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	SpecialRequests *string `json:"special_requests,omitempty"`
}

func (r UpdateBookingRequest) toUpdate() booking.Update {
	return booking.Update{
		OutletID:        r.OutletID,
		Date:            r.Date,
		Time:            r.Time,
		Guests:          r.Guests,
		CustomerName:    r.CustomerName,
		Phone:           r.Phone,
		SpecialRequests: r.SpecialRequests,
	}
}

// CancelBookingRequest is the body of POST /api/bookings/cancel.
type CancelBookingRequest struct {
	BookingID string `json:"booking_id,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type BookingResponse struct {
	Message       string   `json:"message,omitempty"`
	Booking       any      `json:"booking"`
	UpdatedFields []string `json:"updated_fields,omitempty"`
}

// AnalyzeRequest is the body of POST /api/logs/analyze.
type AnalyzeRequest struct {
	Conversation string `json:"conversation"`
}
