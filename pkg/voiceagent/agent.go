package voiceagent

import "encoding/json"

// Defaults for a new agent.
const (
	DefaultAgentName = "Barbeque Nation Assistant"
	DefaultLLMModel  = "gpt-3.5-turbo"
	DefaultVoiceID   = "alia"
	DefaultLanguage  = "en-IN"
)

// AgentConfig is the agent definition sent on creation.
type AgentConfig struct {
	Name         string     `json:"name"`
	LLMModel     string     `json:"llm_model"`
	VoiceID      string     `json:"voice_id"`
	Language     string     `json:"language,omitempty"`
	InitialState string     `json:"initial_state"`
	Prompt       string     `json:"general_prompt,omitempty"`
	WebhookURL   string     `json:"webhook_url,omitempty"`
	Functions    []Function `json:"general_tools,omitempty"`
}

// NewAgentConfig fills the defaults and the function definitions.
func NewAgentConfig(name, initialState, prompt, webhookURL string) AgentConfig {
	if name == "" {
		name = DefaultAgentName
	}
	if initialState == "" {
		initialState = "greeting"
	}
	return AgentConfig{
		Name:         name,
		LLMModel:     DefaultLLMModel,
		VoiceID:      DefaultVoiceID,
		Language:     DefaultLanguage,
		InitialState: initialState,
		Prompt:       prompt,
		WebhookURL:   webhookURL,
		Functions:    Functions(),
	}
}

// AgentUpdate holds the fields to change. Nil fields are left as they are.
type AgentUpdate struct {
	Name         *string `json:"name,omitempty"`
	LLMModel     *string `json:"llm_model,omitempty"`
	VoiceID      *string `json:"voice_id,omitempty"`
	InitialState *string `json:"initial_state,omitempty"`
	Prompt       *string `json:"general_prompt,omitempty"`
}

// Agent is the platform's view of an agent. Fields the platform adds are
// kept in Raw.
type Agent struct {
	ID           string          `json:"agent_id"`
	Name         string          `json:"name"`
	InitialState string          `json:"initial_state,omitempty"`
	Raw          json.RawMessage `json:"-"`
}

func (a *Agent) UnmarshalJSON(b []byte) error {
	type plain Agent
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if p.ID == "" {
		var alt struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(b, &alt)
		p.ID = alt.ID
	}
	*a = Agent(p)
	a.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// Function describes a callable tool in JSON schema terms.
type Function struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Function names the platform may call.
const (
	FnQueryKnowledge = "query_knowledge_base"
	FnCreateBooking  = "create_booking"
	FnUpdateBooking  = "update_booking"
	FnCancelBooking  = "cancel_booking"
)

func object(required []string, props map[string]any) map[string]any {
	return map[string]any{"type": "object", "properties": props, "required": required}
}

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

// Functions returns the definitions of every function Dispatch handles.
func Functions() []Function {
	return []Function{
		{
			Type:        "custom",
			Name:        FnQueryKnowledge,
			Description: "Look up outlets, menu items, FAQs or booking help.",
			Parameters: object([]string{"query"}, map[string]any{
				"query": prop("string", "The caller's question"),
				"type":  prop("string", "Optional hint: outlets, menu, faq or general"),
			}),
		},
		{
			Type:        "custom",
			Name:        FnCreateBooking,
			Description: "Reserve a table.",
			Parameters: object([]string{"outlet_id", "date", "time", "guests", "customer_name", "phone"}, map[string]any{
				"outlet_id":     prop("string", "Outlet id or name"),
				"date":          prop("string", "YYYY-MM-DD"),
				"time":          prop("string", "HH:MM, 24 hour"),
				"guests":        prop("integer", "Number of guests"),
				"customer_name": prop("string", "Name for the booking"),
				"phone":         prop("string", "10 digit mobile number"),
			}),
		},
		{
			Type:        "custom",
			Name:        FnUpdateBooking,
			Description: "Change an existing booking.",
			Parameters: object([]string{"booking_id"}, map[string]any{
				"booking_id": prop("string", "Booking reference, e.g. BBQ-1A2B3C4D"),
				"outlet_id":  prop("string", "New outlet id or name"),
				"date":       prop("string", "New date, YYYY-MM-DD"),
				"time":       prop("string", "New time, HH:MM"),
				"guests":     prop("integer", "New number of guests"),
			}),
		},
		{
			Type:        "custom",
			Name:        FnCancelBooking,
			Description: "Cancel a booking.",
			Parameters: object([]string{"booking_id"}, map[string]any{
				"booking_id": prop("string", "Booking reference"),
			}),
		},
	}
}
