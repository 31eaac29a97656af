package events

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of event flowing through the system.
type EventType string

const (
	ConversationStarted    EventType = "conversation.started"
	ConversationTransition EventType = "conversation.transition"
	ConversationEnded      EventType = "conversation.ended"
	BookingCreated         EventType = "booking.created"
	BookingUpdated         EventType = "booking.updated"
	BookingCancelled       EventType = "booking.cancelled"
	CallLogRecorded        EventType = "calllog.recorded"
	SystemError            EventType = "error"
)

// Envelope is the standard event wrapper published to the event bus.
type Envelope struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Source    string            `json:"source"`
	SessionID string            `json:"session_id"`
	Timestamp time.Time         `json:"timestamp"`
	Data      json.RawMessage   `json:"data"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// ConversationStartedData is the payload for conversation.started events.
type ConversationStartedData struct {
	Modality string `json:"modality"` // "call" or "chat"
	Phone    string `json:"phone,omitempty"`
}

// TransitionData is the payload for conversation.transition events.
type TransitionData struct {
	FromState string `json:"from_state"`
	ToState   string `json:"to_state"`
	Trigger   string `json:"trigger,omitempty"`
}

// ConversationEndedData is the payload for conversation.ended events. It
// carries everything the call log needs.
type ConversationEndedData struct {
	Modality   string            `json:"modality"`
	Phone      string            `json:"phone,omitempty"`
	FinalState string            `json:"final_state"`
	Context    map[string]string `json:"context,omitempty"`
	Transcript string            `json:"transcript"`
	DurationMs int64             `json:"duration_ms"`
}

// BookingData is the payload for booking.* events.
type BookingData struct {
	BookingID     string   `json:"booking_id"`
	OutletID      string   `json:"outlet_id"`
	Status        string   `json:"status"`
	UpdatedFields []string `json:"updated_fields,omitempty"`
}

// CallLogRecordedData is the payload for calllog.recorded events.
type CallLogRecordedData struct {
	Status  string `json:"status"`
	Sink    string `json:"sink"`
	Outcome string `json:"outcome"`
}

// ErrorData is the payload for error events.
type ErrorData struct {
	Operation string `json:"operation"`
	Error     string `json:"error"`
}
