package session

import (
	"strings"
	"sync"
	"time"

	"github.com/grillbook/grillbook/pkg/dialog"
)

// DefaultMaxHistory is the maximum number of state records before eviction.
const DefaultMaxHistory = 200

// Roles of transcript turns.
const (
	RoleCaller    = "caller"
	RoleAssistant = "assistant"
)

// StateRecord records a state transition for audit purposes.
type StateRecord struct {
	FromState dialog.State `json:"from_state"`
	ToState   dialog.State `json:"to_state"`
	Trigger   string       `json:"trigger"`
	Timestamp time.Time    `json:"timestamp"`
}

// Turn is one utterance in the conversation transcript.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds per-conversation state between turns. All access is
// thread-safe.
type Session struct {
	mu sync.RWMutex

	ID         string         `json:"id"`
	Modality   string         `json:"modality"`
	Phone      string         `json:"phone,omitempty"`
	State      dialog.State   `json:"state"`
	Context    dialog.Context `json:"context"`
	History    []StateRecord  `json:"history,omitempty"`
	Transcript []Turn         `json:"transcript,omitempty"`
	StartTime  time.Time      `json:"start_time"`
	MaxHistory int            `json:"max_history,omitempty"`
}

// New creates a conversation session in the greeting state.
func New(id, modality, phone string) *Session {
	return &Session{
		ID:         id,
		Modality:   modality,
		Phone:      phone,
		State:      dialog.Greeting,
		Context:    dialog.NewContext(),
		StartTime:  time.Now().UTC(),
		MaxHistory: DefaultMaxHistory,
	}
}

// Apply records the outcome of a turn: the new state, the updated context
// and, when the state changed, an audit record.
// Evicts oldest 10% of records when the history cap is reached.
func (s *Session) Apply(t dialog.Transition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Context = t.Context
	s.State = t.To
	if !t.Changed() {
		return
	}

	limit := s.MaxHistory
	if limit <= 0 {
		limit = DefaultMaxHistory
	}
	if len(s.History) >= limit {
		evict := limit / 10
		if evict < 1 {
			evict = 1
		}
		s.History = s.History[evict:]
	}
	s.History = append(s.History, StateRecord{
		FromState: t.From,
		ToState:   t.To,
		Trigger:   t.Trigger,
		Timestamp: time.Now().UTC(),
	})
}

// AddTurn appends an utterance to the transcript.
func (s *Session) AddTurn(role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Transcript = append(s.Transcript, Turn{Role: role, Text: text, Timestamp: time.Now().UTC()})
}

// CurrentState returns the current state.
func (s *Session) CurrentState() dialog.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State
}

// CurrentContext returns a copy of the accumulated context.
func (s *Session) CurrentContext() dialog.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Context.Clone()
}

// CopyHistory returns a snapshot of the state history.
func (s *Session) CopyHistory() []StateRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]StateRecord, len(s.History))
	copy(cp, s.History)
	return cp
}

// TranscriptText renders the transcript as "role: text" lines.
func (s *Session) TranscriptText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var b strings.Builder
	for i, t := range s.Transcript {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(t.Role)
		b.WriteString(": ")
		b.WriteString(t.Text)
	}
	return b.String()
}
