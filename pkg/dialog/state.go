package dialog

import "fmt"

// State is one node of the conversation graph.
type State uint8

const (
	Greeting State = iota
	FAQEnquiry
	BookingEnquiry
	BookingConfirmation
	BookingSuccessful
	BookingModification
	BookingUpdateConfirmation
	BookingUpdateSuccessful
	CancellationConfirmation
	CancellationSuccessful
	Goodbye

	stateCount
)

var stateNames = [stateCount]string{
	Greeting:                  "greeting",
	FAQEnquiry:                "faq_enquiry",
	BookingEnquiry:            "booking_enquiry",
	BookingConfirmation:       "booking_confirmation",
	BookingSuccessful:         "booking_successful",
	BookingModification:       "booking_modification",
	BookingUpdateConfirmation: "booking_update_confirmation",
	BookingUpdateSuccessful:   "booking_update_successful",
	CancellationConfirmation:  "cancellation_confirmation",
	CancellationSuccessful:    "cancellation_successful",
	Goodbye:                   "goodbye",
}

var statesByName = func() map[string]State {
	m := make(map[string]State, stateCount)
	for i, name := range stateNames {
		m[name] = State(i)
	}
	return m
}()

// ParseState resolves a state name. Names are matched exactly.
func ParseState(name string) (State, bool) {
	s, ok := statesByName[name]
	return s, ok
}

// States returns every state in declaration order.
func States() []State {
	out := make([]State, 0, stateCount)
	for s := State(0); s < stateCount; s++ {
		out = append(out, s)
	}
	return out
}

// Valid reports whether s is a declared state.
func (s State) Valid() bool {
	return s < stateCount
}

func (s State) String() string {
	if s.Valid() {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

func (s State) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid state %d", uint8(s))
	}
	return []byte(stateNames[s]), nil
}

func (s *State) UnmarshalText(text []byte) error {
	parsed, ok := ParseState(string(text))
	if !ok {
		return fmt.Errorf("unknown state %q", string(text))
	}
	*s = parsed
	return nil
}
