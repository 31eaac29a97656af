package dialog

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
)

// Transition is the result of evaluating one user turn.
type Transition struct {
	From    State
	To      State
	Trigger string // matched keyword or synthetic trigger, empty when no rule fired
	Context Context
}

// Changed reports whether the turn moved the conversation to another state.
func (t Transition) Changed() bool {
	return t.From != t.To
}

// Engine evaluates turns against the current graph. It holds no
// per-conversation data and is safe for concurrent use.
type Engine struct {
	graph atomic.Pointer[Graph]
}

// NewEngine creates an engine over g. A nil graph selects DefaultGraph.
func NewEngine(g *Graph) *Engine {
	if g == nil {
		g = DefaultGraph()
	}
	e := &Engine{}
	e.graph.Store(g)
	return e
}

// Graph returns the graph currently in use.
func (e *Engine) Graph() *Graph {
	return e.graph.Load()
}

// SetGraph replaces the graph. Turns already in flight finish on the old one.
func (e *Engine) SetGraph(g *Graph) {
	if g != nil {
		e.graph.Store(g)
	}
}

// Resolve maps a state name to a state, falling back to Greeting with a
// warning when the name is unknown.
func (e *Engine) Resolve(ctx context.Context, name string) State {
	s, ok := ParseState(name)
	if !ok {
		slog.WarnContext(ctx, "unknown dialog state, using greeting", slog.String("state", name))
		return Greeting
	}
	return s
}

// StatePrompt returns the raw prompt template for the named state.
func (e *Engine) StatePrompt(ctx context.Context, name string) string {
	return e.Graph().Prompt(e.Resolve(ctx, name))
}

// RenderPrompt fills the state's prompt from the context.
func (e *Engine) RenderPrompt(s State, c Context) (string, error) {
	g := e.Graph()
	if !s.Valid() {
		s = Greeting
	}
	return executePrompt(g.nodes[s].tmpl, c)
}

// NextState evaluates one turn from the named state. Unknown states reset to
// Greeting and the context is returned as given.
func (e *Engine) NextState(ctx context.Context, current, input string, c Context) (State, Context) {
	s, ok := ParseState(current)
	if !ok {
		slog.WarnContext(ctx, "unknown current state, resetting to greeting", slog.String("state", current))
		return Greeting, c
	}
	t := e.Step(s, input, c)
	return t.To, t.Context
}

// Step evaluates one turn from a known state.
//
// Structural conditions are checked first, then keyword rules in
// declaration order, trigger order within a rule. Slot extraction for the
// resulting edge runs whether or not the state changes.
func (e *Engine) Step(current State, input string, c Context) Transition {
	if !current.Valid() {
		return Transition{From: current, To: Greeting, Context: c}
	}
	g := e.Graph()

	if trigger, ok := structuralTrigger(current, c); ok {
		if target, found := g.targetFor(current, trigger); found {
			return Transition{
				From:    current,
				To:      target,
				Trigger: trigger,
				Context: updateContext(current, target, input, c),
			}
		}
	}

	lower := strings.ToLower(input)
	for _, r := range g.nodes[current].rules {
		for _, kw := range r.Triggers {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return Transition{
					From:    current,
					To:      r.Target,
					Trigger: kw,
					Context: updateContext(current, r.Target, input, c),
				}
			}
		}
	}

	return Transition{
		From:    current,
		To:      current,
		Context: updateContext(current, current, input, c),
	}
}

func structuralTrigger(s State, c Context) (string, bool) {
	switch s {
	case BookingEnquiry:
		for _, slot := range requiredBookingSlots {
			if !c.Filled(slot) {
				return "", false
			}
		}
		return TriggerAllDetailsCollected, true

	case BookingModification:
		if !c.Has(SlotBookingID) || !c.Has(SlotModificationType) {
			return "", false
		}
		if c.Value(SlotModificationType) == ModificationCancel {
			return TriggerCancellation, true
		}
		for _, slot := range []Slot{
			SlotNewBookingDate, SlotNewBookingTime, SlotNewGuests,
			SlotNewOutlet, SlotNewCustomerName, SlotNewPhone,
		} {
			if c.Has(slot) {
				return TriggerModificationDetailsCollected, true
			}
		}
	}
	return "", false
}
