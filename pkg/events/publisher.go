package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pitabwire/frame/queue"
	"github.com/rs/xid"
)

// Emitter publishes typed events.
type Emitter interface {
	Emit(ctx context.Context, eventType EventType, sessionID string, data any) error
}

// PublishFunc sends an envelope to a queue reference.
type PublishFunc func(ctx context.Context, queueRef string, envelope Envelope) error

// Publisher wraps frame's queue manager to emit typed events.
type Publisher struct {
	publish  PublishFunc
	source   string
	queueRef string
}

// NewPublisher creates a publisher that emits events to the given queue reference.
func NewPublisher(queueMgr queue.Manager, source string, queueRef string) *Publisher {
	return NewPublisherFunc(func(ctx context.Context, ref string, env Envelope) error {
		return queueMgr.Publish(ctx, ref, env)
	}, source, queueRef)
}

// NewPublisherFunc creates a publisher over an arbitrary send function.
func NewPublisherFunc(fn PublishFunc, source string, queueRef string) *Publisher {
	return &Publisher{publish: fn, source: source, queueRef: queueRef}
}

// Emit publishes a typed event to the event bus.
func (p *Publisher) Emit(ctx context.Context, eventType EventType, sessionID string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}

	envelope := Envelope{
		ID:        xid.New().String(),
		Type:      eventType,
		Source:    p.source,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}
	if err := p.publish(ctx, p.queueRef, envelope); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// Discard is an Emitter that drops every event.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(context.Context, EventType, string, any) error { return nil }
