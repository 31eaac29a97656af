package calllog

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pitabwire/frame/workerpool"
	"github.com/pitabwire/util"

	"github.com/grillbook/grillbook/pkg/events"
)

// Subscriber implements queue.SubscribeWorker and turns conversation.ended
// events into call-log entries.
type Subscriber struct {
	Recorder *Recorder
	Pool     workerpool.WorkerPool
}

// Handle is called by frame's pub/sub for each event message.
func (s *Subscriber) Handle(ctx context.Context, _ map[string]string, message []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		util.Log(ctx).WithError(err).Error("call log subscriber: unmarshal envelope")
		return err
	}
	if env.Type != events.ConversationEnded {
		return nil
	}

	var ended events.ConversationEndedData
	if err := env.Decode(&ended); err != nil {
		util.Log(ctx).WithError(err).Error("call log subscriber: decode payload")
		return err
	}

	req := RequestFromEnded(ended)
	if _, err := s.Recorder.NewEntry(req); err != nil {
		// Nothing to log for anonymous chats; redelivery would not help.
		slog.InfoContext(ctx, "conversation not logged",
			slog.String("session_id", env.SessionID), slog.String("reason", err.Error()))
		return nil
	}

	record := func() {
		if _, err := s.Recorder.Record(ctx, req); err != nil {
			util.Log(ctx).WithError(err).Error("call log subscriber: record")
		}
	}
	if s.Pool == nil {
		record()
		return nil
	}
	if err := s.Pool.Submit(ctx, record); err != nil {
		slog.WarnContext(ctx, "call log pool full, recording inline",
			slog.String("session_id", env.SessionID))
		record()
	}
	return nil
}
