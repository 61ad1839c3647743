package agent

import (
	"context"
	"log/slog"
)

type EventType string

const (
	EventToken      EventType = "token"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

type Runner interface {
	Run(ctx context.Context, contextID string, message string, emit func(Event)) error
}

// Observer receives every event an agent produces, independent of the
// per-run emit callback.
type Observer interface {
	OnEvent(ctx context.Context, ev Event)
}

// NopObserver discards events.
type NopObserver struct{}

func (NopObserver) OnEvent(context.Context, Event) {}

// LogObserver writes events to slog at debug level.
type LogObserver struct{}

func (LogObserver) OnEvent(ctx context.Context, ev Event) {
	slog.DebugContext(ctx, "agent event",
		"context_id", ContextIDFromContext(ctx),
		"type", ev.Type,
		"data", ev.Data,
	)
}
