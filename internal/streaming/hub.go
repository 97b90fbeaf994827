package streaming

import "context"

// Event types published by the trace pipeline.
const (
	EventSessionCreated = "session.created"
	EventSessionDeleted = "session.deleted"
	EventStepsAppended  = "steps.appended"
	EventLayoutUpdated  = "layout.updated"
)

// TraceEvent is a real-time event emitted as trace data changes.
type TraceEvent struct {
	SessionID string `json:"session_id"`
	EventType string `json:"event_type"`
	Sequence  int64  `json:"sequence,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// EventFilter specifies which events a subscriber wants to receive.
type EventFilter struct {
	SessionID  string   `json:"session_id,omitempty"`
	EventTypes []string `json:"event_types,omitempty"`
}

// EventHub provides pub/sub for real-time trace events.
type EventHub interface {
	Publish(ctx context.Context, event TraceEvent) error
	Subscribe(ctx context.Context, filter EventFilter) (<-chan TraceEvent, func(), error)
}
