package store

import (
	"encoding/json"
	"time"

	"github.com/rendis/traceviz/pkg/schema"
)

// Session groups the steps of one agent run under a stable identifier.
type Session struct {
	ID         string              `json:"id"`
	Name       string              `json:"name,omitempty"`
	AgentNames schema.AgentNameMap `json:"agent_names,omitempty"`
	StepCount  int64               `json:"step_count"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// StepRecord is an immutable entry in a session's append-only step log.
// Payload holds the full step JSON as received; step_id and step_type are
// denormalized for filtering without payload parsing.
type StepRecord struct {
	ID         int64           `json:"id"`
	SessionID  string          `json:"session_id"`
	StepID     string          `json:"step_id"`
	Type       schema.StepType `json:"step_type"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
	Sequence   int64           `json:"sequence"`
}

// SessionFilter specifies criteria for listing sessions.
type SessionFilter struct {
	Since  *time.Time `json:"since,omitempty"`
	Limit  int        `json:"limit,omitempty"`
	Offset int        `json:"offset,omitempty"`
}

// SessionUpdate specifies mutable fields of a session.
type SessionUpdate struct {
	Name       *string             `json:"name,omitempty"`
	AgentNames schema.AgentNameMap `json:"agent_names,omitempty"`
}

// StepFilter specifies criteria for listing step records.
type StepFilter struct {
	StepType string `json:"step_type,omitempty"`
	Since    int64  `json:"since,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}
