package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rendis/traceviz/pkg/schema"
)

// TraceLog provides ordered trace reconstruction on top of a LibSQLStore.
type TraceLog struct {
	store *LibSQLStore
}

// NewTraceLog wraps a LibSQLStore to provide trace reconstruction.
func NewTraceLog(s *LibSQLStore) *TraceLog {
	return &TraceLog{store: s}
}

// LoadTrace replays a session's step log in sequence order and decodes it back
// into the flat step list the compiler consumes.
// Returns an error if sequence gaps are detected.
func (tl *TraceLog) LoadTrace(ctx context.Context, sessionID string) ([]schema.VisualizerStep, error) {
	records, err := tl.store.GetSteps(ctx, sessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("get steps for trace: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Validate sequence contiguity.
	for i, r := range records {
		expected := int64(i + 1)
		if r.Sequence != expected {
			return nil, schema.NewErrorf(schema.ErrCodeStore,
				"sequence gap in session %s: expected %d, got %d", sessionID, expected, r.Sequence)
		}
	}

	steps := make([]schema.VisualizerStep, 0, len(records))
	for _, r := range records {
		var step schema.VisualizerStep
		if err := json.Unmarshal(r.Payload, &step); err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeStore,
				"corrupt step payload in session %s at sequence %d", sessionID, r.Sequence).WithCause(err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// LoadTraceSince returns decoded steps with sequence > since, without the
// contiguity check. Used for incremental reads by streaming clients.
func (tl *TraceLog) LoadTraceSince(ctx context.Context, sessionID string, since int64) ([]schema.VisualizerStep, int64, error) {
	records, err := tl.store.GetSteps(ctx, sessionID, since)
	if err != nil {
		return nil, since, fmt.Errorf("get steps: %w", err)
	}

	steps := make([]schema.VisualizerStep, 0, len(records))
	last := since
	for _, r := range records {
		var step schema.VisualizerStep
		if err := json.Unmarshal(r.Payload, &step); err != nil {
			return nil, last, schema.NewErrorf(schema.ErrCodeStore,
				"corrupt step payload in session %s at sequence %d", sessionID, r.Sequence).WithCause(err)
		}
		steps = append(steps, step)
		last = r.Sequence
	}
	return steps, last, nil
}
