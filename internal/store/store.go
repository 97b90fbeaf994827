package store

import (
	"context"
	"time"

	"github.com/rendis/traceviz/pkg/schema"
)

// Store defines the persistence layer contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, sess *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	UpdateSession(ctx context.Context, id string, update SessionUpdate) error
	ListSessions(ctx context.Context, filter SessionFilter) ([]*Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Step log (append-only)
	AppendSteps(ctx context.Context, sessionID string, steps []schema.VisualizerStep) (int64, error)
	GetSteps(ctx context.Context, sessionID string, since int64) ([]*StepRecord, error)
	GetStepsByType(ctx context.Context, sessionID string, filter StepFilter) ([]*StepRecord, error)
	CountSteps(ctx context.Context, sessionID string) (int64, error)

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}
