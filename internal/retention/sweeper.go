package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/traceviz/internal/store"
	"github.com/rendis/traceviz/internal/streaming"
)

// DefaultSchedule runs the sweep daily at 03:00.
const DefaultSchedule = "0 3 * * *"

// Sweeper periodically deletes sessions that have not been updated within
// the retention window.
type Sweeper struct {
	store    store.Store
	hub      streaming.EventHub
	schedule cron.Schedule
	maxAge   time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
}

// NewSweeper creates a Sweeper that fires on the given cron expression and
// removes sessions older than maxAge. The hub may be nil.
func NewSweeper(s store.Store, hub streaming.EventHub, cronExpr string, maxAge time.Duration, logger *slog.Logger) (*Sweeper, error) {
	if maxAge <= 0 {
		return nil, fmt.Errorf("retention max age must be positive, got %s", maxAge)
	}
	if cronExpr == "" {
		cronExpr = DefaultSchedule
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("parse retention schedule %q: %w", cronExpr, err)
	}
	return &Sweeper{
		store:    s,
		hub:      hub,
		schedule: schedule,
		maxAge:   maxAge,
		logger:   logger,
	}, nil
}

// Start launches the background sweep loop with a 60s ticker.
func (sw *Sweeper) Start(ctx context.Context) error {
	sw.mu.Lock()
	if sw.done != nil {
		sw.mu.Unlock()
		return fmt.Errorf("sweeper already started")
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	sw.cancel = cancel
	sw.done = make(chan struct{})
	sw.mu.Unlock()

	go sw.loop(sweepCtx)
	sw.logger.Info("retention sweeper started",
		slog.Duration("max_age", sw.maxAge))
	return nil
}

func (sw *Sweeper) loop(ctx context.Context) {
	defer close(sw.done)

	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	nextRun := sw.schedule.Next(time.Now().UTC())

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().UTC()
			if now.Before(nextRun) {
				continue
			}
			if _, err := sw.Sweep(ctx); err != nil {
				sw.logger.Error("retention sweep failed", slog.String("error", err.Error()))
			}
			nextRun = sw.schedule.Next(now)
		}
	}
}

// Sweep deletes all sessions outside the retention window and returns how
// many were removed. Each removal is announced on the hub.
func (sw *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-sw.maxAge)
	sessions, err := sw.store.ListSessions(ctx, store.SessionFilter{})
	if err != nil {
		return 0, fmt.Errorf("list sessions for sweep: %w", err)
	}

	deleted := 0
	for _, sess := range sessions {
		if !sess.UpdatedAt.Before(cutoff) {
			continue
		}
		if err := sw.store.DeleteSession(ctx, sess.ID); err != nil {
			sw.logger.Error("failed to delete expired session",
				slog.String("session_id", sess.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		deleted++
		if sw.hub != nil {
			_ = sw.hub.Publish(ctx, streaming.TraceEvent{
				SessionID: sess.ID,
				EventType: streaming.EventSessionDeleted,
			})
		}
	}

	if deleted > 0 {
		sw.logger.Info("retention sweep completed", slog.Int("deleted", deleted))
		if err := sw.store.Vacuum(ctx); err != nil {
			sw.logger.Warn("vacuum after sweep failed", slog.String("error", err.Error()))
		}
	}
	return deleted, nil
}

// NextRun computes the next sweep time after from.
func (sw *Sweeper) NextRun(from time.Time) time.Time {
	return sw.schedule.Next(from)
}

// Stop gracefully shuts down the sweeper.
func (sw *Sweeper) Stop() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.cancel == nil {
		return nil
	}

	sw.cancel()
	<-sw.done
	sw.cancel = nil
	sw.done = nil

	sw.logger.Info("retention sweeper stopped")
	return nil
}
