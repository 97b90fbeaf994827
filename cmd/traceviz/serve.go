package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rendis/traceviz/internal/panel"
	"github.com/rendis/traceviz/internal/retention"
	"github.com/rendis/traceviz/internal/store"
	"github.com/rendis/traceviz/internal/streaming"
	"github.com/rendis/traceviz/internal/validation"
)

// runServe starts the HTTP panel server with the retention sweeper.
func runServe(args []string) error {
	cfg := loadConfig()
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	s, err := store.NewLibSQLStore("file:" + cfg.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Migrate(ctx); err != nil {
		return err
	}

	validator, err := validation.NewTraceValidator()
	if err != nil {
		return err
	}
	hub := streaming.NewMemoryHub()

	sweeper, err := retention.NewSweeper(s, hub, cfg.RetentionCron,
		time.Duration(cfg.RetentionDays)*24*time.Hour, logger)
	if err != nil {
		return err
	}
	if err := sweeper.Start(ctx); err != nil {
		return err
	}
	defer sweeper.Stop()

	ps := panel.NewPanelServer(panel.PanelDeps{
		Store:     s,
		Traces:    store.NewTraceLog(s),
		Validator: validator,
		Hub:       hub,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           ps.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("traceviz server listening",
			"addr", cfg.ListenAddr,
			"db", cfg.DBPath,
			"next_sweep", sweeper.NextRun(time.Now()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
