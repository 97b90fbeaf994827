package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rendis/traceviz/internal/store"
	"github.com/rendis/traceviz/internal/streaming"
	"github.com/rendis/traceviz/internal/validation"
	tracevizmcp "github.com/rendis/traceviz/pkg/mcp"
)

// runMCP starts the MCP server on stdio.
func runMCP(args []string) error {
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

	srv := tracevizmcp.NewTracevizServer(tracevizmcp.TracevizServerDeps{
		Store:     s,
		Traces:    store.NewTraceLog(s),
		Validator: validator,
		Hub:       streaming.NewMemoryHub(),
		Logger:    logger,
	})
	return srv.Serve(ctx)
}
