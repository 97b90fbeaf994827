package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/rendis/traceviz/internal/store"
)

// runIngest appends a trace file to a session in the local store,
// creating the session when no id is given.
func runIngest(args []string) error {
	cfg := loadConfig()

	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	tracePath := fs.String("f", "", "trace file (JSON array of steps, - for stdin)")
	sessionID := fs.String("session", "", "session id (created if empty)")
	name := fs.String("name", "", "session name, used only when creating")
	dbPath := fs.String("db", cfg.DBPath, "database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	steps, err := loadTraceFile(*tracePath)
	if err != nil {
		return err
	}

	if mkErr := os.MkdirAll(filepath.Dir(*dbPath), 0o755); mkErr != nil {
		return fmt.Errorf("create db dir: %w", mkErr)
	}
	s, err := store.NewLibSQLStore("file:" + *dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Migrate(ctx); err != nil {
		return err
	}

	created := false
	id := *sessionID
	if id == "" {
		id = uuid.New().String()
		if err := s.CreateSession(ctx, &store.Session{ID: id, Name: *name}); err != nil {
			return err
		}
		created = true
	}

	seq, err := s.AppendSteps(ctx, id, steps)
	if err != nil {
		return err
	}

	if created {
		fmt.Printf("created session %s\n", id)
	}
	fmt.Printf("appended %d steps to %s (sequence %d)\n", len(steps), id, seq)
	return nil
}
