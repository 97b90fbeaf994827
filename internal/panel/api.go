package panel

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/traceviz/internal/store"
	"github.com/rendis/traceviz/internal/streaming"
	"github.com/rendis/traceviz/pkg/schema"
)

// handleCreateSession creates a new trace session with a generated ID.
func (s *PanelServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body struct {
		Name       string              `json:"name"`
		AgentNames schema.AgentNameMap `json:"agent_names"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	now := time.Now().UTC()
	sess := &store.Session{
		ID:         uuid.New().String(),
		Name:       body.Name,
		AgentNames: body.AgentNames,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.deps.Store.CreateSession(ctx, sess); err != nil {
		writeStoreError(w, err)
		return
	}

	if s.deps.Hub != nil {
		_ = s.deps.Hub.Publish(ctx, streaming.TraceEvent{
			SessionID: sess.ID,
			EventType: streaming.EventSessionCreated,
		})
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID})
}

// handleDeleteSession removes a session and its steps.
func (s *PanelServer) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := r.PathValue("id")

	if err := s.deps.Store.DeleteSession(ctx, sessionID); err != nil {
		writeStoreError(w, err)
		return
	}

	if s.deps.Hub != nil {
		_ = s.deps.Hub.Publish(ctx, streaming.TraceEvent{
			SessionID: sessionID,
			EventType: streaming.EventSessionDeleted,
		})
	}

	writeJSON(w, http.StatusOK, map[string]string{"ok": "true", "id": sessionID})
}

// handleIngestSteps validates and appends a batch of steps to the session's
// log, then announces the append so streaming clients can recompile.
func (s *PanelServer) handleIngestSteps(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := r.PathValue("id")

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
		return
	}

	if s.deps.Validator != nil {
		if err := s.deps.Validator.ValidateTrace(raw); err != nil {
			writeStoreError(w, err)
			return
		}
	}

	steps, err := schema.ParseSteps(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("parse steps: %v", err))
		return
	}

	seq, err := s.deps.Store.AppendSteps(ctx, sessionID, steps)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if s.deps.Hub != nil && len(steps) > 0 {
		_ = s.deps.Hub.Publish(ctx, streaming.TraceEvent{
			SessionID: sessionID,
			EventType: streaming.EventStepsAppended,
			Sequence:  seq,
			Payload:   map[string]any{"count": len(steps)},
		})
		_ = s.deps.Hub.Publish(ctx, streaming.TraceEvent{
			SessionID: sessionID,
			EventType: streaming.EventLayoutUpdated,
			Sequence:  seq,
		})
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":       sessionID,
		"appended": len(steps),
		"sequence": seq,
	})
}
