package panel

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/rendis/traceviz/internal/store"
	"github.com/rendis/traceviz/internal/streaming"
	"github.com/rendis/traceviz/internal/validation"
	"github.com/rendis/traceviz/pkg/schema"
)

// TraceLoader reconstructs a session's ordered step list.
// Satisfied by *store.TraceLog.
type TraceLoader interface {
	LoadTrace(ctx context.Context, sessionID string) ([]schema.VisualizerStep, error)
}

// PanelDeps holds the dependencies for the panel server.
type PanelDeps struct {
	Store     store.Store
	Traces    TraceLoader
	Validator *validation.TraceValidator
	Hub       streaming.EventHub
	Logger    *slog.Logger
}

// PanelServer serves the JSON and SSE API for trace sessions.
type PanelServer struct {
	deps PanelDeps
}

// NewPanelServer creates a new PanelServer.
func NewPanelServer(deps PanelDeps) *PanelServer {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &PanelServer{deps: deps}
}

// Handler returns the HTTP handler for the panel routes.
func (s *PanelServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// Sessions.
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)

	// Steps and compiled output.
	mux.HandleFunc("POST /api/sessions/{id}/steps", s.handleIngestSteps)
	mux.HandleFunc("GET /api/sessions/{id}/steps", s.handleGetSteps)
	mux.HandleFunc("GET /api/sessions/{id}/layout", s.handleGetLayout)
	mux.HandleFunc("GET /api/sessions/{id}/render", s.handleRender)

	// SSE streams.
	mux.HandleFunc("GET /sse/events", s.handleSSEGlobal)
	mux.HandleFunc("GET /sse/sessions/{id}", s.handleSSESession)

	return mux
}
