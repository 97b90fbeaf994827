package panel

import (
	"fmt"
	"net/http"

	"github.com/rendis/traceviz/internal/diagram"
	"github.com/rendis/traceviz/internal/filter"
	"github.com/rendis/traceviz/internal/store"
	"github.com/rendis/traceviz/pkg/schema"
)

// handleListSessions returns recent sessions, most recently updated first.
func (s *PanelServer) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.deps.Store.ListSessions(r.Context(), store.SessionFilter{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// handleGetSession returns a single session's metadata.
func (s *PanelServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Store.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleGetSteps returns a session's raw steps, optionally filtered by a
// caller-supplied expression (?filter=...&engine=cel|expr|jq).
func (s *PanelServer) handleGetSteps(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if _, err := s.deps.Store.GetSession(r.Context(), sessionID); err != nil {
		writeStoreError(w, err)
		return
	}

	steps, err := s.deps.Traces.LoadTrace(r.Context(), sessionID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	steps, err = s.applyFilter(r, steps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if steps == nil {
		steps = []schema.VisualizerStep{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"steps": steps})
}

// handleGetLayout recompiles the session's trace into a positioned layout.
// Every request compiles from scratch so the result always reflects the
// full stored trace.
func (s *PanelServer) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	sess, err := s.deps.Store.GetSession(r.Context(), sessionID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	steps, err := s.deps.Traces.LoadTrace(r.Context(), sessionID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	steps, err = s.applyFilter(r, steps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	layout, dropped := diagram.CompileWithDiagnostics(steps, sess.AgentNames)
	resp := map[string]any{"layout": layout}
	if r.URL.Query().Get("diagnostics") == "1" {
		if dropped == nil {
			dropped = []diagram.DroppedStep{}
		}
		resp["dropped_steps"] = dropped
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRender renders the compiled layout as mermaid, ascii, or png.
func (s *PanelServer) handleRender(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	sess, err := s.deps.Store.GetSession(r.Context(), sessionID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	steps, err := s.deps.Traces.LoadTrace(r.Context(), sessionID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	layout := diagram.Compile(steps, sess.AgentNames)

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "mermaid"
	}
	switch format {
	case "mermaid":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, diagram.RenderMermaid(layout))
	case "ascii":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, diagram.RenderASCII(layout))
	case "png":
		img, err := diagram.RenderImage(layout)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("render png: %v", err))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(img)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q", format))
	}
}

// applyFilter evaluates the optional ?filter= expression against the steps.
func (s *PanelServer) applyFilter(r *http.Request, steps []schema.VisualizerStep) ([]schema.VisualizerStep, error) {
	expression := r.URL.Query().Get("filter")
	if expression == "" {
		return steps, nil
	}
	engineName := r.URL.Query().Get("engine")
	if engineName == "" {
		engineName = "cel"
	}
	eng, err := filter.New(engineName)
	if err != nil {
		return nil, err
	}
	filtered, err := filter.Apply(r.Context(), eng, expression, steps)
	if err != nil {
		return nil, fmt.Errorf("apply filter: %w", err)
	}
	return filtered, nil
}
