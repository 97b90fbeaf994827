package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/traceviz/internal/diagram"
	"github.com/rendis/traceviz/internal/store"
	"github.com/rendis/traceviz/internal/streaming"
	"github.com/rendis/traceviz/pkg/schema"
)

// handleIngest appends steps to a session, creating the session first when
// no session_id is given.
func (s *TracevizServer) handleIngest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stepsArg, ok := req.GetArguments()["steps"]
	if !ok {
		return mcp.NewToolResultError("steps is required"), nil
	}
	raw, marshalErr := json.Marshal(stepsArg)
	if marshalErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid steps: %v", marshalErr)), nil
	}

	if s.validator != nil {
		if valErr := s.validator.ValidateTrace(raw); valErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid trace: %v", valErr)), nil
		}
	}

	steps, parseErr := schema.ParseSteps(raw)
	if parseErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parse steps: %v", parseErr)), nil
	}

	sessionID := req.GetString("session_id", "")
	created := false
	if sessionID == "" {
		sessionID = uuid.New().String()
		now := time.Now().UTC()
		sess := &store.Session{
			ID:         sessionID,
			Name:       req.GetString("name", ""),
			AgentNames: parseAgentNames(req),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if createErr := s.store.CreateSession(ctx, sess); createErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("create session: %v", createErr)), nil
		}
		created = true
		s.publish(ctx, streaming.TraceEvent{
			SessionID: sessionID,
			EventType: streaming.EventSessionCreated,
		})
	}

	seq, appendErr := s.store.AppendSteps(ctx, sessionID, steps)
	if appendErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("append steps: %v", appendErr)), nil
	}

	s.captureWatcher(ctx, sessionID)
	s.publish(ctx, streaming.TraceEvent{
		SessionID: sessionID,
		EventType: streaming.EventStepsAppended,
		Sequence:  seq,
		Payload:   map[string]any{"count": len(steps)},
	})
	s.publish(ctx, streaming.TraceEvent{
		SessionID: sessionID,
		EventType: streaming.EventLayoutUpdated,
		Sequence:  seq,
	})
	if s.notifier != nil {
		_ = s.notifier.Notify(ctx, sessionID, map[string]any{
			"type":       "traceviz/steps_appended",
			"session_id": sessionID,
			"sequence":   seq,
		})
	}

	return marshalResult(map[string]any{
		"session_id": sessionID,
		"created":    created,
		"appended":   len(steps),
		"sequence":   seq,
	})
}

// handleLayout compiles the session's stored trace into a positioned layout.
func (s *TracevizServer) handleLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	sess, sessErr := s.store.GetSession(ctx, sessionID)
	if sessErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("session lookup failed: %v", sessErr)), nil
	}

	steps, loadErr := s.traces.LoadTrace(ctx, sessionID)
	if loadErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load trace failed: %v", loadErr)), nil
	}

	s.captureWatcher(ctx, sessionID)

	layout, dropped := diagram.CompileWithDiagnostics(steps, sess.AgentNames)
	result := map[string]any{"layout": layout}
	if req.GetString("include_diagnostics", "false") == "true" {
		if dropped == nil {
			dropped = []diagram.DroppedStep{}
		}
		result["dropped_steps"] = dropped
	}
	return marshalResult(result)
}

// handleRender renders the session's layout in the requested format.
func (s *TracevizServer) handleRender(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError("format is required"), nil
	}
	if format != "ascii" && format != "mermaid" && format != "image" {
		return mcp.NewToolResultError("format must be ascii, mermaid, or image"), nil
	}

	sess, sessErr := s.store.GetSession(ctx, sessionID)
	if sessErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("session lookup failed: %v", sessErr)), nil
	}

	steps, loadErr := s.traces.LoadTrace(ctx, sessionID)
	if loadErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load trace failed: %v", loadErr)), nil
	}

	layout := diagram.Compile(steps, sess.AgentNames)

	switch format {
	case "ascii":
		return mcp.NewToolResultText(diagram.RenderASCII(layout)), nil
	case "mermaid":
		return mcp.NewToolResultText(diagram.RenderMermaid(layout)), nil
	case "image":
		png, imgErr := diagram.RenderImage(layout)
		if imgErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("image render failed: %v", imgErr)), nil
		}
		return mcp.NewToolResultText(base64.StdEncoding.EncodeToString(png)), nil
	default:
		return mcp.NewToolResultError("unsupported format"), nil
	}
}

// handleSessions lists recent sessions or returns a single one.
func (s *TracevizServer) handleSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if sessionID := req.GetString("session_id", ""); sessionID != "" {
		sess, err := s.store.GetSession(ctx, sessionID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("session lookup failed: %v", err)), nil
		}
		return marshalResult(map[string]any{"session": sess})
	}

	limit := 50
	if v := req.GetString("limit", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	sessions, err := s.store.ListSessions(ctx, store.SessionFilter{Limit: limit})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list sessions failed: %v", err)), nil
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}
	return marshalResult(map[string]any{"sessions": sessions})
}

// --- Internal helpers ---

// parseAgentNames extracts the agent_names mapping, ignoring non-string values.
func parseAgentNames(req mcp.CallToolRequest) schema.AgentNameMap {
	raw := mcp.ParseStringMap(req, "agent_names", nil)
	if len(raw) == 0 {
		return nil
	}
	names := make(schema.AgentNameMap, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			names[k] = s
		}
	}
	return names
}

// captureWatcher maps the trace session to the caller's MCP session for notifications.
func (s *TracevizServer) captureWatcher(ctx context.Context, traceSessionID string) {
	if session := server.ClientSessionFromContext(ctx); session != nil {
		s.watchers.Register(traceSessionID, session.SessionID())
	}
}

// publish is a nil-safe hub publish.
func (s *TracevizServer) publish(ctx context.Context, event streaming.TraceEvent) {
	if s.hub != nil {
		_ = s.hub.Publish(ctx, event)
	}
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
