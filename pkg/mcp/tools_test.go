package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/traceviz/internal/store"
	"github.com/rendis/traceviz/internal/streaming"
	"github.com/rendis/traceviz/internal/validation"
)

func newTestTracevizServer(t *testing.T) (*TracevizServer, *store.LibSQLStore) {
	t.Helper()

	s, err := store.NewLibSQLStore("file:" + t.TempDir() + "/mcp.db")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	validator, err := validation.NewTraceValidator()
	require.NoError(t, err)

	srv := NewTracevizServer(TracevizServerDeps{
		Store:     s,
		Traces:    store.NewTraceLog(s),
		Validator: validator,
		Hub:       streaming.NewMemoryHub(),
	})
	return srv, s
}

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

func simpleTraceArgs() []any {
	return []any{
		map[string]any{
			"id": "s1", "type": "USER_REQUEST", "owning_task_id": "t1",
			"nesting_level": float64(0),
			"data":          map[string]any{"agent_name": "researcher", "text": "hi"},
		},
		map[string]any{
			"id": "s2", "type": "AGENT_LLM_CALL", "owning_task_id": "t1",
			"nesting_level": float64(0),
			"data":          map[string]any{"model": "gpt-4o"},
		},
		map[string]any{
			"id": "s3", "type": "AGENT_RESPONSE_TEXT", "owning_task_id": "t1",
			"nesting_level": float64(0),
			"data":          map[string]any{"text": "done"},
		},
	}
}

func extractText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.False(t, result.IsError)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(extractText(t, result)), &out))
	return out
}

// --- Tests ---

func TestIngestCreatesSessionWhenOmitted(t *testing.T) {
	s, st := newTestTracevizServer(t)

	req := buildRequest("traceviz.ingest", map[string]any{
		"steps":       simpleTraceArgs(),
		"name":        "auto-run",
		"agent_names": map[string]any{"researcher": "Researcher"},
	})
	result, err := s.handleIngest(context.Background(), req)
	require.NoError(t, err)

	out := resultJSON(t, result)
	assert.Equal(t, true, out["created"])
	assert.EqualValues(t, 3, out["appended"])
	assert.EqualValues(t, 3, out["sequence"])

	sessionID, _ := out["session_id"].(string)
	require.NotEmpty(t, sessionID)

	sess, err := st.GetSession(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, "auto-run", sess.Name)
	assert.Equal(t, "Researcher", sess.AgentNames.Display("researcher"))
	assert.EqualValues(t, 3, sess.StepCount)
}

func TestIngestIntoExistingSession(t *testing.T) {
	s, st := newTestTracevizServer(t)

	sess := &store.Session{ID: "sess-fixed"}
	require.NoError(t, st.CreateSession(context.Background(), sess))

	req := buildRequest("traceviz.ingest", map[string]any{
		"session_id": "sess-fixed",
		"steps":      simpleTraceArgs(),
	})
	result, err := s.handleIngest(context.Background(), req)
	require.NoError(t, err)

	out := resultJSON(t, result)
	assert.Equal(t, false, out["created"])
	assert.Equal(t, "sess-fixed", out["session_id"])
}

func TestIngestMissingSteps(t *testing.T) {
	s, _ := newTestTracevizServer(t)

	result, err := s.handleIngest(context.Background(), buildRequest("traceviz.ingest", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestIngestRejectsMalformedSteps(t *testing.T) {
	s, _ := newTestTracevizServer(t)

	req := buildRequest("traceviz.ingest", map[string]any{
		"steps": []any{map[string]any{"type": "USER_REQUEST"}}, // missing id and owning_task_id
	})
	result, err := s.handleIngest(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestLayoutTool(t *testing.T) {
	s, _ := newTestTracevizServer(t)

	ingest, err := s.handleIngest(context.Background(), buildRequest("traceviz.ingest", map[string]any{
		"steps": simpleTraceArgs(),
	}))
	require.NoError(t, err)
	sessionID := resultJSON(t, ingest)["session_id"].(string)

	result, err := s.handleLayout(context.Background(), buildRequest("traceviz.layout", map[string]any{
		"session_id": sessionID,
	}))
	require.NoError(t, err)

	out := resultJSON(t, result)
	layout, ok := out["layout"].(map[string]any)
	require.True(t, ok)
	nodes, ok := layout["nodes"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, nodes)
	assert.NotContains(t, out, "dropped_steps")
}

func TestLayoutToolWithDiagnostics(t *testing.T) {
	s, _ := newTestTracevizServer(t)

	ingest, err := s.handleIngest(context.Background(), buildRequest("traceviz.ingest", map[string]any{
		"steps": simpleTraceArgs(),
	}))
	require.NoError(t, err)
	sessionID := resultJSON(t, ingest)["session_id"].(string)

	result, err := s.handleLayout(context.Background(), buildRequest("traceviz.layout", map[string]any{
		"session_id":          sessionID,
		"include_diagnostics": "true",
	}))
	require.NoError(t, err)

	out := resultJSON(t, result)
	assert.Contains(t, out, "dropped_steps")
}

func TestLayoutToolUnknownSession(t *testing.T) {
	s, _ := newTestTracevizServer(t)

	result, err := s.handleLayout(context.Background(), buildRequest("traceviz.layout", map[string]any{
		"session_id": "nonexistent",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestRenderToolTextFormats(t *testing.T) {
	s, _ := newTestTracevizServer(t)

	ingest, err := s.handleIngest(context.Background(), buildRequest("traceviz.ingest", map[string]any{
		"steps": simpleTraceArgs(),
	}))
	require.NoError(t, err)
	sessionID := resultJSON(t, ingest)["session_id"].(string)

	result, err := s.handleRender(context.Background(), buildRequest("traceviz.render", map[string]any{
		"session_id": sessionID,
		"format":     "mermaid",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, extractText(t, result), "graph TD")

	result, err = s.handleRender(context.Background(), buildRequest("traceviz.render", map[string]any{
		"session_id": sessionID,
		"format":     "ascii",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.NotEmpty(t, extractText(t, result))
}

func TestRenderToolBadFormat(t *testing.T) {
	s, _ := newTestTracevizServer(t)

	result, err := s.handleRender(context.Background(), buildRequest("traceviz.render", map[string]any{
		"session_id": "whatever",
		"format":     "svg",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestSessionsToolListAndGet(t *testing.T) {
	s, st := newTestTracevizServer(t)

	require.NoError(t, st.CreateSession(context.Background(), &store.Session{ID: "sess-1", Name: "first"}))
	require.NoError(t, st.CreateSession(context.Background(), &store.Session{ID: "sess-2", Name: "second"}))

	result, err := s.handleSessions(context.Background(), buildRequest("traceviz.sessions", map[string]any{}))
	require.NoError(t, err)
	out := resultJSON(t, result)
	sessions, ok := out["sessions"].([]any)
	require.True(t, ok)
	assert.Len(t, sessions, 2)

	result, err = s.handleSessions(context.Background(), buildRequest("traceviz.sessions", map[string]any{
		"session_id": "sess-1",
	}))
	require.NoError(t, err)
	out = resultJSON(t, result)
	sess, ok := out["session"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "first", sess["name"])
}

func TestSessionsToolUnknownID(t *testing.T) {
	s, _ := newTestTracevizServer(t)

	result, err := s.handleSessions(context.Background(), buildRequest("traceviz.sessions", map[string]any{
		"session_id": "nonexistent",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
