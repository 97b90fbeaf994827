package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTracevizServer(t *testing.T) {
	s := NewTracevizServer(TracevizServerDeps{})
	require.NotNil(t, s)
	assert.NotNil(t, s.mcpServer)
	assert.NotNil(t, s.logger)
	assert.NotNil(t, s.watchers)
	assert.NotNil(t, s.notifier)
}

func TestToolRegistration(t *testing.T) {
	s := NewTracevizServer(TracevizServerDeps{})

	tools := s.mcpServer.ListTools()
	require.Len(t, tools, 4)

	expectedTools := []string{
		"traceviz.ingest",
		"traceviz.layout",
		"traceviz.render",
		"traceviz.sessions",
	}
	for _, name := range expectedTools {
		tool := s.mcpServer.GetTool(name)
		assert.NotNil(t, tool, "tool %s should be registered", name)
	}
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name        string
		toolName    string
		description string
	}{
		{"ingest", "traceviz.ingest", "Append visualizer steps to a trace session"},
		{"layout", "traceviz.layout", "Compile a session's stored trace into a positioned diagram layout"},
		{"render", "traceviz.render", "Render a session's compiled layout. Returns ASCII art, Mermaid flowchart syntax, or base64-encoded PNG image"},
		{"sessions", "traceviz.sessions", "List trace sessions or inspect a single one"},
	}

	s := NewTracevizServer(TracevizServerDeps{})

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tool := s.mcpServer.GetTool(tc.toolName)
			require.NotNil(t, tool)
			assert.Equal(t, tc.description, tool.Tool.Description)
		})
	}
}
