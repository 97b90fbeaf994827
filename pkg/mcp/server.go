package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

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

// TracevizServerDeps holds the dependencies for creating a TracevizServer.
type TracevizServerDeps struct {
	Store     store.Store
	Traces    TraceLoader
	Validator *validation.TraceValidator
	Hub       streaming.EventHub
	Logger    *slog.Logger
}

// TracevizServer wraps an MCP server with trace visualization tool handlers.
type TracevizServer struct {
	store     store.Store
	traces    TraceLoader
	validator *validation.TraceValidator
	hub       streaming.EventHub
	logger    *slog.Logger
	watchers  *WatcherRegistry
	notifier  *MCPNotifier
	mcpServer *server.MCPServer
}

// NewTracevizServer creates a new TracevizServer with all 4 tools registered.
func NewTracevizServer(deps TracevizServerDeps) *TracevizServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	s := &TracevizServer{
		store:     deps.Store,
		traces:    deps.Traces,
		validator: deps.Validator,
		hub:       deps.Hub,
		logger:    logger,
		watchers:  NewWatcherRegistry(),
	}

	mcpSrv := server.NewMCPServer(
		"traceviz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Traceviz compiles agent execution traces into positioned diagram layouts. Use traceviz.ingest to append steps to a session, traceviz.layout to compile the stored trace into a node graph, traceviz.render to get ascii/mermaid/image output, and traceviz.sessions to list or inspect sessions."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	s.notifier = NewMCPNotifier(mcpSrv, s.watchers)
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *TracevizServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *TracevizServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the 4 registered MCP tools as ServerTool entries.
func (s *TracevizServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: ingestTool(), Handler: s.handleIngest},
		{Tool: layoutTool(), Handler: s.handleLayout},
		{Tool: renderTool(), Handler: s.handleRender},
		{Tool: sessionsTool(), Handler: s.handleSessions},
	}
}

// --- Tool definitions ---

func ingestTool() mcp.Tool {
	return mcp.NewTool("traceviz.ingest",
		mcp.WithDescription("Append visualizer steps to a trace session"),
		mcp.WithString("session_id", mcp.Description("Target session ID (a new session is created when omitted)")),
		mcp.WithArray("steps", mcp.Required(), mcp.Description("Ordered array of visualizer step objects")),
		mcp.WithString("name", mcp.Description("Session name (only used when creating a new session)")),
		mcp.WithObject("agent_names", mcp.Description("Raw-to-display agent name mapping (only used when creating a new session)")),
	)
}

func layoutTool() mcp.Tool {
	return mcp.NewTool("traceviz.layout",
		mcp.WithDescription("Compile a session's stored trace into a positioned diagram layout"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("ID of the session to compile")),
		mcp.WithString("include_diagnostics", mcp.Description("Include the list of dropped steps (default: false)")),
	)
}

func renderTool() mcp.Tool {
	return mcp.NewTool("traceviz.render",
		mcp.WithDescription("Render a session's compiled layout. Returns ASCII art, Mermaid flowchart syntax, or base64-encoded PNG image"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("ID of the session to render")),
		mcp.WithString("format", mcp.Required(),
			mcp.Enum("ascii", "mermaid", "image"),
			mcp.Description("Output format: ascii (text), mermaid (flowchart syntax), or image (base64 PNG)"),
		),
	)
}

func sessionsTool() mcp.Tool {
	return mcp.NewTool("traceviz.sessions",
		mcp.WithDescription("List trace sessions or inspect a single one"),
		mcp.WithString("session_id", mcp.Description("Return this session only (lists recent sessions when omitted)")),
		mcp.WithString("limit", mcp.Description("Maximum sessions to list (default: 50)")),
	)
}
