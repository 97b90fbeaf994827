package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/server"
)

// WatcherNotifier pushes notifications to clients watching trace sessions.
type WatcherNotifier interface {
	Notify(ctx context.Context, traceSessionID string, payload map[string]any) error
}

// MCPNotifier implements WatcherNotifier using MCP SSE push.
type MCPNotifier struct {
	mcpServer *server.MCPServer
	watchers  *WatcherRegistry
}

// NewMCPNotifier creates a notifier that pushes via MCP SSE.
func NewMCPNotifier(mcpServer *server.MCPServer, watchers *WatcherRegistry) *MCPNotifier {
	return &MCPNotifier{mcpServer: mcpServer, watchers: watchers}
}

// Notify sends a notification to the watcher of the given trace session.
// Best-effort: returns nil if nobody is watching.
func (n *MCPNotifier) Notify(_ context.Context, traceSessionID string, payload map[string]any) error {
	sessionID, ok := n.watchers.WatcherFor(traceSessionID)
	if !ok {
		return nil // nobody watching, best-effort
	}
	err := n.mcpServer.SendNotificationToSpecificClient(sessionID, "notifications/message", payload)
	if errors.Is(err, server.ErrSessionNotFound) {
		// Session expired between lookup and send is not an error.
		n.watchers.Remove(sessionID)
		return nil
	}
	return err
}
