package mcp

import "sync"

// WatcherRegistry maps trace session IDs to the MCP session of the client
// last seen working with them. Populated automatically on ingest and layout
// calls so updates can be pushed back to the watching client.
type WatcherRegistry struct {
	mu       sync.RWMutex
	watchers map[string]string // trace session ID → MCP session ID
}

// NewWatcherRegistry creates a new empty WatcherRegistry.
func NewWatcherRegistry() *WatcherRegistry {
	return &WatcherRegistry{watchers: make(map[string]string)}
}

// Register associates a trace session with an MCP session.
// A later client watching the same trace session overwrites the mapping.
func (r *WatcherRegistry) Register(traceSessionID, mcpSessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watchers[traceSessionID] = mcpSessionID
}

// WatcherFor returns the MCP session watching the given trace session, if any.
func (r *WatcherRegistry) WatcherFor(traceSessionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.watchers[traceSessionID]
	return sid, ok
}

// Remove deletes all mappings for the given MCP session ID.
// Called when a client disconnects.
func (r *WatcherRegistry) Remove(mcpSessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for tid, sid := range r.watchers {
		if sid == mcpSessionID {
			delete(r.watchers, tid)
		}
	}
}
