package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWatcherRegistryRegisterAndLookup(t *testing.T) {
	r := NewWatcherRegistry()

	_, ok := r.WatcherFor("trace-1")
	assert.False(t, ok)

	r.Register("trace-1", "mcp-a")
	sid, ok := r.WatcherFor("trace-1")
	assert.True(t, ok)
	assert.Equal(t, "mcp-a", sid)
}

func TestWatcherRegistryOverwriteOnReconnect(t *testing.T) {
	r := NewWatcherRegistry()
	r.Register("trace-1", "mcp-a")
	r.Register("trace-1", "mcp-b")

	sid, ok := r.WatcherFor("trace-1")
	assert.True(t, ok)
	assert.Equal(t, "mcp-b", sid)
}

func TestWatcherRegistryRemoveByMCPSession(t *testing.T) {
	r := NewWatcherRegistry()
	r.Register("trace-1", "mcp-a")
	r.Register("trace-2", "mcp-a")
	r.Register("trace-3", "mcp-b")

	r.Remove("mcp-a")

	_, ok := r.WatcherFor("trace-1")
	assert.False(t, ok)
	_, ok = r.WatcherFor("trace-2")
	assert.False(t, ok)
	sid, ok := r.WatcherFor("trace-3")
	assert.True(t, ok)
	assert.Equal(t, "mcp-b", sid)
}
