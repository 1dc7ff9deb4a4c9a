package mcp

import (
	"context"
	"sync"

	mcpproto "github.com/mark3labs/mcp-go/mcp"
)

// session is the subset of the mcp-go client the Toolbox uses.
type session interface {
	ListTools(ctx context.Context, req mcpproto.ListToolsRequest) (*mcpproto.ListToolsResult, error)
	CallTool(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error)
	Close() error
}

// ManagedClient makes Close idempotent and remembers the server name.
type ManagedClient struct {
	session
	mu     sync.Mutex
	closed bool
	name   string
}

func newManagedClient(name string, s session) *ManagedClient {
	return &ManagedClient{session: s, name: name}
}

func (mc *ManagedClient) Name() string {
	return mc.name
}

func (mc *ManagedClient) Close() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.closed || mc.session == nil {
		mc.closed = true
		return nil
	}
	mc.closed = true
	return mc.session.Close()
}
