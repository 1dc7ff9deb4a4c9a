package mcp

import (
	"sync"
	"time"

	"github.com/sandevgo/hackpal/internal/core"
)

// ToolCache holds the merged tool list and the tool to server routing.
// Entries expire after ttl so servers that change their tools are picked up.
type ToolCache struct {
	mu           sync.RWMutex
	tools        []core.Tool
	toolToServer map[string]string
	expires      time.Time
	ttl          time.Duration
	now          func() time.Time
}

func NewToolCache(ttl time.Duration) *ToolCache {
	return &ToolCache{
		toolToServer: make(map[string]string),
		ttl:          ttl,
		now:          time.Now,
	}
}

func (c *ToolCache) Get() (tools []core.Tool, routing map[string]string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.expires.IsZero() || !c.now().Before(c.expires) {
		return nil, nil, false
	}

	toolsCopy := make([]core.Tool, len(c.tools))
	copy(toolsCopy, c.tools)

	routingCopy := make(map[string]string, len(c.toolToServer))
	for k, v := range c.toolToServer {
		routingCopy[k] = v
	}
	return toolsCopy, routingCopy, true
}

// Route returns the server owning a tool even after the list expired.
func (c *ToolCache) Route(tool string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	server, ok := c.toolToServer[tool]
	return server, ok
}

func (c *ToolCache) Update(tools []core.Tool, routing map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expires = c.now().Add(c.ttl)

	c.tools = make([]core.Tool, len(tools))
	copy(c.tools, tools)

	c.toolToServer = make(map[string]string, len(routing))
	for k, v := range routing {
		c.toolToServer[k] = v
	}
}

func (c *ToolCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expires = time.Time{}
}
