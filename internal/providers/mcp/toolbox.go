package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/internal/providers/tools"
	"github.com/sandevgo/hackpal/pkg/log"
	"golang.org/x/sync/errgroup"
)

type Timeouts struct {
	Connect  time.Duration
	ToolList time.Duration
	ToolCall time.Duration
}

func NewDefaultTimeouts() *Timeouts {
	return &Timeouts{
		Connect:  30 * time.Second,
		ToolList: 5 * time.Second,
		ToolCall: 2 * time.Minute,
	}
}

type connectFunc func(ctx context.Context, cfg ServerConfig) (session, error)

var _ core.Toolbox = (*Toolbox)(nil)

// Toolbox merges native tools with the tools of every configured MCP
// server. Native tools win on name clashes.
type Toolbox struct {
	configPath string
	timeouts   *Timeouts
	cache      *ToolCache
	connect    connectFunc

	native     map[string]tools.Handler
	nativeDefs []core.Tool

	mu      sync.RWMutex
	clients map[string]*ManagedClient
	wg      sync.WaitGroup
}

func NewToolbox(configPath string, providers ...tools.Provider) *Toolbox {
	tb := &Toolbox{
		configPath: configPath,
		timeouts:   NewDefaultTimeouts(),
		cache:      NewToolCache(5 * time.Minute),
		connect: func(ctx context.Context, cfg ServerConfig) (session, error) {
			return Connect(ctx, cfg)
		},
		native:  make(map[string]tools.Handler),
		clients: make(map[string]*ManagedClient),
	}

	for _, p := range providers {
		for name, def := range p.GetDefinitions() {
			tb.native[name] = def.Handler
			tb.nativeDefs = append(tb.nativeDefs, core.Tool{
				Type: "function",
				Function: core.Function{
					Name:        name,
					Description: def.Description,
					Parameters:  json.RawMessage(def.Schema),
				},
			})
		}
	}
	sort.Slice(tb.nativeDefs, func(i, j int) bool {
		return tb.nativeDefs[i].Function.Name < tb.nativeDefs[j].Function.Name
	})
	return tb
}

// Start connects configured servers in the background. A server that fails
// to connect is logged and left out; native tools stay available.
func (t *Toolbox) Start(ctx context.Context) error {
	if t.configPath == "" {
		return nil
	}

	cfg, err := LoadConfig(ctx, t.configPath)
	if err != nil {
		return err
	}

	for name, srv := range cfg.MCPServers {
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.connectServer(ctx, name, srv)
		}()
	}
	return nil
}

func (t *Toolbox) connectServer(ctx context.Context, name string, cfg ServerConfig) {
	connectCtx, cancel := context.WithTimeout(ctx, t.timeouts.Connect)
	defer cancel()

	logger := log.FromCtx(ctx).With().Str("server", name).Logger()
	logger.Info().Str("url", cfg.URL).Str("command", cfg.Command).Msg("starting mcp server")

	s, err := t.connect(connectCtx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start mcp server")
		return
	}

	t.mu.Lock()
	if old, ok := t.clients[name]; ok {
		_ = old.Close()
	}
	t.clients[name] = newManagedClient(name, s)
	t.mu.Unlock()

	t.cache.Invalidate()
	logger.Info().Msg("mcp server connected")
}

func (t *Toolbox) Shutdown(ctx context.Context) error {
	t.wg.Wait()

	t.mu.Lock()
	defer t.mu.Unlock()
	for name, cli := range t.clients {
		if err := cli.Close(); err != nil {
			log.FromCtx(ctx).Error().Err(err).Str("server", name).Msg("failed to close mcp client")
		}
	}
	clear(t.clients)
	t.cache.Invalidate()
	return nil
}

func (t *Toolbox) GetTools(ctx context.Context) ([]core.Tool, error) {
	if cached, _, ok := t.cache.Get(); ok {
		return cached, nil
	}

	t.mu.RLock()
	snapshot := make([]*ManagedClient, 0, len(t.clients))
	for _, c := range t.clients {
		snapshot = append(snapshot, c)
	}
	t.mu.RUnlock()

	listed := make([][]mcpproto.Tool, len(snapshot))
	g, gctx := errgroup.WithContext(ctx)
	for i, cli := range snapshot {
		g.Go(func() error {
			listCtx, cancel := context.WithTimeout(gctx, t.timeouts.ToolList)
			defer cancel()

			resp, err := cli.ListTools(listCtx, mcpproto.ListToolsRequest{})
			if err != nil {
				// One broken server must not hide the others.
				log.FromCtx(ctx).Error().Err(err).Str("server", cli.Name()).Msg("failed to list tools")
				return nil
			}
			listed[i] = resp.Tools
			return nil
		})
	}
	_ = g.Wait()

	all := make([]core.Tool, len(t.nativeDefs))
	copy(all, t.nativeDefs)
	routing := make(map[string]string)

	for i, list := range listed {
		for _, tool := range list {
			if _, clash := t.native[tool.Name]; clash {
				continue
			}
			if _, dup := routing[tool.Name]; dup {
				continue
			}
			routing[tool.Name] = snapshot[i].Name()

			schema, err := json.Marshal(tool.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("encode schema for %s: %w", tool.Name, err)
			}
			all = append(all, core.Tool{
				Type: "function",
				Function: core.Function{
					Name:        tool.Name,
					Description: tool.Description,
					Parameters:  schema,
				},
			})
		}
	}

	t.cache.Update(all, routing)
	return all, nil
}

func (t *Toolbox) CallTool(ctx context.Context, name string, args string) (string, error) {
	log.FromCtx(ctx).Info().Str("tool", name).Str("args", args).Msg("executing tool")

	if strings.TrimSpace(args) == "" {
		args = "{}"
	}

	if handler, ok := t.native[name]; ok {
		return handler(ctx, json.RawMessage(args))
	}

	server, ok := t.cache.Route(name)
	if !ok {
		return "", fmt.Errorf("tool not found: %s", name)
	}
	t.mu.RLock()
	cli, ok := t.clients[server]
	t.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("mcp server %s is not connected", server)
	}

	var argsMap map[string]any
	if err := json.Unmarshal([]byte(args), &argsMap); err != nil {
		return "", fmt.Errorf("invalid json arguments: %w", err)
	}

	req := mcpproto.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = argsMap

	callCtx, cancel := context.WithTimeout(ctx, t.timeouts.ToolCall)
	defer cancel()

	res, err := cli.CallTool(callCtx, req)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", name, err)
	}

	output := textOf(res.Content)
	if res.IsError {
		return "", fmt.Errorf("tool %s failed: %s", name, output)
	}
	return output, nil
}

func textOf(content []mcpproto.Content) string {
	var sb strings.Builder
	for _, c := range content {
		switch v := c.(type) {
		case mcpproto.TextContent:
			sb.WriteString(v.Text)
			sb.WriteString("\n")
		case *mcpproto.TextContent:
			sb.WriteString(v.Text)
			sb.WriteString("\n")
		}
	}
	return strings.TrimSpace(sb.String())
}
