package mcp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/client"
	mcptransport "github.com/mark3labs/mcp-go/client/transport"
	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"github.com/sandevgo/hackpal/internal/core"
)

// Connect starts the transport named by cfg and performs the MCP handshake.
func Connect(ctx context.Context, cfg ServerConfig) (*client.Client, error) {
	t, err := cfg.GetTransport()
	if err != nil {
		return nil, err
	}

	var cli *client.Client
	switch t {
	case TransportStdio:
		cli, err = newStdioClient(cfg)
	case TransportHTTP:
		cli, err = newHTTPClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", t)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	if err := cli.Start(ctx); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("failed to start client: %w", err)
	}

	req := mcpproto.InitializeRequest{}
	req.Params.ProtocolVersion = mcpproto.LATEST_PROTOCOL_VERSION
	req.Params.Capabilities = mcpproto.ClientCapabilities{}
	req.Params.ClientInfo = mcpproto.Implementation{
		Name:    core.AppName,
		Version: core.AppVersion,
	}

	if _, err := cli.Initialize(ctx, req); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("failed to initialize client: %w", err)
	}
	return cli, nil
}

func newStdioClient(cfg ServerConfig) (*client.Client, error) {
	env := make([]string, 0, len(cfg.Env))
	for k, v := range cfg.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return client.NewStdioMCPClient(cfg.Command, env, cfg.Args...)
}

func newHTTPClient(cfg ServerConfig) (*client.Client, error) {
	// Fresh transport per server so connection state is not shared.
	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	return client.NewStreamableHttpClient(
		cfg.URL,
		mcptransport.WithHTTPHeaders(cfg.Headers),
		mcptransport.WithHTTPBasicClient(httpClient),
	)
}
