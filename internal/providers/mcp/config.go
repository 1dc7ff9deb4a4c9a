package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sandevgo/hackpal/pkg/log"
)

type TransportType string

const (
	TransportHTTP  TransportType = "http"
	TransportStdio TransportType = "stdio"
)

type Config struct {
	MCPServers map[string]ServerConfig `json:"mcpServers"`
}

// ServerConfig represents an entry in mcp_config.json
type ServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

func (c *ServerConfig) GetTransport() (TransportType, error) {
	if c.URL != "" {
		return TransportHTTP, nil
	}
	if c.Command != "" {
		return TransportStdio, nil
	}
	return "", fmt.Errorf("invalid config: neither url nor command provided")
}

// LoadConfig reads mcp_config.json, writing an empty one when it is missing.
func LoadConfig(ctx context.Context, path string) (Config, error) {
	cfg := Config{MCPServers: make(map[string]ServerConfig)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.FromCtx(ctx).Info().Str("path", path).Msg("mcp config not found, creating default")

		data, err = json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return cfg, fmt.Errorf("failed to marshal default config: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return cfg, fmt.Errorf("failed to create config dir: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return cfg, fmt.Errorf("failed to write default config: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read mcp config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse mcp config: %w", err)
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]ServerConfig)
	}
	return cfg, nil
}
