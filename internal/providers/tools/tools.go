// Package tools holds the native tools offered to the general assistant.
package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sandevgo/hackpal/pkg/retry"
)

type Handler func(ctx context.Context, args json.RawMessage) (string, error)

type Definition struct {
	Description string
	Schema      string
	Handler     Handler
}

// Provider exposes one or more named tool definitions.
type Provider interface {
	GetDefinitions() map[string]Definition
}

// Defaults returns the web tools with production timeouts.
func Defaults() []Provider {
	return []Provider{NewFetch(), NewSearch()}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func retryConfigOr(cfg *retry.Config) *retry.Config {
	if cfg != nil {
		return cfg
	}
	cfg = retry.NewDefaultConfig()
	cfg.MaxRetries = 2
	return cfg
}
