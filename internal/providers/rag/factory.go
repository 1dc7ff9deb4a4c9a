package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/hackpal/internal/config"
	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/pkg/log"
)

const embedTimeout = 30 * time.Second

// NewEmbeddingModel picks the embedding backend. Keys fall back to the chat
// provider credentials when EMBEDDING_API_KEY is not set.
func NewEmbeddingModel(ctx context.Context, cfg *config.RAGConfig, providers core.ProviderConfig) (*Embedder, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.Provider).
		Str("model", cfg.ModelName).
		Msg("starting embedding model")

	apiKey := func(fallback string) string {
		if cfg.APIKey != "" {
			return cfg.APIKey
		}
		return fallback
	}

	var model DualEncoder
	switch cfg.Provider {
	case "gemini":
		enc, err := NewGeminiEncoder(ctx, apiKey(providers.GetGeminiAPIKey()), cfg.ModelName)
		if err != nil {
			return nil, err
		}
		model = enc
	case "openai":
		model = NewOpenAIEncoder(baseURLOr(cfg.BaseURL, "https://api.openai.com/v1"), apiKey(providers.GetOpenAIAPIKey()), cfg.ModelName)
	case "ollama":
		base := strings.TrimSuffix(providers.GetOllamaBaseURL(), "/") + "/v1"
		model = NewOpenAIEncoder(baseURLOr(cfg.BaseURL, base), apiKey(providers.GetOllamaAPIKey()), cfg.ModelName)
	case "custom":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("EMBEDDING_BASE_URL is required for custom embedding provider")
		}
		model = NewOpenAIEncoder(cfg.BaseURL, apiKey(providers.GetCustomOpenAIAPIKey()), cfg.ModelName)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}

	return NewEmbedder(model, embedTimeout), nil
}

func baseURLOr(url, fallback string) string {
	if url != "" {
		return url
	}
	return fallback
}
