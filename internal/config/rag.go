package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/hackpal/pkg/log"
)

type RAGConfig struct {
	Provider      string `env:"EMBEDDING_PROVIDER" envDefault:"gemini"`
	ModelName     string `env:"EMBEDDING_MODEL" envDefault:"gemini-embedding-001"`
	APIKey        string `env:"EMBEDDING_API_KEY"`
	BaseURL       string `env:"EMBEDDING_BASE_URL"`
	ChunkTokens   int    `env:"CHUNK_MAX_TOKENS" envDefault:"400"`
	OverlapTokens int    `env:"CHUNK_OVERLAP_TOKENS" envDefault:"50"`
}

func NewRAGConfig(ctx context.Context) *RAGConfig {
	cfg := &RAGConfig{}
	if err := env.Parse(cfg); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse RAG config")
	}
	return cfg
}

func (c *RAGConfig) GetEmbeddingProvider() string { return c.Provider }
func (c *RAGConfig) GetEmbeddingModel() string    { return c.ModelName }
