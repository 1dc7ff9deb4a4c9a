package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/hackpal/pkg/log"
)

type ProviderConfig struct {
	Provider string `env:"LLM_PROVIDER" envDefault:"gemini"`
	Model    string `env:"LLM_MODEL" envDefault:"gemini-2.0-flash"`

	GeminiAPIKey        string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey        string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey     string `env:"ANTHROPIC_API_KEY"`
	OpenRouterAPIKey    string `env:"OPENROUTER_API_KEY"`
	OllamaBaseURL       string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	OllamaAPIKey        string `env:"OLLAMA_API_KEY"`
	CustomOpenAIBaseURL string `env:"CUSTOM_OPENAI_BASE_URL"`
	CustomOpenAIAPIKey  string `env:"CUSTOM_OPENAI_API_KEY"`
}

func NewProviderConfig(ctx context.Context) *ProviderConfig {
	c := &ProviderConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Provider config")
	}
	return c
}

func (c *ProviderConfig) GetProvider() string            { return c.Provider }
func (c *ProviderConfig) GetModel() string               { return c.Model }
func (c *ProviderConfig) GetGeminiAPIKey() string        { return c.GeminiAPIKey }
func (c *ProviderConfig) GetAnthropicAPIKey() string     { return c.AnthropicAPIKey }
func (c *ProviderConfig) GetOpenAIAPIKey() string        { return c.OpenAIAPIKey }
func (c *ProviderConfig) GetOpenRouterAPIKey() string    { return c.OpenRouterAPIKey }
func (c *ProviderConfig) GetOllamaAPIKey() string        { return c.OllamaAPIKey }
func (c *ProviderConfig) GetOllamaBaseURL() string       { return c.OllamaBaseURL }
func (c *ProviderConfig) GetCustomOpenAIBaseURL() string { return c.CustomOpenAIBaseURL }
func (c *ProviderConfig) GetCustomOpenAIAPIKey() string  { return c.CustomOpenAIAPIKey }
