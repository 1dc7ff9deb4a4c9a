package core

type ProviderConfig interface {
	GetProvider() string
	GetModel() string
	GetGeminiAPIKey() string
	GetAnthropicAPIKey() string
	GetOpenAIAPIKey() string
	GetOpenRouterAPIKey() string
	GetOllamaAPIKey() string
	GetOllamaBaseURL() string
	GetCustomOpenAIBaseURL() string
	GetCustomOpenAIAPIKey() string
}

type EmbeddingConfig interface {
	GetEmbeddingProvider() string
	GetEmbeddingModel() string
}
