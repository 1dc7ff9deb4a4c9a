package llm

import "github.com/sandevgo/hackpal/internal/core"

func bearer(baseURL, apiKey, model string, extra map[string]string) *OpenAICompatible {
	return NewOpenAICompatible(OpenAICompatibleConfig{
		BaseURL:      baseURL,
		APIKey:       apiKey,
		Model:        model,
		AuthHeader:   "Authorization",
		AuthPrefix:   "Bearer ",
		ExtraHeaders: extra,
	})
}

func NewOpenAI(apiKey, model string) *OpenAICompatible {
	return bearer("https://api.openai.com", apiKey, model, nil)
}

func NewOpenRouter(apiKey, model string) *OpenAICompatible {
	return bearer("https://openrouter.ai/api", apiKey, model, map[string]string{
		"HTTP-Referer": core.AppRepositoryURL,
		"X-Title":      core.AppName,
	})
}

// NewOllama talks to the OpenAI compatible endpoint Ollama serves under /v1.
func NewOllama(baseURL, apiKey, model string) *OpenAICompatible {
	return bearer(baseURL, apiKey, model, nil)
}

func NewCustomOpenAI(baseURL, apiKey, model string) *OpenAICompatible {
	return bearer(baseURL, apiKey, model, nil)
}
