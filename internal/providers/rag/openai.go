package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIEncoder calls an OpenAI compatible /embeddings endpoint. Ollama and
// most self-hosted servers expose the same shape.
type OpenAIEncoder struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	// e5 family models expect "query: " and "passage: " prefixes.
	prefixed bool
}

func NewOpenAIEncoder(baseURL, apiKey, model string) *OpenAIEncoder {
	return &OpenAIEncoder{
		client:   &http.Client{Timeout: 60 * time.Second},
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiKey:   apiKey,
		model:    model,
		prefixed: strings.Contains(strings.ToLower(model), "e5"),
	}
}

func (o *OpenAIEncoder) EncodeQuery(ctx context.Context, text string) ([]float32, error) {
	if o.prefixed {
		text = "query: " + text
	}
	return o.embed(ctx, text)
}

func (o *OpenAIEncoder) EncodePassage(ctx context.Context, text string) ([]float32, error) {
	if o.prefixed {
		text = "passage: " + text
	}
	return o.embed(ctx, text)
}

func (o *OpenAIEncoder) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]any{
		"model": o.model,
		"input": text,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
	}

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, errEmptyEmbedding
	}
	return result.Data[0].Embedding, nil
}
