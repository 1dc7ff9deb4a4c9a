package rag

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const DefaultGeminiEmbeddingModel = "gemini-embedding-001"

const (
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

// GeminiEncoder embeds through the Gemini API using the retrieval task
// types, so queries and passages land in the same space asymmetrically.
type GeminiEncoder struct {
	client *genai.Client
	model  string
}

func NewGeminiEncoder(ctx context.Context, apiKey, model string) (*GeminiEncoder, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = DefaultGeminiEmbeddingModel
	}

	return newGeminiEncoder(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, model)
}

func newGeminiEncoder(ctx context.Context, cfg *genai.ClientConfig, model string) (*GeminiEncoder, error) {
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiEncoder{client: client, model: model}, nil
}

func (g *GeminiEncoder) EncodeQuery(ctx context.Context, text string) ([]float32, error) {
	return g.embed(ctx, text, taskRetrievalQuery)
}

func (g *GeminiEncoder) EncodePassage(ctx context.Context, text string) ([]float32, error) {
	return g.embed(ctx, text, taskRetrievalDocument)
}

func (g *GeminiEncoder) embed(ctx context.Context, text string, task string) ([]float32, error) {
	result, err := g.client.Models.EmbedContent(ctx,
		g.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		embedConfig(task),
	)
	if err != nil {
		return nil, fmt.Errorf("genai embed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, errEmptyEmbedding
	}
	return result.Embeddings[0].Values, nil
}

func embedConfig(task string) *genai.EmbedContentConfig {
	return &genai.EmbedContentConfig{TaskType: task}
}
