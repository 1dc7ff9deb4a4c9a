package rag

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DualEncoder is an embedding backend with separate query and passage
// encodings.
type DualEncoder interface {
	EncodeQuery(ctx context.Context, text string) ([]float32, error)
	EncodePassage(ctx context.Context, text string) ([]float32, error)
}

var errEmptyEmbedding = errors.New("empty embedding")

// Embedder bounds every backend call with a timeout and rejects empty
// vectors.
type Embedder struct {
	model   DualEncoder
	timeout time.Duration
}

func NewEmbedder(model DualEncoder, timeout time.Duration) *Embedder {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Embedder{model: model, timeout: timeout}
}

func (e *Embedder) EncodeQuery(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	vec, err := e.model.EncodeQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("failed to encode query: %w", errEmptyEmbedding)
	}
	return vec, nil
}

func (e *Embedder) EncodePassage(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	vec, err := e.model.EncodePassage(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to encode passage: %w", err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("failed to encode passage: %w", errEmptyEmbedding)
	}
	return vec, nil
}
