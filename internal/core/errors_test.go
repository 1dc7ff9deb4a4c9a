package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKindSentinel(t *testing.T) {
	cause := errors.New("deadline exceeded")
	err := fmt.Errorf("respond: %w", NewProviderUnavailableError("chat failed", cause))

	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrUnexpected)
	assert.NotErrorIs(t, err, ErrKnowledgeIngestion)
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "UNEXPECTED: boom", NewUnexpectedError("boom", nil).Error())
	assert.Equal(t,
		"KNOWLEDGE_INGESTION: extract: no text",
		NewKnowledgeIngestionError("extract", errors.New("no text")).Error(),
	)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"provider", NewProviderUnavailableError("x", nil), KindProviderUnavailable},
		{"wrapped ingestion", fmt.Errorf("w: %w", NewKnowledgeIngestionError("x", nil)), KindKnowledgeIngestion},
		{"plain error", errors.New("plain"), KindUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}
