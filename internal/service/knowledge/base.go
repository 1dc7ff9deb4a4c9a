// Package knowledge owns the per-session knowledge bases: building them
// from an uploaded document once and handing out the shared handle.
package knowledge

import (
	"context"
	"fmt"

	"github.com/sandevgo/hackpal/internal/core"
)

// KnowledgeBase is the read handle of one session's indexed document.
type KnowledgeBase struct {
	record   core.KnowledgeRecord
	embedder core.Embedder
	passages core.PassageStore
}

func newKnowledgeBase(rec core.KnowledgeRecord, embedder core.Embedder, passages core.PassageStore) *KnowledgeBase {
	return &KnowledgeBase{record: rec, embedder: embedder, passages: passages}
}

func (kb *KnowledgeBase) SessionID() string {
	return kb.record.SessionID
}

func (kb *KnowledgeBase) Source() string {
	return kb.record.SourceName
}

func (kb *KnowledgeBase) Record() core.KnowledgeRecord {
	return kb.record
}

// Search returns up to limit passages of this session ranked by similarity
// to the query.
func (kb *KnowledgeBase) Search(ctx context.Context, query string, limit int) ([]core.Passage, error) {
	vec, err := kb.embedder.EncodeQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	found, err := kb.passages.SearchPassages(ctx, kb.record.SessionID, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search passages: %w", err)
	}
	return found, nil
}
