package core

import "context"

// TurnStore is the durable conversation history. Append assigns sequence
// numbers and persists all given turns atomically, in order.
type TurnStore interface {
	Append(ctx context.Context, sessionID string, turns ...Turn) ([]Turn, error)
	Read(ctx context.Context, sessionID string, limit int) ([]Turn, error)
}

// PassageStore holds indexed passages. UpsertPassages never duplicates a
// passage whose hash is already stored for the session.
type PassageStore interface {
	UpsertPassages(ctx context.Context, sessionID string, passages []Passage) (int, error)
	SearchPassages(ctx context.Context, sessionID string, vector []float32, limit int) ([]Passage, error)
}

type KnowledgeStore interface {
	SaveKnowledgeBase(ctx context.Context, rec KnowledgeRecord) error
	FindKnowledgeBase(ctx context.Context, sessionID string) (*KnowledgeRecord, error)
}
