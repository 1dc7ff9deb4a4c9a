package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/hackpal/internal/core"
)

type KnowledgeRepo struct {
	db *sql.DB
}

func NewKnowledgeRepo(db *sql.DB) *KnowledgeRepo {
	return &KnowledgeRepo{db: db}
}

// UpsertPassages inserts passages that are not yet stored for the session
// and returns how many rows were new.
func (r *KnowledgeRepo) UpsertPassages(ctx context.Context, sessionID string, passages []core.Passage) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO passages (session_id, idx, content, content_hash, embedding)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_id, content_hash) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare passage insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, p := range passages {
		vecBlob, err := serializeVector(p.Embedding)
		if err != nil {
			return 0, err
		}

		res, err := stmt.ExecContext(ctx, sessionID, p.Index, p.Content, p.Hash, vecBlob)
		if err != nil {
			return 0, fmt.Errorf("failed to insert passage: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit passages: %w", err)
	}
	return inserted, nil
}

// SearchPassages ranks a session's passages by cosine distance to vector.
// Score is reported as similarity (1 - distance).
func (r *KnowledgeRepo) SearchPassages(ctx context.Context, sessionID string, vector []float32, limit int) ([]core.Passage, error) {
	vecBlob, err := serializeVector(vector)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, idx, content, content_hash, vec_distance_cosine(embedding, ?) AS distance
		FROM passages
		WHERE session_id = ?
		ORDER BY distance
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, vecBlob, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("passage search failed: %w", err)
	}
	defer rows.Close()

	var results []core.Passage
	for rows.Next() {
		p := core.Passage{SessionID: sessionID}
		var distance float64
		if err := rows.Scan(&p.ID, &p.Index, &p.Content, &p.Hash, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan passage: %w", err)
		}
		p.Score = float32(1 - distance)
		results = append(results, p)
	}
	return results, rows.Err()
}

// SaveKnowledgeBase records the session's knowledge base. The first record
// for a session wins.
func (r *KnowledgeRepo) SaveKnowledgeBase(ctx context.Context, rec core.KnowledgeRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO knowledge_bases (session_id, source_name, document_hash, passages, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO NOTHING`,
		rec.SessionID, rec.SourceName, rec.DocumentHash, rec.Passages, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save knowledge base: %w", err)
	}
	return nil
}

func (r *KnowledgeRepo) FindKnowledgeBase(ctx context.Context, sessionID string) (*core.KnowledgeRecord, error) {
	rec := &core.KnowledgeRecord{SessionID: sessionID}
	err := r.db.QueryRowContext(ctx, `
		SELECT source_name, document_hash, passages, created_at
		FROM knowledge_bases
		WHERE session_id = ?`, sessionID,
	).Scan(&rec.SourceName, &rec.DocumentHash, &rec.Passages, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find knowledge base: %w", err)
	}
	return rec, nil
}
