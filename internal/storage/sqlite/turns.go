package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/pkg/log"
)

type TurnsRepo struct {
	db *sql.DB
}

func NewTurnsRepo(db *sql.DB) *TurnsRepo {
	return &TurnsRepo{db: db}
}

// Append stores turns in one transaction. Sequence numbers continue from
// the session's current maximum; UNIQUE(session_id, seq) rejects any
// interleaved writer instead of silently reordering.
func (r *TurnsRepo) Append(ctx context.Context, sessionID string, turns ...core.Turn) ([]core.Turn, error) {
	if len(turns) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var last int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM turns WHERE session_id = ?`, sessionID,
	).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("failed to read last sequence: %w", err)
	}

	stored := make([]core.Turn, 0, len(turns))
	for _, t := range turns {
		last++
		t.SessionID = sessionID
		t.Seq = last
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO turns (session_id, seq, speaker, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			t.SessionID, t.Seq, t.Speaker, t.Role, t.Content, t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert turn: %w", err)
		}
		stored = append(stored, t)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit turns: %w", err)
	}
	return stored, nil
}

// Read returns the last limit turns of a session in chronological order.
// A non-positive limit returns the whole history.
func (r *TurnsRepo) Read(ctx context.Context, sessionID string, limit int) ([]core.Turn, error) {
	if limit <= 0 {
		limit = -1
	}

	query := `SELECT seq, speaker, role, content, created_at FROM turns WHERE session_id = ? ORDER BY seq DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []core.Turn
	for rows.Next() {
		t := core.Turn{SessionID: sessionID}
		if err := rows.Scan(&t.Seq, &t.Speaker, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest -> Oldest from the query; callers expect Oldest -> Newest.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	log.FromCtx(ctx).Debug().Str("session_id", sessionID).Int("count", len(turns)).Msg("loaded turns")
	return turns, nil
}
