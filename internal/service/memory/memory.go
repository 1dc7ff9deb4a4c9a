// Package memory is the shared conversation memory of a session. Every
// responder reads the same window and the orchestrator appends exchanges.
package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/pkg/log"
)

const DefaultWindowSize = 10

var errEmptySession = errors.New("session id is empty")

type Memory struct {
	turns      core.TurnStore
	windowSize int
}

func NewMemory(turns core.TurnStore, windowSize int) *Memory {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Memory{turns: turns, windowSize: windowSize}
}

func (m *Memory) WindowSize() int {
	return m.windowSize
}

// Window returns the most recent turns of the session, oldest first.
func (m *Memory) Window(ctx context.Context, sessionID string) ([]core.Turn, error) {
	return m.History(ctx, sessionID, m.windowSize)
}

// History returns up to limit recent turns; a non-positive limit returns all.
func (m *Memory) History(ctx context.Context, sessionID string, limit int) ([]core.Turn, error) {
	if sessionID == "" {
		return nil, errEmptySession
	}
	turns, err := m.turns.Read(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return turns, nil
}

// AppendExchange stores the user message and the responder reply as one
// batch, user turn first.
func (m *Memory) AppendExchange(ctx context.Context, sessionID, message, responder, reply string) ([]core.Turn, error) {
	if sessionID == "" {
		return nil, errEmptySession
	}
	stored, err := m.turns.Append(ctx, sessionID,
		core.NewUserTurn(sessionID, message),
		core.NewResponderTurn(sessionID, responder, reply),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append exchange: %w", err)
	}

	log.FromCtx(ctx).Debug().
		Str("session_id", sessionID).
		Str("responder", responder).
		Int64("seq", stored[len(stored)-1].Seq).
		Msg("exchange stored")
	return stored, nil
}

// ToMessages maps stored turns onto provider chat messages.
func ToMessages(turns []core.Turn) []core.Message {
	out := make([]core.Message, 0, len(turns))
	for _, t := range turns {
		role := core.RoleAssistant
		if t.Role == core.RoleUser {
			role = core.RoleUser
		}
		out = append(out, core.Message{Role: role, Content: t.Content})
	}
	return out
}
