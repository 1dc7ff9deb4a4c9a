package command

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/internal/service/knowledge"
)

const defaultHistoryLimit = 10

type HistoryReader interface {
	History(ctx context.Context, sessionID string, limit int) ([]core.Turn, error)
}

type KnowledgeResolver interface {
	Resolve(ctx context.Context, sessionID string, doc *core.Document) (*knowledge.KnowledgeBase, error)
}

type ResetSessionCommand struct {
	formatter *ResponseFormatter
}

func NewResetSessionCommand() *ResetSessionCommand {
	return &ResetSessionCommand{formatter: NewResponseFormatter()}
}

func (c *ResetSessionCommand) Name() string {
	return "new"
}

func (c *ResetSessionCommand) Description() string {
	return "Start a new session with empty history"
}

func (c *ResetSessionCommand) Execute(_ context.Context, chat core.ChatSession, _ []string) (string, error) {
	id := chat.Reset()
	return c.formatter.Combine(
		c.formatter.Success("New session started"),
		c.formatter.Label("Session", id),
	), nil
}

type SessionCommand struct {
	knowledge KnowledgeResolver
	formatter *ResponseFormatter
}

func NewSessionCommand(knowledge KnowledgeResolver) *SessionCommand {
	return &SessionCommand{knowledge: knowledge, formatter: NewResponseFormatter()}
}

func (c *SessionCommand) Name() string {
	return "session"
}

func (c *SessionCommand) Description() string {
	return "Show the current session and its document"
}

func (c *SessionCommand) Execute(ctx context.Context, chat core.ChatSession, _ []string) (string, error) {
	kb, err := c.knowledge.Resolve(ctx, chat.SessionID(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to look up knowledge base: %w", err)
	}

	document := "none"
	if kb != nil {
		document = fmt.Sprintf("%s (%d passages)", kb.Source(), kb.Record().Passages)
	}
	return c.formatter.Combine(
		c.formatter.Info("Session"),
		c.formatter.Label("ID", chat.SessionID()),
		c.formatter.Label("Document", document),
	), nil
}

type HistoryCommand struct {
	history   HistoryReader
	formatter *ResponseFormatter
}

func NewHistoryCommand(history HistoryReader) *HistoryCommand {
	return &HistoryCommand{history: history, formatter: NewResponseFormatter()}
}

func (c *HistoryCommand) Name() string {
	return "history"
}

func (c *HistoryCommand) Description() string {
	return "Show recent turns of the current session"
}

func (c *HistoryCommand) Execute(ctx context.Context, chat core.ChatSession, args []string) (string, error) {
	limit := defaultHistoryLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return c.formatter.Combine(
				c.formatter.Usage("/history [count]"),
				c.formatter.Examples([]string{"/history", "/history 4"}),
			), nil
		}
		limit = n
	}

	turns, err := c.history.History(ctx, chat.SessionID(), limit)
	if err != nil {
		return "", err
	}
	if len(turns) == 0 {
		return c.formatter.Combine(
			c.formatter.Info("History"),
			c.formatter.Label("Status", "No messages yet"),
		), nil
	}

	items := make([]string, len(turns))
	for i, t := range turns {
		items[i] = c.formatter.Turn(t)
	}
	return c.formatter.Combine(
		c.formatter.Info("History"),
		c.formatter.List(items),
	), nil
}
