package core

import "context"

// CmdRouter handles slash commands typed into chat transports before a
// message reaches the orchestrator.
type CmdRouter interface {
	Execute(ctx context.Context, chat ChatSession, input string) (string, bool)
	ListCommands() []Command
}

type Command interface {
	Name() string
	Description() string
	Execute(ctx context.Context, chat ChatSession, args []string) (string, error)
}

// ChatSession is the session binding of a single chat transport conversation.
type ChatSession interface {
	SessionID() string
	Reset() string
}
