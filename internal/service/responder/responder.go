// Package responder answers a routed message with one declarative
// responder definition, a language model and optionally the session's
// knowledge base and external tools.
package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/internal/service/memory"
	"github.com/sandevgo/hackpal/pkg/log"
)

const (
	defaultRetrievalLimit = 5
	defaultMaxToolRounds  = 4
)

// Retriever is the search side of a session knowledge base.
type Retriever interface {
	Search(ctx context.Context, query string, limit int) ([]core.Passage, error)
}

type Options struct {
	RetrievalLimit int
	MaxToolRounds  int
	// HistoryWindow applies to the default definitions only.
	HistoryWindow int
}

type Request struct {
	SessionID string
	Message   string
	History   []core.Turn
	// Knowledge is nil when the session has no knowledge base.
	Knowledge Retriever
	// Passages were retrieved upstream and are used as document context
	// without searching again.
	Passages []core.Passage
}

type Responder struct {
	def      Definition
	ai       core.AIProvider
	toolbox  core.Toolbox
	executor *Executor
	opts     Options
}

func New(def Definition, ai core.AIProvider, toolbox core.Toolbox, opts Options) *Responder {
	if opts.RetrievalLimit <= 0 {
		opts.RetrievalLimit = defaultRetrievalLimit
	}
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = defaultMaxToolRounds
	}

	r := &Responder{def: def, ai: ai, toolbox: toolbox, opts: opts}
	if toolbox != nil {
		r.executor = NewExecutor(toolbox)
	}
	return r
}

func (r *Responder) Name() string {
	return r.def.Name
}

func (r *Responder) Definition() Definition {
	return r.def
}

const finalAnswerPrompt = "The tool budget for this message is spent. Answer now with what you have, without calling tools."

// Respond produces the responder's reply. Model failures, timeouts and
// empty replies are reported as ProviderUnavailable.
func (r *Responder) Respond(ctx context.Context, req Request) (string, error) {
	ctx = log.WithStr(ctx, "responder", r.def.Name)
	logger := log.FromCtx(ctx)

	passages := req.Passages
	if len(passages) == 0 && r.def.KnowledgeSearch && req.Knowledge != nil {
		found, err := req.Knowledge.Search(ctx, req.Message, r.opts.RetrievalLimit)
		if err != nil {
			logger.Warn().Err(err).Msg("knowledge search failed, answering without document context")
		} else {
			passages = found
		}
	}

	messages := r.buildMessages(req, passages)
	tools := r.availableTools(ctx)

	for round := 0; ; round++ {
		if round >= r.opts.MaxToolRounds && tools != nil {
			tools = nil
			messages = append(messages, core.Message{Role: core.RoleUser, Content: finalAnswerPrompt})
		}

		reply, err := r.ai.Chat(ctx, messages, tools)
		if err != nil {
			if errors.Is(err, core.ErrProviderUnavailable) {
				return "", err
			}
			return "", core.NewProviderUnavailableError("model call failed", err)
		}

		if len(reply.ToolCalls) == 0 || len(tools) == 0 {
			text := strings.TrimSpace(reply.Content)
			if text == "" && len(reply.ToolCalls) > 0 {
				return "", core.NewUnexpectedError("model kept calling tools after the tool budget was spent", nil)
			}
			if text == "" {
				return "", core.NewProviderUnavailableError("model returned an empty response", nil)
			}
			logger.Debug().Int("tool_rounds", round).Int("passages", len(passages)).Msg("response generated")
			return text, nil
		}

		messages = append(messages, reply)
		messages = append(messages, r.executor.Execute(ctx, reply.ToolCalls)...)
	}
}

func (r *Responder) availableTools(ctx context.Context) []core.Tool {
	if !r.def.ExternalTools || r.toolbox == nil {
		return nil
	}
	tools, err := r.toolbox.GetTools(ctx)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("tools unavailable, answering without them")
		return nil
	}
	return tools
}

func (r *Responder) buildMessages(req Request, passages []core.Passage) []core.Message {
	history := req.History
	if n := r.def.historyWindow(); len(history) > n {
		history = history[len(history)-n:]
	}

	messages := make([]core.Message, 0, len(history)+3)
	messages = append(messages, core.Message{Role: core.RoleSystem, Content: r.def.SystemPrompt()})
	if ctxText := documentContext(passages); ctxText != "" {
		messages = append(messages, core.Message{Role: core.RoleSystem, Content: ctxText})
	}
	messages = append(messages, memory.ToMessages(history)...)
	messages = append(messages, core.Message{Role: core.RoleUser, Content: req.Message})
	return messages
}

func documentContext(passages []core.Passage) string {
	if len(passages) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("DOCUMENT CONTEXT:\nExcerpts from the document the user uploaded in this session.\n")
	for i, p := range passages {
		fmt.Fprintf(&sb, "\n[%d] %s\n", i+1, strings.TrimSpace(p.Content))
	}
	return sb.String()
}
