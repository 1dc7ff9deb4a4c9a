package responder

import (
	"context"
	"fmt"

	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/pkg/conv"
	"github.com/sandevgo/hackpal/pkg/log"
)

const maxToolOutput = 4000

// Executor runs model tool calls against the toolbox. Failures are handed
// back to the model as tool output.
type Executor struct {
	toolbox core.Toolbox
}

func NewExecutor(toolbox core.Toolbox) *Executor {
	return &Executor{
		toolbox: toolbox,
	}
}

func (e *Executor) Execute(ctx context.Context, toolCalls []core.ToolCall) []core.Message {
	logger := log.FromCtx(ctx)

	results := make([]core.Message, 0, len(toolCalls))
	for _, tc := range toolCalls {
		logger.Info().Str("tool", tc.Function.Name).Msg("executing tool")

		res, err := e.toolbox.CallTool(ctx, tc.Function.Name, tc.Function.Arguments)
		if err != nil {
			logger.Warn().Err(err).Str("tool", tc.Function.Name).Msg("tool call failed")
			res = fmt.Sprintf("Error: %v", err)
		}

		results = append(results, core.Message{
			Role:       core.RoleTool,
			Content:    conv.Truncate(res, maxToolOutput),
			ToolCallID: tc.ID,
			Name:       tc.Function.Name,
		})
	}
	return results
}
