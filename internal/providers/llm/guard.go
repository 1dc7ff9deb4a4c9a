package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/pkg/log"
	"github.com/sandevgo/hackpal/pkg/retry"
)

// Guard bounds every model call with a deadline and retries transient
// failures. Anything it cannot recover from, including an empty reply,
// surfaces as a ProviderUnavailable error.
type Guard struct {
	next    core.AIProvider
	timeout time.Duration
	retrier *retry.Retrier
}

func NewGuard(next core.AIProvider, timeout time.Duration, retries int) *Guard {
	if retries < 0 {
		retries = 0
	}
	cfg := retry.NewDefaultConfig()
	cfg.MaxRetries = retries
	cfg.MaxDelay = 5 * time.Second
	cfg.Retryable = isTransient
	return newGuard(next, timeout, cfg)
}

func newGuard(next core.AIProvider, timeout time.Duration, cfg *retry.Config) *Guard {
	return &Guard{next: next, timeout: timeout, retrier: retry.NewRetrier(cfg)}
}

func (g *Guard) Chat(ctx context.Context, history []core.Message, tools []core.Tool) (core.Message, error) {
	var out core.Message
	attempt := 0

	err := g.retrier.Do(ctx, func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		msg, err := g.next.Chat(callCtx, history, tools)
		if err != nil {
			// A parent cancellation is final even though the error looks like a timeout.
			if ctx.Err() != nil {
				return retry.Permanent(err)
			}
			log.FromCtx(ctx).Warn().Err(err).Int("attempt", attempt).Msg("model call failed")
			return err
		}
		out = msg
		return nil
	})
	if err != nil {
		return core.Message{}, core.NewProviderUnavailableError("model call failed", err)
	}

	if strings.TrimSpace(out.Content) == "" && len(out.ToolCalls) == 0 {
		return core.Message{}, core.NewProviderUnavailableError("model returned empty output", nil)
	}
	return out, nil
}

func isTransient(err error) bool {
	var status *StatusError
	if errors.As(err, &status) {
		return status.Transient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
