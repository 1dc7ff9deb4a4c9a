package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sandevgo/hackpal/internal/config"
	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/internal/service/session"
	"github.com/sandevgo/hackpal/internal/service/ui"
	"github.com/sandevgo/hackpal/pkg/log"
)

const defaultSessionID = "cli-local"

// Handler answers one message of a session.
type Handler interface {
	Handle(ctx context.Context, req session.Request) (session.Response, error)
}

type ReadLine struct {
	cfg      *config.AppConfig
	handler  Handler
	commands core.CmdRouter
	chat     *session.Binding
	rl       *readline.Instance
}

func NewReadLine(handler Handler, commands core.CmdRouter, cfg *config.AppConfig) (*ReadLine, error) {
	// Ensure runtime directory exists
	if err := os.MkdirAll(cfg.RuntimePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     filepath.Join(cfg.RuntimePath, "input_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{
		cfg:      cfg,
		handler:  handler,
		commands: commands,
		chat:     session.NewBinding(defaultSessionID),
		rl:       rl,
	}, nil
}

func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Msg("HackPal chat started. Type /upload <path> [message] to add a document, 'exit' to quit.")

	for {
		// Check context before blocking read
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					return nil // Exit on Ctrl+C
				}
				continue
			} else if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "exit" {
			return nil
		}
		if line == "" {
			continue
		}

		out, err := r.process(ctx, line)
		if err != nil {
			logger.Error().Err(err).Msg("failed to handle message")
			fmt.Fprintf(r.rl.Stdout(), "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(r.rl.Stdout(), "%s\n", out)
	}
}

func (r *ReadLine) process(ctx context.Context, line string) (string, error) {
	req, isUpload, err := parseUpload(line)
	if err != nil {
		return "", err
	}

	if !isUpload {
		if out, ok := r.commands.Execute(ctx, r.chat, line); ok {
			return out, nil
		}
		req = session.Request{Message: line}
	} else {
		f, err := os.Open(req.Document.Name)
		if err != nil {
			return "", fmt.Errorf("failed to open document: %w", err)
		}
		defer f.Close()
		req.Document = &session.Upload{Name: filepath.Base(f.Name()), Content: f}
	}

	req.SessionID = r.chat.SessionID()
	resp, err := r.handler.Handle(ctx, req)
	if err != nil {
		return "", err
	}
	return ui.ResponderLabel(resp.Responder) + "\n" + resp.Text, nil
}

// parseUpload recognises "/upload <path> [message]". The returned request
// carries the path in Document.Name until the file is opened.
func parseUpload(line string) (session.Request, bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "/upload" {
		return session.Request{}, false, nil
	}
	if len(fields) < 2 {
		return session.Request{}, true, errors.New("usage: /upload <path> [message]")
	}

	message := strings.Join(fields[2:], " ")
	if message == "" {
		message = "Summarize this document."
	}
	return session.Request{
		Message:  message,
		Document: &session.Upload{Name: fields[1]},
	}, true, nil
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}
