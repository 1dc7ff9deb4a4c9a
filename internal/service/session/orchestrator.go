// Package session handles one request of a session end to end: knowledge
// base resolution, routing and persisting the exchange.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/internal/service/knowledge"
	"github.com/sandevgo/hackpal/internal/service/memory"
	"github.com/sandevgo/hackpal/internal/service/responder"
	"github.com/sandevgo/hackpal/internal/service/router"
	"github.com/sandevgo/hackpal/pkg/keylock"
	"github.com/sandevgo/hackpal/pkg/log"
)

type State string

const (
	StateReceived        State = "RECEIVED"
	StateSessionResolved State = "SESSION_RESOLVED"
	StateKBResolved      State = "KB_RESOLVED"
	StateRouted          State = "ROUTED"
	StateMemoryAppended  State = "MEMORY_APPENDED"
	StateResponded       State = "RESPONDED"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// maxNamePart bounds each part of a temp file name so long uploads and
// session ids stay under the file system's name limit.
const maxNamePart = 64

// Upload is a document attached to a request.
type Upload struct {
	Name    string
	Content io.Reader
}

type Request struct {
	SessionID string
	Message   string
	Document  *Upload
}

type Response struct {
	Text      string
	SessionID string
	Responder string
	Intent    router.Intent
}

type Orchestrator struct {
	registry *knowledge.Registry
	router   *router.Router
	memory   *memory.Memory
	locks    *keylock.Locker
	tempDir  string
}

func NewOrchestrator(registry *knowledge.Registry, rt *router.Router, mem *memory.Memory, tempDir string) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		router:   rt,
		memory:   mem,
		locks:    keylock.New(),
		tempDir:  tempDir,
	}
}

// Handle answers one message. Requests of the same session are serialized.
// The session id is returned even when handling fails.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (Response, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	ctx = log.WithStr(ctx, "session_id", sessionID)
	logger := log.FromCtx(ctx)
	resp := Response{SessionID: sessionID}

	transition(ctx, StateReceived)
	defer transition(ctx, StateResponded)

	unlock, err := o.locks.LockContext(ctx, sessionID)
	if err != nil {
		return resp, core.NewUnexpectedError("gave up waiting for the session's previous request", err)
	}
	defer unlock()
	transition(ctx, StateSessionResolved)

	var doc *core.Document
	if req.Document != nil {
		path, err := o.saveUpload(sessionID, req.Document)
		if err != nil {
			return resp, core.NewUnexpectedError("failed to save uploaded document", err)
		}
		defer func() {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				logger.Warn().Err(err).Str("path", path).Msg("failed to remove uploaded document")
			}
		}()
		doc = &core.Document{Name: req.Document.Name, Path: path}
	}

	kb, err := o.registry.Resolve(ctx, sessionID, doc)
	if err != nil {
		logger.Error().Err(err).Msg("knowledge base unavailable, continuing without it")
		kb = nil
	}
	transition(ctx, StateKBResolved)

	history, err := o.memory.Window(ctx, sessionID)
	if err != nil {
		return resp, core.NewUnexpectedError("failed to load history", err)
	}

	var retriever responder.Retriever
	if kb != nil {
		retriever = kb
	}
	decision, text, err := o.router.Route(ctx, router.Request{
		SessionID:   sessionID,
		Message:     req.Message,
		History:     history,
		Knowledge:   retriever,
		NewDocument: doc != nil,
	})
	if err != nil {
		return resp, ensureKind(err)
	}
	transition(ctx, StateRouted)

	if _, err := o.memory.AppendExchange(ctx, sessionID, req.Message, decision.Responder, text); err != nil {
		return resp, core.NewUnexpectedError("failed to store exchange", err)
	}
	transition(ctx, StateMemoryAppended)

	resp.Text = text
	resp.Responder = decision.Responder
	resp.Intent = decision.Intent
	return resp, nil
}

// History returns up to limit stored turns of the session.
func (o *Orchestrator) History(ctx context.Context, sessionID string, limit int) ([]core.Turn, error) {
	return o.memory.History(ctx, sessionID, limit)
}

func (o *Orchestrator) saveUpload(sessionID string, up *Upload) (string, error) {
	if up.Content == nil {
		return "", errors.New("upload has no content")
	}

	// Keep the tail of the name so the extension survives.
	name := unsafeChars.ReplaceAllString(filepath.Base(up.Name), "_")
	if len(name) > maxNamePart {
		name = name[len(name)-maxNamePart:]
	}
	prefix := unsafeChars.ReplaceAllString(sessionID, "_")
	if len(prefix) > maxNamePart {
		prefix = prefix[:maxNamePart]
	}
	f, err := os.CreateTemp(o.tempDir, prefix+"_*_"+name)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(f, up.Content); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return f.Name(), nil
}

func transition(ctx context.Context, s State) {
	log.FromCtx(ctx).Debug().Str("state", string(s)).Msg("request state")
}

func ensureKind(err error) error {
	var kinded *core.Error
	if errors.As(err, &kinded) {
		return err
	}
	return core.NewUnexpectedError("failed to handle message", err)
}
