package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sandevgo/hackpal/internal/config"
	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/internal/service/session"
	"github.com/sandevgo/hackpal/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const baseContextKey = "base_context"

// Handler answers one message of a session.
type Handler interface {
	Handle(ctx context.Context, req session.Request) (session.Response, error)
}

type Bot struct {
	bot      *tele.Bot
	cfg      *config.TelegramConfig
	handler  Handler
	commands core.CmdRouter
	sessions *session.Bindings
	sender   *sender
	maxBytes int64
}

func NewBot(
	ctx context.Context,
	cfg *config.TelegramConfig,
	handler Handler,
	commands core.CmdRouter,
	maxUploadBytes int64,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:      b,
		cfg:      cfg,
		handler:  handler,
		commands: commands,
		sessions: session.NewBindings(),
		sender:   newSender(b),
		maxBytes: maxUploadBytes,
	}

	// Use context from Signal with logger
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if !allowed(cfg.OwnerID, c.Sender()) {
				return nil
			}
			return next(c)
		}
	})

	b.Handle(tele.OnText, bot.handleText)
	b.Handle(tele.OnDocument, bot.handleDocument)

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

func (b *Bot) handleText(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	chat := b.sessions.For(sessionKey(c.Chat().ID))

	if out, ok := b.commands.Execute(ctx, chat, c.Text()); ok {
		return b.sender.sendMarkdown(ctx, c.Chat(), out, false)
	}

	return b.answer(ctx, c, session.Request{SessionID: chat.SessionID(), Message: c.Text()})
}

func (b *Bot) handleDocument(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	logger := log.FromCtx(ctx)
	chat := b.sessions.For(sessionKey(c.Chat().ID))

	doc := c.Message().Document
	if b.maxBytes > 0 && doc.FileSize > b.maxBytes {
		return c.Send(fmt.Sprintf("The document is too large, the limit is %d MB.", b.maxBytes>>20))
	}

	_ = c.Notify(tele.UploadingDocument)
	rc, err := b.bot.File(&doc.File)
	if err != nil {
		logger.Error().Err(err).Str("document", doc.FileName).Msg("failed to download telegram document")
		return c.Send("I could not download that document, please try again.")
	}
	defer rc.Close()

	message := c.Message().Caption
	if message == "" {
		message = "Summarize this document."
	}
	return b.answer(ctx, c, session.Request{
		SessionID: chat.SessionID(),
		Message:   message,
		Document:  &session.Upload{Name: doc.FileName, Content: rc},
	})
}

func (b *Bot) answer(ctx context.Context, c tele.Context, req session.Request) error {
	logger := log.FromCtx(ctx)
	_ = c.Notify(tele.Typing)

	resp, err := b.handler.Handle(ctx, req)
	if err != nil {
		logger.Error().Err(err).Str("session_id", resp.SessionID).Msg("failed to handle telegram message")
		return c.Send(errorReply(err))
	}
	return b.sender.sendMarkdown(ctx, c.Chat(), resp.Text, false)
}

func sessionKey(chatID int64) string {
	return "telegram-" + strconv.FormatInt(chatID, 10)
}

// allowed reports whether the sender may use the bot. A zero owner allows
// everyone.
func allowed(ownerID int64, sender *tele.User) bool {
	if ownerID == 0 {
		return true
	}
	return sender != nil && sender.ID == ownerID
}

func errorReply(err error) string {
	if errors.Is(err, core.ErrProviderUnavailable) {
		return "The AI model provider is not responding right now. Please try again in a moment."
	}
	return "An unexpected error occurred. Please try again."
}
