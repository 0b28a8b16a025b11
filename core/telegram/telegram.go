// Package telegram connects a Telegram bot to the command dispatcher using
// telebot. Replies go through a retrying send queue.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/cmdcore/core/chat"
	coreconfig "github.com/m3rciful/cmdcore/core/config"
	"github.com/m3rciful/cmdcore/core/logger"
	"github.com/m3rciful/cmdcore/core/telegram/sender"
)

// MaxMessageLength is the Bot API limit for one text message.
const MaxMessageLength = 4096

// Adapter receives text messages from a telebot poller.
type Adapter struct {
	cfg       coreconfig.TelegramConfig
	bot       *tele.Bot
	queue     *sender.Queue
	tokenizer chat.Tokenizer
}

// New creates the bot and calls getMe to learn its identity.
func New(cfg coreconfig.TelegramConfig, hook coreconfig.WebhookConfig) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram: token is required")
	}
	return newAdapter(cfg, tele.Settings{
		Token:  cfg.Token,
		Poller: buildPoller(cfg, hook),
		Client: newHTTPClient(pollTimeout(cfg), cfg.SendMaxRetries),
	})
}

func newAdapter(cfg coreconfig.TelegramConfig, settings tele.Settings) (*Adapter, error) {
	tok, err := chat.ParseTokenizer(cfg.Tokenizer, chat.SplitSpace)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	settings.OnError = func(err error, c tele.Context) {
		logger.Adapter.LogAttrs(context.Background(), slog.LevelError, "adapter.error",
			slog.String("platform", coreconfig.AdapterTelegram),
			slog.String("error", sender.SanitizeError(err)),
		)
	}
	start := time.Now()
	bot, err := tele.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %s", sender.SanitizeError(err))
	}
	logger.Adapter.LogAttrs(context.Background(), slog.LevelDebug, "adapter.init",
		slog.String("platform", coreconfig.AdapterTelegram),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return &Adapter{cfg: cfg, bot: bot, tokenizer: tok}, nil
}

func (a *Adapter) Platform() string          { return coreconfig.AdapterTelegram }
func (a *Adapter) Mentions() chat.Mentions   { return chat.TelegramMentions }
func (a *Adapter) Tokenizer() chat.Tokenizer { return a.tokenizer }

// Self identifies the bot by numeric id; mentions carry its username.
func (a *Adapter) Self() chat.Identity {
	if a.bot.Me == nil {
		return chat.Identity{}
	}
	id := ""
	if a.bot.Me.ID != 0 {
		id = strconv.FormatInt(a.bot.Me.ID, 10)
	}
	return chat.Identity{ID: id, MentionID: a.bot.Me.Username}
}

// ResolveUser looks up a public username. Private users are not resolvable
// through the Bot API.
func (a *Adapter) ResolveUser(_ context.Context, id string) (any, bool) {
	ch, err := a.bot.ChatByUsername("@" + strings.TrimPrefix(id, "@"))
	if err != nil {
		return nil, false
	}
	return ch, true
}

func (a *Adapter) ResolveChannel(_ context.Context, id string) (any, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, false
	}
	ch, err := a.bot.ChatByID(n)
	if err != nil {
		return nil, false
	}
	return ch, true
}

// Run starts polling and delivers text messages to h until ctx is done.
func (a *Adapter) Run(ctx context.Context, h chat.Handler) error {
	a.queue = sender.NewQueue(sender.Options{
		Workers:    a.cfg.SendWorkers,
		QueueSize:  a.cfg.SendQueueSize,
		MaxRetries: a.cfg.SendMaxRetries,
	})
	defer a.queue.Close()

	a.bot.Handle(tele.OnText, func(c tele.Context) error {
		if ev, ok := a.toEvent(c.Update().ID, c.Message()); ok {
			h(ctx, ev)
		}
		return nil
	})

	mode := coreconfig.RunModeLongpoll
	if _, ok := a.bot.Poller.(*tele.Webhook); ok {
		mode = coreconfig.RunModeWebhook
	} else if err := a.bot.RemoveWebhook(false); err != nil {
		logger.Adapter.LogAttrs(ctx, slog.LevelWarn, "adapter.webhook.delete",
			slog.String("platform", a.Platform()),
			slog.String("error", sender.SanitizeError(err)),
		)
	}
	logger.Adapter.LogAttrs(ctx, slog.LevelInfo, "adapter.start",
		slog.String("platform", a.Platform()),
		slog.String("mode", mode),
		slog.String("user_id", a.Self().ID),
	)

	done := make(chan struct{})
	go func() {
		a.bot.Start()
		close(done)
	}()

	select {
	case <-ctx.Done():
		a.bot.Stop()
		<-done
	case <-done:
	}
	logger.Adapter.LogAttrs(context.Background(), slog.LevelInfo, "adapter.stop",
		slog.String("platform", a.Platform()),
		slog.Uint64("count", a.queue.ErrorCount()),
	)
	return nil
}

// toEvent normalizes a text message. Message ids are only unique per chat, so
// the event id combines both.
func (a *Adapter) toEvent(updateID int, m *tele.Message) (chat.Event, bool) {
	if m == nil || m.Sender == nil || m.Chat == nil || m.Text == "" {
		return chat.Event{}, false
	}
	to := m.Chat
	chatID := strconv.FormatInt(to.ID, 10)
	return chat.Event{
		Source:    a,
		ID:        chatID + ":" + strconv.Itoa(m.ID),
		AuthorID:  strconv.FormatInt(m.Sender.ID, 10),
		ChannelID: chatID,
		Text:      m.Text,
		Private:   to.Type == tele.ChatPrivate,
		Sequence:  int64(updateID),
		Handles: chat.Handles{
			Message: m,
			Client:  a.bot,
			Channel: to,
			Author:  m.Sender,
		},
		Reply: chat.SinkFunc(func(ctx context.Context, text string) error {
			return a.send(ctx, to, text)
		}),
	}, true
}

func (a *Adapter) send(ctx context.Context, to *tele.Chat, text string) error {
	parts := chat.Chunk(text, MaxMessageLength)
	sent := 0
	// Retries resume after the last delivered part.
	run := func(context.Context) error {
		for sent < len(parts) {
			if _, err := a.bot.Send(to, parts[sent]); err != nil {
				return err
			}
			sent++
		}
		return nil
	}
	if a.queue == nil {
		return run(ctx)
	}
	return a.queue.Do(ctx, "send.text", run)
}
