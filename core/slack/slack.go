// Package slack connects a Slack app over Socket Mode to the command
// dispatcher.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/m3rciful/cmdcore/core/chat"
	coreconfig "github.com/m3rciful/cmdcore/core/config"
	"github.com/m3rciful/cmdcore/core/logger"
)

// api is the subset of the web API the adapter calls.
type api interface {
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
	GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Adapter receives message events through a Socket Mode connection.
type Adapter struct {
	api       api
	socket    *socketmode.Client
	tokenizer chat.Tokenizer

	selfMu sync.RWMutex
	self   chat.Identity

	seq atomic.Int64

	// inflight tracks handler goroutines so Run returns after they finish.
	inflight sync.WaitGroup
}

// New builds the web API and Socket Mode clients.
func New(cfg coreconfig.SlackConfig) (*Adapter, error) {
	if cfg.BotToken == "" || cfg.AppToken == "" {
		return nil, errors.New("slack: bot_token and app_token are required")
	}
	tok, err := chat.ParseTokenizer(cfg.Tokenizer, chat.SplitWhitespace)
	if err != nil {
		return nil, fmt.Errorf("slack: %w", err)
	}
	client := slack.New(cfg.BotToken,
		slack.OptionAppLevelToken(cfg.AppToken),
		slack.OptionDebug(cfg.Debug),
	)
	return &Adapter{
		api:       client,
		socket:    socketmode.New(client, socketmode.OptionDebug(cfg.Debug)),
		tokenizer: tok,
	}, nil
}

func (a *Adapter) Platform() string          { return coreconfig.AdapterSlack }
func (a *Adapter) Mentions() chat.Mentions   { return chat.SlackMentions }
func (a *Adapter) Tokenizer() chat.Tokenizer { return a.tokenizer }

// Self returns the bot user resolved by auth.test.
func (a *Adapter) Self() chat.Identity {
	a.selfMu.RLock()
	defer a.selfMu.RUnlock()
	return a.self
}

func (a *Adapter) ResolveUser(ctx context.Context, id string) (any, bool) {
	u, err := a.api.GetUserInfoContext(ctx, id)
	if err != nil || u == nil {
		return nil, false
	}
	return u, true
}

func (a *Adapter) ResolveChannel(ctx context.Context, id string) (any, bool) {
	ch, err := a.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: id})
	if err != nil || ch == nil {
		return nil, false
	}
	return ch, true
}

// Run authenticates, then consumes Socket Mode events until ctx is done.
func (a *Adapter) Run(ctx context.Context, h chat.Handler) error {
	auth, err := a.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack: auth test: %w", err)
	}
	a.selfMu.Lock()
	a.self = chat.Identity{ID: auth.UserID}
	a.selfMu.Unlock()
	logger.Adapter.LogAttrs(ctx, slog.LevelInfo, "adapter.start",
		slog.String("platform", a.Platform()),
		slog.String("user_id", auth.UserID),
		slog.String("name", auth.Team),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- a.socket.RunContext(ctx) }()
	defer a.inflight.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("slack: socket mode: %w", err)
		case evt, ok := <-a.socket.Events:
			if !ok {
				return nil
			}
			a.handle(ctx, evt, h)
		}
	}
}

// handle acks Events API envelopes inline and runs the handler for each
// message on its own goroutine, so one slow command does not hold up the
// rest of the stream.
func (a *Adapter) handle(ctx context.Context, evt socketmode.Event, h chat.Handler) {
	switch evt.Type {
	case socketmode.EventTypeConnected:
		logger.Adapter.LogAttrs(ctx, slog.LevelDebug, "adapter.connected",
			slog.String("platform", a.Platform()),
		)
	case socketmode.EventTypeEventsAPI:
		if evt.Request != nil {
			a.socket.Ack(*evt.Request)
		}
		outer, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		msg, ok := outer.InnerEvent.Data.(*slackevents.MessageEvent)
		if !ok {
			return
		}
		if ev, ok := a.toEvent(msg); ok {
			a.inflight.Add(1)
			go func() {
				defer a.inflight.Done()
				h(ctx, ev)
			}()
		}
	}
}

// toEvent normalizes a plain user message. Edits, joins and other subtypes
// are dropped.
func (a *Adapter) toEvent(m *slackevents.MessageEvent) (chat.Event, bool) {
	if m == nil || m.SubType != "" || m.User == "" || strings.TrimSpace(m.Text) == "" {
		return chat.Event{}, false
	}
	channel := m.Channel
	thread := m.ThreadTimeStamp
	return chat.Event{
		Source:    a,
		ID:        channel + "-" + m.TimeStamp,
		AuthorID:  m.User,
		ChannelID: channel,
		Text:      m.Text,
		Private:   m.ChannelType == "im",
		Sequence:  a.seq.Add(1),
		Handles: chat.Handles{
			Message: m,
			Client:  a.api,
			Channel: channel,
			Author:  m.User,
		},
		Reply: chat.SinkFunc(func(ctx context.Context, text string) error {
			return a.send(ctx, channel, thread, text)
		}),
	}, true
}

func (a *Adapter) send(ctx context.Context, channel, thread, text string) error {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if thread != "" {
		opts = append(opts, slack.MsgOptionTS(thread))
	}
	if _, _, err := a.api.PostMessageContext(ctx, channel, opts...); err != nil {
		return fmt.Errorf("slack: post to %s: %w", channel, err)
	}
	return nil
}
