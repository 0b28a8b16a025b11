// Package discord connects a Discord bot session to the command dispatcher.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/m3rciful/cmdcore/core/chat"
	coreconfig "github.com/m3rciful/cmdcore/core/config"
	"github.com/m3rciful/cmdcore/core/logger"
)

// MaxMessageLength is the Discord limit for a single message body.
const MaxMessageLength = 2000

// Adapter receives MessageCreate events from one bot session.
type Adapter struct {
	session   *discordgo.Session
	tokenizer chat.Tokenizer

	selfMu sync.RWMutex
	self   chat.Identity

	seq atomic.Int64
}

// New creates the session. The gateway is not opened until Run.
func New(cfg coreconfig.DiscordConfig) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("discord: token is required")
	}
	tok, err := chat.ParseTokenizer(cfg.Tokenizer, chat.SplitWhitespace)
	if err != nil {
		return nil, fmt.Errorf("discord: %w", err)
	}
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	return &Adapter{session: s, tokenizer: tok}, nil
}

func (a *Adapter) Platform() string          { return coreconfig.AdapterDiscord }
func (a *Adapter) Mentions() chat.Mentions   { return chat.DiscordMentions }
func (a *Adapter) Tokenizer() chat.Tokenizer { return a.tokenizer }

// Self returns the bot user learned from the READY payload.
func (a *Adapter) Self() chat.Identity {
	a.selfMu.RLock()
	defer a.selfMu.RUnlock()
	return a.self
}

// ResolveUser looks the id up over REST; the state cache has no global user index.
func (a *Adapter) ResolveUser(ctx context.Context, id string) (any, bool) {
	u, err := a.session.User(id, discordgo.WithContext(ctx))
	if err != nil || u == nil {
		return nil, false
	}
	return u, true
}

// ResolveChannel prefers the state cache and falls back to REST.
func (a *Adapter) ResolveChannel(ctx context.Context, id string) (any, bool) {
	if ch, err := a.session.State.Channel(id); err == nil {
		return ch, true
	}
	ch, err := a.session.Channel(id, discordgo.WithContext(ctx))
	if err != nil || ch == nil {
		return nil, false
	}
	return ch, true
}

// Run opens the gateway and delivers messages to h until ctx is done.
func (a *Adapter) Run(ctx context.Context, h chat.Handler) error {
	removeReady := a.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		a.onReady(ctx, r)
	})
	defer removeReady()
	removeMsg := a.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		ev, ok := a.toEvent(s, m)
		if !ok {
			return
		}
		h(ctx, ev)
	})
	defer removeMsg()

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	logger.Adapter.LogAttrs(ctx, slog.LevelInfo, "adapter.start",
		slog.String("platform", a.Platform()),
	)

	<-ctx.Done()

	if err := a.session.Close(); err != nil {
		return fmt.Errorf("discord: close gateway: %w", err)
	}
	logger.Adapter.LogAttrs(context.Background(), slog.LevelInfo, "adapter.stop",
		slog.String("platform", a.Platform()),
	)
	return nil
}

func (a *Adapter) onReady(ctx context.Context, r *discordgo.Ready) {
	if r == nil || r.User == nil {
		return
	}
	a.selfMu.Lock()
	a.self = chat.Identity{ID: r.User.ID}
	a.selfMu.Unlock()
	logger.Adapter.LogAttrs(ctx, slog.LevelInfo, "adapter.ready",
		slog.String("platform", a.Platform()),
		slog.String("user_id", r.User.ID),
		slog.Int("count", len(r.Guilds)),
	)
}

// toEvent normalizes a MessageCreate. Messages without an author or text are
// dropped here.
func (a *Adapter) toEvent(s *discordgo.Session, m *discordgo.MessageCreate) (chat.Event, bool) {
	if m == nil || m.Message == nil || m.Author == nil || m.Content == "" {
		return chat.Event{}, false
	}
	handles := chat.Handles{Message: m.Message, Client: s, Author: m.Author}
	if s != nil && s.State != nil {
		if ch, err := s.State.Channel(m.ChannelID); err == nil {
			handles.Channel = ch
		}
		if m.GuildID != "" {
			if g, err := s.State.Guild(m.GuildID); err == nil {
				handles.Guild = g
			}
		}
	}
	channelID := m.ChannelID
	return chat.Event{
		Source:    a,
		ID:        m.ID,
		AuthorID:  m.Author.ID,
		ChannelID: channelID,
		Text:      m.Content,
		Private:   m.GuildID == "",
		Sequence:  a.seq.Add(1),
		Handles:   handles,
		Reply: chat.SinkFunc(func(ctx context.Context, text string) error {
			return a.send(ctx, channelID, text)
		}),
	}, true
}

func (a *Adapter) send(ctx context.Context, channelID, text string) error {
	for _, part := range chat.Chunk(text, MaxMessageLength) {
		if _, err := a.session.ChannelMessageSend(channelID, part, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("discord: send to %s: %w", channelID, err)
		}
	}
	return nil
}
