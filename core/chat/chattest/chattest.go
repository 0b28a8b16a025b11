// Package chattest provides in-memory chat sources and sinks for tests.
package chattest

import (
	"context"
	"strconv"
	"sync"

	"github.com/m3rciful/cmdcore/core/chat"
)

// Source is a configurable chat.Source.
type Source struct {
	Name     string
	Identity chat.Identity
	Patterns chat.Mentions
	Split    chat.Tokenizer
	Users    map[string]any
	Channels map[string]any
}

// NewSource returns a Discord-flavoured source whose bot id is selfID.
func NewSource(selfID string) *Source {
	return &Source{
		Name:     "test",
		Identity: chat.Identity{ID: selfID},
		Patterns: chat.DiscordMentions,
		Split:    chat.SplitWhitespace,
		Users:    map[string]any{},
		Channels: map[string]any{},
	}
}

func (s *Source) Platform() string          { return s.Name }
func (s *Source) Self() chat.Identity       { return s.Identity }
func (s *Source) Mentions() chat.Mentions   { return s.Patterns }
func (s *Source) Tokenizer() chat.Tokenizer { return s.Split }

func (s *Source) ResolveUser(_ context.Context, id string) (any, bool) {
	u, ok := s.Users[id]
	return u, ok
}

func (s *Source) ResolveChannel(_ context.Context, id string) (any, bool) {
	c, ok := s.Channels[id]
	return c, ok
}

// Sink records every reply. It is safe for concurrent use.
type Sink struct {
	mu      sync.Mutex
	replies []string
	// Notify, when set, receives each reply after it is recorded.
	Notify chan string
	// Err is returned from Send.
	Err error
}

// Send implements chat.Sink.
func (s *Sink) Send(_ context.Context, text string) error {
	s.mu.Lock()
	s.replies = append(s.replies, text)
	notify := s.Notify
	s.mu.Unlock()
	if notify != nil {
		notify <- text
	}
	return s.Err
}

// Replies returns a copy of the recorded replies.
func (s *Sink) Replies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.replies...)
}

// Event builds a channel message from author with text, replying into sink.
func Event(src *Source, author, text string, sink *Sink) chat.Event {
	ev := chat.Event{
		Source:    src,
		AuthorID:  author,
		ChannelID: "chan-1",
		Text:      text,
	}
	if sink != nil {
		ev.Reply = sink
	}
	return ev
}

// Adapter replays Lines as messages from Author, then returns. Set Err to
// make Run fail before delivering anything.
type Adapter struct {
	*Source
	Author string
	Lines  []string
	Sink   *Sink
	Err    error
}

// Run implements chat.Adapter.
func (a *Adapter) Run(ctx context.Context, h chat.Handler) error {
	if a.Err != nil {
		return a.Err
	}
	for i, line := range a.Lines {
		if ctx.Err() != nil {
			return nil
		}
		ev := Event(a.Source, a.Author, line, a.Sink)
		ev.ID = strconv.Itoa(i + 1)
		ev.Sequence = int64(i + 1)
		h(ctx, ev)
	}
	return nil
}
