// Package chat defines the platform-neutral message event and the contract
// every chat platform adapter implements.
package chat

import "context"

// Identity describes how the bot is known on a platform.
type Identity struct {
	// ID is compared against event authors to drop the bot's own echoes.
	ID string
	// MentionID is the identifier carried by in-text mentions of the bot.
	// Empty means ID.
	MentionID string
}

// MentionKey returns the identifier expected inside a mention of the bot.
func (i Identity) MentionKey() string {
	if i.MentionID != "" {
		return i.MentionID
	}
	return i.ID
}

// Handles carries opaque platform objects for commands that ask for them.
type Handles struct {
	Message any
	Client  any
	Channel any
	Author  any
	Guild   any
}

// Sink sends a plain-text reply to the channel an event came from.
type Sink interface {
	Send(ctx context.Context, text string) error
}

// SinkFunc adapts a bare function to the Sink interface.
type SinkFunc func(ctx context.Context, text string) error

// Send executes the underlying function.
func (f SinkFunc) Send(ctx context.Context, text string) error {
	return f(ctx, text)
}

// Source is the adapter-side context an event is evaluated against.
type Source interface {
	Platform() string
	Self() Identity
	Mentions() Mentions
	Tokenizer() Tokenizer
	// ResolveUser maps a mentioned user id to a platform user handle.
	ResolveUser(ctx context.Context, id string) (any, bool)
	// ResolveChannel maps a mentioned channel id to a platform channel handle.
	ResolveChannel(ctx context.Context, id string) (any, bool)
}

// Event is one normalized inbound message.
type Event struct {
	Source    Source
	ID        string
	AuthorID  string
	ChannelID string
	Text      string
	Private   bool
	// Sequence is a platform counter such as an update or response number.
	Sequence int64
	Handles  Handles
	Reply    Sink
}

// Platform returns the platform name of the event source or "unknown".
func (e Event) Platform() string {
	if e.Source == nil {
		return "unknown"
	}
	return e.Source.Platform()
}

// Handler consumes inbound events.
type Handler func(ctx context.Context, ev Event)

// Adapter connects a chat platform to a Handler.
type Adapter interface {
	Source
	// Run delivers inbound events to h until ctx is done or the connection fails.
	Run(ctx context.Context, h Handler) error
}
