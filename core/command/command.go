// Package command describes chat commands and keeps the alias registry.
package command

import (
	"context"
	"errors"
)

var (
	// ErrNoAliases is returned when a command is registered without aliases.
	ErrNoAliases = errors.New("command: aliases cannot be empty")
	// ErrNilFunc is returned when a command is registered without a body.
	ErrNilFunc = errors.New("command: nil func")
)

// Param declares what a command parameter is bound to at dispatch time.
type Param int

const (
	// ParamUnknown resolves to nil. Kept so newer signatures degrade gracefully.
	ParamUnknown Param = iota
	// ParamToken binds the matched alias on first use, then successive arguments.
	ParamToken
	// ParamArgs binds all arguments as []string.
	ParamArgs
	// ParamParsed binds all arguments as []any holding int64, user handles,
	// channel handles or the raw string.
	ParamParsed
	// ParamEvent binds the whole chat.Event.
	ParamEvent
	// ParamMessage binds the platform message handle.
	ParamMessage
	// ParamClient binds the platform client or session handle.
	ParamClient
	// ParamChannel binds the platform channel handle.
	ParamChannel
	// ParamAuthor binds the platform user handle of the author.
	ParamAuthor
	// ParamGuild binds the platform guild or workspace handle.
	ParamGuild
	// ParamSequence binds the platform sequence counter as int64.
	ParamSequence
)

var paramNames = map[Param]string{
	ParamUnknown:  "unknown",
	ParamToken:    "token",
	ParamArgs:     "args",
	ParamParsed:   "parsed",
	ParamEvent:    "event",
	ParamMessage:  "message",
	ParamClient:   "client",
	ParamChannel:  "channel",
	ParamAuthor:   "author",
	ParamGuild:    "guild",
	ParamSequence: "sequence",
}

func (p Param) String() string {
	if name, ok := paramNames[p]; ok {
		return name
	}
	return "unknown"
}

// Func is the body of a command. A nil result means no reply.
type Func func(ctx context.Context, in Args) (any, error)

// Command is an immutable command descriptor. Build it with New.
type Command struct {
	aliases         []string
	description     string
	usage           string
	permission      string
	privateMessages bool
	channelMessages bool
	showInHelp      bool
	async           bool
	requiresMention bool
	params          []Param
	run             Func
}

// Option customizes a Command under construction.
type Option func(*Command)

// New builds a command from run and options. Defaults: description "none",
// usage = first alias, permission "none", private and channel messages
// allowed, shown in help, synchronous, no mention required.
func New(run Func, opts ...Option) Command {
	c := Command{
		description:     "none",
		permission:      "none",
		privateMessages: true,
		channelMessages: true,
		showInHelp:      true,
		run:             run,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

// WithAliases sets the trigger aliases. The first one is canonical.
func WithAliases(aliases ...string) Option {
	return func(c *Command) { c.aliases = append([]string(nil), aliases...) }
}

// WithDescription sets the help description.
func WithDescription(d string) Option {
	return func(c *Command) { c.description = d }
}

// WithUsage sets the usage line.
func WithUsage(u string) Option {
	return func(c *Command) { c.usage = u }
}

// WithPermission sets the permission required to run the command.
func WithPermission(p string) Option {
	return func(c *Command) { c.permission = p }
}

// WithParams declares the parameter signature.
func WithParams(params ...Param) Option {
	return func(c *Command) { c.params = append([]Param(nil), params...) }
}

// PrivateMessages toggles whether private messages may trigger the command.
func PrivateMessages(allow bool) Option {
	return func(c *Command) { c.privateMessages = allow }
}

// ChannelMessages toggles whether channel messages may trigger the command.
func ChannelMessages(allow bool) Option {
	return func(c *Command) { c.channelMessages = allow }
}

// Hidden removes the command from help listings.
func Hidden() Option {
	return func(c *Command) { c.showInHelp = false }
}

// Async detaches execution from the event that triggered it.
func Async() Option {
	return func(c *Command) { c.async = true }
}

// RequiresMention only accepts "@bot alias" invocations.
func RequiresMention() Option {
	return func(c *Command) { c.requiresMention = true }
}

// Aliases returns a copy of the aliases as declared.
func (c Command) Aliases() []string { return append([]string(nil), c.aliases...) }

// Name returns the canonical alias or "" when there is none.
func (c Command) Name() string {
	if len(c.aliases) == 0 {
		return ""
	}
	return c.aliases[0]
}

// Description returns the help description.
func (c Command) Description() string { return c.description }

// Usage returns the usage line, falling back to the canonical alias.
func (c Command) Usage() string {
	if c.usage == "" {
		return c.Name()
	}
	return c.usage
}

// Permission returns the required permission.
func (c Command) Permission() string { return c.permission }

// PrivateMessages reports whether private messages may trigger the command.
func (c Command) PrivateMessages() bool { return c.privateMessages }

// ChannelMessages reports whether channel messages may trigger the command.
func (c Command) ChannelMessages() bool { return c.channelMessages }

// ShowInHelp reports whether help listings include the command.
func (c Command) ShowInHelp() bool { return c.showInHelp }

// IsAsync reports whether the command runs detached.
func (c Command) IsAsync() bool { return c.async }

// RequiresMention reports whether the bot must be mentioned first.
func (c Command) RequiresMention() bool { return c.requiresMention }

// Params returns a copy of the parameter signature.
func (c Command) Params() []Param { return append([]Param(nil), c.params...) }

// Func returns the command body.
func (c Command) Func() Func { return c.run }

// Executor bundles one or more commands.
type Executor interface {
	Commands() []Command
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func() []Command

// Commands executes the underlying function.
func (f ExecutorFunc) Commands() []Command { return f() }

// Registered pairs a command with the executor that contributed it.
type Registered struct {
	Command
	Executor Executor
	// Prefix is the default prefix in effect when the command was registered.
	Prefix string
}
