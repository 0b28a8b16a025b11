// Package console is a local chat adapter reading commands from a terminal.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"sync"

	"github.com/chzyer/readline"

	"github.com/m3rciful/cmdcore/core/chat"
	coreconfig "github.com/m3rciful/cmdcore/core/config"
	"github.com/m3rciful/cmdcore/core/logger"
)

// BotID is the console bot's own identity. Mention it as <@cmdcore>.
const BotID = "cmdcore"

// Mentions matches <@id> and <#id> with free-form ids.
var Mentions = chat.PatternMentions{
	User:    regexp.MustCompile(`<@!?([^>\s]+)>`),
	Channel: regexp.MustCompile(`^<#([^>\s]+)>$`),
}

// User is the handle resolved for console user mentions.
type User struct{ ID string }

// Channel is the handle resolved for console channel mentions.
type Channel struct{ ID string }

type lineReader interface {
	Readline() (string, error)
	Close() error
}

// Adapter feeds terminal lines to a handler as messages from one user.
type Adapter struct {
	cfg       coreconfig.ConsoleConfig
	tokenizer chat.Tokenizer
	out       io.Writer
	outMu     sync.Mutex

	newReader func() (lineReader, error)
}

// New builds a console adapter. Whitespace-run splitting is the default.
func New(cfg coreconfig.ConsoleConfig) (*Adapter, error) {
	tok, err := chat.ParseTokenizer(cfg.Tokenizer, chat.SplitWhitespace)
	if err != nil {
		return nil, fmt.Errorf("console: %w", err)
	}
	a := &Adapter{cfg: cfg, tokenizer: tok, out: os.Stdout}
	a.newReader = func() (lineReader, error) {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          cfg.Prompt,
			HistoryFile:     cfg.HistoryFile,
			HistoryLimit:    100,
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
		})
		if err != nil {
			return nil, err
		}
		a.out = rl.Stdout()
		return rl, nil
	}
	return a, nil
}

func (a *Adapter) Platform() string          { return coreconfig.AdapterConsole }
func (a *Adapter) Self() chat.Identity       { return chat.Identity{ID: BotID} }
func (a *Adapter) Mentions() chat.Mentions   { return Mentions }
func (a *Adapter) Tokenizer() chat.Tokenizer { return a.tokenizer }

func (a *Adapter) ResolveUser(_ context.Context, id string) (any, bool) {
	return User{ID: id}, true
}

func (a *Adapter) ResolveChannel(_ context.Context, id string) (any, bool) {
	return Channel{ID: id}, true
}

// Run reads lines until EOF, interrupt or ctx cancellation.
func (a *Adapter) Run(ctx context.Context, h chat.Handler) error {
	rl, err := a.newReader()
	if err != nil {
		return fmt.Errorf("console: init readline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = rl.Close() })
	defer stop()
	defer rl.Close()

	logger.Adapter.LogAttrs(ctx, slog.LevelInfo, "adapter.start",
		slog.String("platform", a.Platform()),
		slog.String("user_id", a.cfg.UserID),
	)

	var seq int64
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("console: read: %w", err)
		}
		if line == "" {
			continue
		}
		seq++
		h(ctx, chat.Event{
			Source:    a,
			ID:        strconv.FormatInt(seq, 10),
			AuthorID:  a.cfg.UserID,
			ChannelID: coreconfig.AdapterConsole,
			Text:      line,
			Private:   a.cfg.Private,
			Sequence:  seq,
			Handles: chat.Handles{
				Message: line,
				Author:  User{ID: a.cfg.UserID},
				Channel: Channel{ID: coreconfig.AdapterConsole},
			},
			Reply: chat.SinkFunc(a.send),
		})
	}
}

func (a *Adapter) send(_ context.Context, text string) error {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	_, err := fmt.Fprintln(a.out, text)
	return err
}
