// Package dispatch routes normalized chat messages to registered commands.
//
// A message passes through fixed gates in order: self filter, alias match
// (falling back to "@bot alias" form), mention, channel kind and permission.
// Any gate may end processing silently; only a failed permission check can
// produce a reply. Commands then run inline or detached and their non-nil
// result is sent back as plain text.
package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/cmdcore/core/audit"
	"github.com/m3rciful/cmdcore/core/chat"
	"github.com/m3rciful/cmdcore/core/command"
	coreconfig "github.com/m3rciful/cmdcore/core/config"
	"github.com/m3rciful/cmdcore/core/logger"
	"github.com/m3rciful/cmdcore/core/params"
	"github.com/m3rciful/cmdcore/core/permission"
)

// Options configures a Dispatcher.
type Options struct {
	// DefaultPrefix is applied to aliases registered after New.
	DefaultPrefix string
	// MissingPermissionMessage is replied on a failed permission check.
	// Empty selects the default message.
	MissingPermissionMessage string
	// DisableMissingPermissionReply suppresses the denial reply entirely.
	DisableMissingPermissionReply bool
	// AsyncWorkers bounds async invocations with a worker pool. Zero runs
	// every async invocation on its own goroutine.
	AsyncWorkers   int
	AsyncQueueSize int
	// Recorder journals invocation outcomes. Nil disables journaling.
	Recorder audit.Recorder
	// Tokenizer is used for events whose source does not choose one.
	Tokenizer chat.Tokenizer
}

// OptionsFromConfig maps the dispatch config section onto Options.
func OptionsFromConfig(cfg coreconfig.DispatchConfig) Options {
	return Options{
		DefaultPrefix:                 cfg.Prefix,
		MissingPermissionMessage:      cfg.MissingPermissionMessage,
		DisableMissingPermissionReply: cfg.DisableMissingPermissionReply,
		AsyncWorkers:                  cfg.AsyncWorkers,
		AsyncQueueSize:                cfg.AsyncQueueSize,
	}
}

// Dispatcher owns the command registry and permission store and is the
// single entry point adapters call for each inbound message. Handle is safe
// for concurrent use.
type Dispatcher struct {
	registry *command.Registry
	perms    *permission.Store
	recorder audit.Recorder
	pool     *pool

	missingPermission string
	tokenizer         chat.Tokenizer
}

// New creates a Dispatcher with an empty registry and permission store.
func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		registry:          command.NewRegistry(),
		perms:             permission.NewStore(),
		recorder:          opts.Recorder,
		missingPermission: opts.MissingPermissionMessage,
		tokenizer:         opts.Tokenizer,
	}
	if d.recorder == nil {
		d.recorder = audit.Nop{}
	}
	if d.missingPermission == "" {
		d.missingPermission = coreconfig.DefaultMissingPermissionMessage
	}
	if opts.DisableMissingPermissionReply {
		d.missingPermission = ""
	}
	if d.tokenizer == "" {
		d.tokenizer = chat.SplitWhitespace
	}
	if opts.AsyncWorkers > 0 {
		d.pool = newPool(opts.AsyncWorkers, opts.AsyncQueueSize)
	}
	d.registry.SetDefaultPrefix(opts.DefaultPrefix)
	return d
}

// Registry exposes the underlying command registry.
func (d *Dispatcher) Registry() *command.Registry { return d.registry }

// Permissions exposes the underlying permission store.
func (d *Dispatcher) Permissions() *permission.Store { return d.perms }

// RegisterCommand registers every command the executor declares.
func (d *Dispatcher) RegisterCommand(exec command.Executor) error {
	return d.registry.RegisterExecutor(exec)
}

// Register registers standalone commands without an owning executor.
func (d *Dispatcher) Register(cmds ...command.Command) error {
	return d.registry.Register(nil, cmds...)
}

// SetDefaultPrefix changes the prefix for aliases registered afterwards.
func (d *Dispatcher) SetDefaultPrefix(prefix string) { d.registry.SetDefaultPrefix(prefix) }

// GrantPermission grants permission to userID.
func (d *Dispatcher) GrantPermission(userID, perm string) { d.perms.Grant(userID, perm) }

// HasPermission reports whether userID holds perm.
func (d *Dispatcher) HasPermission(userID, perm string) bool { return d.perms.Has(userID, perm) }

// ListCommands returns registered commands in registration order.
func (d *Dispatcher) ListCommands() []*command.Registered { return d.registry.List() }

// Close waits for pooled async invocations to finish. Invocations started on
// their own goroutine are not awaited.
func (d *Dispatcher) Close() {
	if d.pool != nil {
		d.pool.close()
	}
}

// Handle processes one inbound message. It never returns an error: gate
// rejections are silent and invocation failures are logged.
func (d *Dispatcher) Handle(ctx context.Context, ev chat.Event) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = d.eventContext(ctx, ev)

	var self chat.Identity
	tokenizer := d.tokenizer
	if ev.Source != nil {
		self = ev.Source.Self()
		if t := ev.Source.Tokenizer(); t != "" {
			tokenizer = t
		}
	}
	if self.ID != "" && ev.AuthorID == self.ID {
		return
	}

	tokens := tokenizer.Split(ev.Text)
	first := tokens[0]

	rc, ok := d.registry.Lookup(first)
	if !ok {
		if len(tokens) < 2 {
			d.logMiss(ctx, first)
			return
		}
		rc, ok = d.registry.Lookup(tokens[1])
		if !ok || !rc.RequiresMention() {
			d.logMiss(ctx, first)
			return
		}
		tokens = tokens[1:]
	}
	cmd := rc.Command
	alias := tokens[0]
	ctx = logger.WithCommand(ctx, cmd.Name())

	if cmd.RequiresMention() && !mentionsSelf(ev.Source, self, first) {
		d.logGate(ctx, "mention", alias)
		return
	}
	if ev.Private && !cmd.PrivateMessages() {
		d.logGate(ctx, "private", alias)
		return
	}
	if !ev.Private && !cmd.ChannelMessages() {
		d.logGate(ctx, "channel", alias)
		return
	}

	if !d.perms.Has(ev.AuthorID, cmd.Permission()) {
		d.deny(ctx, ev, cmd, alias)
		return
	}

	args := params.Resolve(ctx, cmd.Params(), tokens, ev)

	if !cmd.IsAsync() {
		d.execute(ctx, ev, cmd, alias, args)
		return
	}
	actx := context.WithoutCancel(ctx)
	job := func() { d.execute(actx, ev, cmd, alias, args) }
	if d.pool != nil {
		d.pool.submit(job)
		return
	}
	go job()
}

func (d *Dispatcher) eventContext(ctx context.Context, ev chat.Event) context.Context {
	platform := ev.Platform()
	rid := logger.RIDFrom(ctx)
	if rid == "" {
		id := ev.ID
		if id == "" {
			id = uuid.NewString()
		}
		rid = logger.BuildRID(platform, id)
		ctx = logger.WithRID(ctx, rid)
	}
	return logger.WithEventMeta(ctx, platform, ev.AuthorID, ev.ChannelID)
}

func mentionsSelf(src chat.Source, self chat.Identity, token string) bool {
	if src == nil {
		return false
	}
	mentions := src.Mentions()
	key := self.MentionKey()
	if mentions == nil || key == "" {
		return false
	}
	// Telegram usernames are case-insensitive; numeric and Slack ids are
	// unaffected by folding.
	id, ok := mentions.UserID(token)
	return ok && strings.EqualFold(id, key)
}

func (d *Dispatcher) deny(ctx context.Context, ev chat.Event, cmd command.Command, alias string) {
	logger.Dispatch.LogAttrs(ctx, slog.LevelInfo, "command.denied",
		slog.String("status", "denied"),
		slog.String("alias", alias),
		slog.String("required", cmd.Permission()),
	)
	d.record(ctx, ev, cmd, alias, audit.OutcomeDenied, nil, 0)
	if d.missingPermission == "" {
		return
	}
	d.reply(ctx, ev, d.missingPermission)
}

func (d *Dispatcher) execute(ctx context.Context, ev chat.Event, cmd command.Command, alias string, args command.Args) {
	start := time.Now()
	result, err := invoke(ctx, cmd, args)
	took := logger.Took(start)

	if err != nil {
		logger.Dispatch.LogAttrs(ctx, slog.LevelError, "command.invoke",
			slog.String("status", "fail"),
			slog.String("alias", alias),
			slog.Bool("async", cmd.IsAsync()),
			slog.Duration("duration", took),
			slog.String("err", err.Error()),
		)
		d.record(ctx, ev, cmd, alias, audit.OutcomeFail, err, took)
		return
	}

	logger.Dispatch.LogAttrs(ctx, slog.LevelInfo, "command.invoke",
		slog.String("status", "ok"),
		slog.String("alias", alias),
		slog.Bool("async", cmd.IsAsync()),
		slog.Duration("duration", took),
	)
	d.record(ctx, ev, cmd, alias, audit.OutcomeOK, nil, took)

	// An empty string is a result, but platforms reject empty messages.
	if text, ok := Stringify(result); ok && text != "" {
		d.reply(ctx, ev, text)
	}
}

func (d *Dispatcher) reply(ctx context.Context, ev chat.Event, text string) {
	if ev.Reply == nil {
		logger.Dispatch.LogAttrs(ctx, slog.LevelWarn, "reply.skip",
			slog.String("cause", "no reply sink"),
		)
		return
	}
	if err := ev.Reply.Send(ctx, text); err != nil {
		logger.Dispatch.LogAttrs(ctx, slog.LevelWarn, "reply.send",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}

func (d *Dispatcher) record(ctx context.Context, ev chat.Event, cmd command.Command, alias string, outcome audit.Outcome, err error, took time.Duration) {
	e := audit.Entry{
		RID:       logger.RIDFrom(ctx),
		Platform:  ev.Platform(),
		Command:   cmd.Name(),
		Alias:     alias,
		UserID:    ev.AuthorID,
		ChannelID: ev.ChannelID,
		Private:   ev.Private,
		Outcome:   outcome,
		Duration:  took,
		At:        time.Now().UTC(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	if rerr := d.recorder.Record(ctx, e); rerr != nil {
		logger.Dispatch.LogAttrs(ctx, slog.LevelWarn, "audit.record",
			slog.String("status", "fail"),
			slog.String("err", rerr.Error()),
		)
	}
}

func (d *Dispatcher) logGate(ctx context.Context, gate, alias string) {
	logger.Dispatch.LogAttrs(ctx, slog.LevelDebug, "command.gate",
		slog.String("status", "skip"),
		slog.String("cause", gate),
		slog.String("alias", alias),
	)
}

func (d *Dispatcher) logMiss(ctx context.Context, token string) {
	if !logger.ShouldSampleDebug() {
		return
	}
	logger.Dispatch.LogAttrs(ctx, slog.LevelDebug, "command.miss",
		slog.String("alias", logger.SanitizeLimit(token, 64)),
	)
}
