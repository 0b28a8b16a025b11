// Package builtin provides the commands every bot ships with.
package builtin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/cmdcore/core/audit"
	"github.com/m3rciful/cmdcore/core/chat"
	"github.com/m3rciful/cmdcore/core/command"
	"github.com/m3rciful/cmdcore/core/dispatch"
)

// Permissions required by the privileged built-ins.
const (
	PermGrant   = "permissions.grant"
	PermHistory = "audit.read"
)

const historyLimit = 10

// Commands is the built-in executor.
type Commands struct {
	d       *dispatch.Dispatcher
	history audit.Reader
}

// New binds the built-ins to d. history may be nil, in which case the
// history command is not offered.
func New(d *dispatch.Dispatcher, history audit.Reader) *Commands {
	return &Commands{d: d, history: history}
}

// Commands implements command.Executor.
func (c *Commands) Commands() []command.Command {
	cmds := []command.Command{
		command.New(c.help,
			command.WithAliases("help", "commands"),
			command.WithDescription("List available commands"),
		),
		command.New(c.ping,
			command.WithAliases("ping"),
			command.WithDescription("Check that the bot is alive"),
		),
		command.New(c.grant,
			command.WithAliases("grant"),
			command.WithDescription("Grant a permission to a user"),
			command.WithUsage("grant <user> <permission>"),
			command.WithPermission(PermGrant),
			command.WithParams(command.ParamEvent, command.ParamArgs),
		),
		command.New(c.perms,
			command.WithAliases("perms", "permissions"),
			command.WithDescription("Show granted permissions"),
			command.WithUsage("perms [user]"),
			command.WithParams(command.ParamEvent, command.ParamArgs),
		),
	}
	if c.history != nil {
		cmds = append(cmds, command.New(c.recent,
			command.WithAliases("history"),
			command.WithDescription("Review recent command invocations"),
			command.WithUsage("history [count]"),
			command.WithPermission(PermHistory),
			command.WithParams(command.ParamArgs),
			command.Async(),
		))
	}
	return cmds
}

func (c *Commands) help(context.Context, command.Args) (any, error) {
	var b strings.Builder
	for _, rc := range c.d.ListCommands() {
		if !rc.ShowInHelp() {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(rc.Prefix)
		b.WriteString(rc.Usage())
		b.WriteString(" - ")
		b.WriteString(rc.Description())
	}
	if b.Len() == 0 {
		return "No commands available.", nil
	}
	return b.String(), nil
}

func (c *Commands) ping(context.Context, command.Args) (any, error) {
	return "pong", nil
}

func (c *Commands) grant(_ context.Context, in command.Args) (any, error) {
	ev, _ := in.Value(0).(chat.Event)
	args := in.Strings(1)
	if len(args) < 2 {
		return "Usage: grant <user> <permission>", nil
	}
	user := userID(ev, args[0])
	perm := args[1]
	c.d.GrantPermission(user, perm)
	return fmt.Sprintf("Granted %s to %s.", perm, user), nil
}

func (c *Commands) perms(_ context.Context, in command.Args) (any, error) {
	ev, _ := in.Value(0).(chat.Event)
	user := ev.AuthorID
	if args := in.Strings(1); len(args) > 0 {
		user = userID(ev, args[0])
	}
	grants := c.d.Permissions().Grants(user)
	if len(grants) == 0 {
		return fmt.Sprintf("%s has no permissions.", user), nil
	}
	return fmt.Sprintf("%s: %s", user, strings.Join(grants, ", ")), nil
}

func (c *Commands) recent(ctx context.Context, in command.Args) (any, error) {
	limit := historyLimit
	if args := in.Strings(0); len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			limit = min(n, 50)
		}
	}
	entries, err := c.history.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return "No command history yet.", nil
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %-8s %-10s %s %s (%s)",
			e.At.UTC().Format("2006-01-02 15:04:05"),
			e.Platform, e.UserID, e.Command, e.Outcome, e.Duration)
	}
	return b.String(), nil
}

// userID accepts a raw id or a user mention of the event's platform.
func userID(ev chat.Event, token string) string {
	if ev.Source != nil {
		if m := ev.Source.Mentions(); m != nil {
			if id, ok := m.UserID(token); ok {
				return id
			}
		}
	}
	return token
}
