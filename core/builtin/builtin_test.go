package builtin

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/cmdcore/core/audit"
	"github.com/m3rciful/cmdcore/core/chat/chattest"
	"github.com/m3rciful/cmdcore/core/command"
	"github.com/m3rciful/cmdcore/core/dispatch"
)

func setup(t *testing.T, history audit.Reader) (*dispatch.Dispatcher, *chattest.Source) {
	t.Helper()
	d := dispatch.New(dispatch.Options{DefaultPrefix: "!"})
	require.NoError(t, d.RegisterCommand(New(d, history)))
	require.NoError(t, d.Register(command.New(
		func(context.Context, command.Args) (any, error) { return nil, nil },
		command.WithAliases("secret"),
		command.Hidden(),
	)))
	return d, chattest.NewSource("bot")
}

func send(d *dispatch.Dispatcher, src *chattest.Source, author, text string) []string {
	sink := &chattest.Sink{}
	d.Handle(context.Background(), chattest.Event(src, author, text, sink))
	return sink.Replies()
}

func TestHelpListsVisibleCommands(t *testing.T) {
	d, src := setup(t, nil)

	replies := send(d, src, "u", "!help")
	require.Len(t, replies, 1)
	lines := strings.Split(replies[0], "\n")

	assert.Equal(t, "!help - List available commands", lines[0])
	assert.Contains(t, replies[0], "!grant <user> <permission> - Grant a permission to a user")
	assert.NotContains(t, replies[0], "secret")
	assert.NotContains(t, replies[0], "history")
}

func TestPing(t *testing.T) {
	d, src := setup(t, nil)
	assert.Equal(t, []string{"pong"}, send(d, src, "u", "!PING"))
}

func TestGrantRequiresPermission(t *testing.T) {
	d, src := setup(t, nil)

	replies := send(d, src, "u", "!grant 55 mod.kick")
	assert.Equal(t, []string{"You are not allowed to use this command!"}, replies)
	assert.False(t, d.HasPermission("55", "mod.kick"))
}

func TestGrantAcceptsMentions(t *testing.T) {
	d, src := setup(t, nil)
	d.GrantPermission("admin", "permissions.*")

	assert.Equal(t, []string{"Granted mod.kick to 55."}, send(d, src, "admin", "!grant <@!55> mod.kick"))
	assert.True(t, d.HasPermission("55", "mod.kick"))
	assert.Equal(t, []string{"Usage: grant <user> <permission>"}, send(d, src, "admin", "!grant 55"))
}

func TestPerms(t *testing.T) {
	d, src := setup(t, nil)
	d.GrantPermission("u", "a.b")
	d.GrantPermission("u", "c")

	assert.Equal(t, []string{"u: a.b, c"}, send(d, src, "u", "!perms"))
	assert.Equal(t, []string{"99 has no permissions."}, send(d, src, "u", "!perms <@99>"))
}

func TestHistory(t *testing.T) {
	mem := audit.NewMemory(0)
	require.NoError(t, mem.Record(context.Background(), audit.Entry{
		Platform: "discord", UserID: "u1", Command: "!ping", Outcome: audit.OutcomeOK,
		At: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}))
	d, src := setup(t, mem)
	d.GrantPermission("admin", "audit.read")

	sink := &chattest.Sink{Notify: make(chan string, 1)}
	d.Handle(context.Background(), chattest.Event(src, "admin", "!history 5", sink))

	select {
	case reply := <-sink.Notify:
		assert.True(t, strings.HasPrefix(reply, "2026-01-02 03:04:05 discord"), reply)
		assert.Contains(t, reply, "!ping ok")
	case <-time.After(2 * time.Second):
		t.Fatal("history reply never arrived")
	}
}
