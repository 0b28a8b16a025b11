package params

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/m3rciful/cmdcore/core/chat"
	"github.com/m3rciful/cmdcore/core/command"
)

type user struct{ id string }
type channel struct{ id string }

type fakeSource struct {
	users    map[string]user
	channels map[string]channel
}

func (f fakeSource) Platform() string          { return "fake" }
func (f fakeSource) Self() chat.Identity       { return chat.Identity{ID: "bot"} }
func (f fakeSource) Mentions() chat.Mentions   { return chat.DiscordMentions }
func (f fakeSource) Tokenizer() chat.Tokenizer { return chat.SplitWhitespace }

func (f fakeSource) ResolveUser(_ context.Context, id string) (any, bool) {
	u, ok := f.users[id]
	return u, ok
}

func (f fakeSource) ResolveChannel(_ context.Context, id string) (any, bool) {
	c, ok := f.channels[id]
	return c, ok
}

func TestResolveTokens(t *testing.T) {
	kinds := []command.Param{command.ParamToken, command.ParamToken, command.ParamToken, command.ParamToken}
	got := Resolve(context.Background(), kinds, []string{"!GREET", "Alice", "Bob"}, chat.Event{})

	assert.Equal(t, command.Args{"!GREET", "Alice", "Bob", nil}, got)
}

func TestResolveArgsAreCopied(t *testing.T) {
	tokens := []string{"!say", "a", "b"}
	got := Resolve(context.Background(), []command.Param{command.ParamArgs}, tokens, chat.Event{})
	tokens[1] = "changed"

	assert.Equal(t, []string{"a", "b"}, got.Strings(0))
}

func TestResolveArgsEmptyWhenNoArguments(t *testing.T) {
	got := Resolve(context.Background(), []command.Param{command.ParamArgs, command.ParamParsed}, []string{"!ping"}, chat.Event{})

	assert.Equal(t, []string{}, got.Strings(0))
	assert.Equal(t, []any{}, got.Values(1))
}

func TestResolveContextHandles(t *testing.T) {
	ev := chat.Event{
		Sequence: 17,
		Handles: chat.Handles{
			Message: "msg",
			Client:  "client",
			Channel: "chan",
			Author:  "author",
		},
	}
	kinds := []command.Param{
		command.ParamMessage, command.ParamClient, command.ParamChannel, command.ParamAuthor,
		command.ParamGuild, command.ParamSequence, command.ParamUnknown, command.Param(1000),
	}
	got := Resolve(context.Background(), kinds, []string{"!x"}, ev)

	assert.Equal(t, command.Args{"msg", "client", "chan", "author", nil, int64(17), nil, nil}, got)
}

func TestResolveEventParam(t *testing.T) {
	ev := chat.Event{ID: "m1", Text: "!x"}
	got := Resolve(context.Background(), []command.Param{command.ParamEvent}, []string{"!x"}, ev)

	assert.Equal(t, ev, got.Value(0))
}

func TestParseValueOrder(t *testing.T) {
	src := fakeSource{
		users:    map[string]user{"42": {id: "42"}},
		channels: map[string]channel{"7": {id: "7"}},
	}
	ctx := context.Background()

	assert.Equal(t, int64(123), ParseValue(ctx, src, "123"))
	assert.Equal(t, int64(-5), ParseValue(ctx, src, "-5"))
	assert.Equal(t, user{id: "42"}, ParseValue(ctx, src, "<@!42>"))
	assert.Equal(t, "<@99>", ParseValue(ctx, src, "<@99>"))
	assert.Equal(t, channel{id: "7"}, ParseValue(ctx, src, "<#7>"))
	assert.Equal(t, "<#8>", ParseValue(ctx, src, "<#8>"))
	assert.Equal(t, "hello", ParseValue(ctx, src, "hello"))
	assert.Equal(t, "hello", ParseValue(ctx, nil, "hello"))
}

func TestResolveParsed(t *testing.T) {
	src := fakeSource{users: map[string]user{"1": {id: "1"}}}
	ev := chat.Event{Source: src}
	got := Resolve(context.Background(), []command.Param{command.ParamToken, command.ParamParsed},
		[]string{"!ban", "<@1>", "30", "spam"}, ev)

	assert.Equal(t, "!ban", got.String(0))
	assert.Equal(t, []any{user{id: "1"}, int64(30), "spam"}, got.Values(1))
}
