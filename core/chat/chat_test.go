package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizerSplit(t *testing.T) {
	cases := []struct {
		name string
		mode Tokenizer
		text string
		want []string
	}{
		{"whitespace runs", SplitWhitespace, "!greet   Alice\tBob", []string{"!greet", "Alice", "Bob"}},
		{"whitespace keeps newline", SplitWhitespace, "!say a\nb", []string{"!say", "a\nb"}},
		{"whitespace leading", SplitWhitespace, "  !ping", []string{"", "!ping"}},
		{"whitespace trailing", SplitWhitespace, "!ping  ", []string{"!ping"}},
		{"space keeps empties", SplitSpace, "!greet  Alice", []string{"!greet", "", "Alice"}},
		{"space trailing", SplitSpace, "!greet Alice  ", []string{"!greet", "Alice"}},
		{"space tab not split", SplitSpace, "!greet\tAlice", []string{"!greet\tAlice"}},
		{"empty text", SplitWhitespace, "", []string{""}},
		{"only separators", SplitSpace, "   ", []string{""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.mode.Split(tc.text))
		})
	}
}

func TestParseTokenizer(t *testing.T) {
	got, err := ParseTokenizer("", SplitSpace)
	require.NoError(t, err)
	assert.Equal(t, SplitSpace, got)

	got, err = ParseTokenizer(" Whitespace ", SplitSpace)
	require.NoError(t, err)
	assert.Equal(t, SplitWhitespace, got)

	_, err = ParseTokenizer("tabs", SplitSpace)
	assert.Error(t, err)
}

func TestDiscordMentions(t *testing.T) {
	id, ok := DiscordMentions.UserID("<@!1234>")
	require.True(t, ok)
	assert.Equal(t, "1234", id)

	id, ok = DiscordMentions.UserID("<@42>,")
	require.True(t, ok)
	assert.Equal(t, "42", id)

	_, ok = DiscordMentions.UserID("@someone")
	assert.False(t, ok)

	id, ok = DiscordMentions.ChannelID("<#99>")
	require.True(t, ok)
	assert.Equal(t, "99", id)

	_, ok = DiscordMentions.ChannelID("x<#99>")
	assert.False(t, ok)
}

func TestSlackAndTelegramMentions(t *testing.T) {
	id, ok := SlackMentions.UserID("<@U01ABC|alice>")
	require.True(t, ok)
	assert.Equal(t, "U01ABC", id)

	id, ok = SlackMentions.ChannelID("<#C0GENERAL|general>")
	require.True(t, ok)
	assert.Equal(t, "C0GENERAL", id)

	id, ok = TelegramMentions.UserID("@cmd_bot")
	require.True(t, ok)
	assert.Equal(t, "cmd_bot", id)

	_, ok = TelegramMentions.ChannelID("#general")
	assert.False(t, ok)
}

func TestIdentityMentionKey(t *testing.T) {
	assert.Equal(t, "1", Identity{ID: "1"}.MentionKey())
	assert.Equal(t, "bot", Identity{ID: "1", MentionID: "bot"}.MentionKey())
}

func TestChunk(t *testing.T) {
	assert.Equal(t, []string{"short"}, Chunk("short", 10))
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, Chunk("abcdefghij", 4))
	assert.Equal(t, []string{"ab\n", "cdef", "g"}, Chunk("ab\ncdefg", 4))

	long := strings.Repeat("é", 2500)
	parts := Chunk(long, 2000)
	assert.Len(t, parts, 2)
	assert.Equal(t, long, parts[0]+parts[1])
}
