package console

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/cmdcore/core/chat"
	coreconfig "github.com/m3rciful/cmdcore/core/config"
)

type scriptedReader struct {
	lines  []string
	closed bool
}

func (s *scriptedReader) Readline() (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedReader) Close() error {
	s.closed = true
	return nil
}

func TestRunDeliversLinesAsEvents(t *testing.T) {
	a, err := New(coreconfig.ConsoleConfig{UserID: "me", Private: true, Tokenizer: "space"})
	require.NoError(t, err)
	reader := &scriptedReader{lines: []string{"ping", "", "echo  hi"}}
	a.newReader = func() (lineReader, error) { return reader, nil }
	out := &bytes.Buffer{}
	a.out = out

	var events []chat.Event
	err = a.Run(context.Background(), func(ctx context.Context, ev chat.Event) {
		events = append(events, ev)
		require.NoError(t, ev.Reply.Send(ctx, "re: "+ev.Text))
	})
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "me", events[0].AuthorID)
	assert.True(t, events[0].Private)
	assert.Equal(t, int64(2), events[1].Sequence)
	assert.Equal(t, "2", events[1].ID)
	assert.Equal(t, []string{"echo", "", "hi"}, events[1].Source.Tokenizer().Split(events[1].Text))
	assert.Equal(t, "re: ping\nre: echo  hi\n", out.String())
	assert.True(t, reader.closed)
}

func TestSourceResolvesMentions(t *testing.T) {
	a, err := New(coreconfig.ConsoleConfig{})
	require.NoError(t, err)

	id, ok := a.Mentions().UserID("<@cmdcore>")
	require.True(t, ok)
	assert.Equal(t, BotID, id)
	assert.Equal(t, BotID, a.Self().MentionKey())

	u, ok := a.ResolveUser(context.Background(), "alice")
	assert.True(t, ok)
	assert.Equal(t, User{ID: "alice"}, u)
	assert.Equal(t, chat.SplitWhitespace, a.Tokenizer())
}

func TestNewRejectsUnknownTokenizer(t *testing.T) {
	_, err := New(coreconfig.ConsoleConfig{Tokenizer: "regex"})
	assert.Error(t, err)
}
