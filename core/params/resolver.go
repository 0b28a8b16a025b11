// Package params binds a command's declared parameter kinds to values taken
// from the message that triggered it.
package params

import (
	"context"
	"strconv"

	"github.com/m3rciful/cmdcore/core/chat"
	"github.com/m3rciful/cmdcore/core/command"
)

// Resolve produces positional arguments for kinds. tokens[0] must be the
// token that matched the command; the rest are its arguments. Resolution
// never fails: anything unavailable resolves to nil.
func Resolve(ctx context.Context, kinds []command.Param, tokens []string, ev chat.Event) command.Args {
	out := make(command.Args, len(kinds))
	if len(kinds) == 0 {
		return out
	}

	var matched string
	var args []string
	if len(tokens) > 0 {
		matched = tokens[0]
		args = tokens[1:]
	}

	tokenCount := 0
	for i, kind := range kinds {
		switch kind {
		case command.ParamToken:
			tokenCount++
			if tokenCount == 1 {
				out[i] = matched
			} else if n := tokenCount - 2; n < len(args) {
				out[i] = args[n]
			}
		case command.ParamArgs:
			out[i] = append([]string{}, args...)
		case command.ParamParsed:
			out[i] = ParseValues(ctx, ev.Source, args)
		case command.ParamEvent:
			out[i] = ev
		case command.ParamMessage:
			out[i] = ev.Handles.Message
		case command.ParamClient:
			out[i] = ev.Handles.Client
		case command.ParamChannel:
			out[i] = ev.Handles.Channel
		case command.ParamAuthor:
			out[i] = ev.Handles.Author
		case command.ParamGuild:
			out[i] = ev.Handles.Guild
		case command.ParamSequence:
			out[i] = ev.Sequence
		default:
			out[i] = nil
		}
	}
	return out
}

// ParseValues applies ParseValue to every token.
func ParseValues(ctx context.Context, src chat.Source, tokens []string) []any {
	out := make([]any, len(tokens))
	for i, tok := range tokens {
		out[i] = ParseValue(ctx, src, tok)
	}
	return out
}

// ParseValue converts token to the first thing it can be: an int64, a
// resolved user mention, a resolved channel mention, or the token itself.
func ParseValue(ctx context.Context, src chat.Source, token string) any {
	if n, err := strconv.ParseInt(token, 10, 64); err == nil {
		return n
	}
	if src == nil {
		return token
	}
	mentions := src.Mentions()
	if mentions == nil {
		return token
	}
	if id, ok := mentions.UserID(token); ok {
		if user, found := src.ResolveUser(ctx, id); found && user != nil {
			return user
		}
	}
	if id, ok := mentions.ChannelID(token); ok {
		if ch, found := src.ResolveChannel(ctx, id); found && ch != nil {
			return ch
		}
	}
	return token
}
