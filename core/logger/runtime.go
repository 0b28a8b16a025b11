package logger

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
)

type contextKey string

const (
	ctxRID       contextKey = "rid"
	ctxPlatform  contextKey = "platform"
	ctxUserID    contextKey = "user_id"
	ctxChannelID contextKey = "channel_id"
	ctxLogger    contextKey = "logger"
	ctxCommand   contextKey = "command"
)

// WithLogger stores the provided slog.Logger in context for propagation across layers.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxLogger, log)
}

// FromContext extracts slog.Logger from context or returns L.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if l, ok := ctx.Value(ctxLogger).(*slog.Logger); ok {
		return l
	}
	return L
}

// WithRID attaches request correlation id into context.
func WithRID(ctx context.Context, rid string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRID, rid)
}

// RIDFrom extracts rid from context if present.
func RIDFrom(ctx context.Context) string {
	return stringValue(ctx, ctxRID)
}

// WithEventMeta attaches the identifiers of an incoming chat message.
func WithEventMeta(ctx context.Context, platform, userID, channelID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxPlatform, platform)
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxChannelID, channelID)
	return ctx
}

// WithCommand stores the canonical command name for downstream logs.
func WithCommand(ctx context.Context, name string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxCommand, name)
}

// CommandFrom returns the command name from context if present.
func CommandFrom(ctx context.Context) string { return stringValue(ctx, ctxCommand) }

// PlatformFrom returns the chat platform from context if present.
func PlatformFrom(ctx context.Context) string { return stringValue(ctx, ctxPlatform) }

// UserIDFrom returns the author id from context if present.
func UserIDFrom(ctx context.Context) string { return stringValue(ctx, ctxUserID) }

// ChannelIDFrom returns the channel id from context if present.
func ChannelIDFrom(ctx context.Context) string { return stringValue(ctx, ctxChannelID) }

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

// Sanitize removes control and format characters except tab and newline.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	b := strings.Builder{}
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizeLimit applies Sanitize and limits the output length in runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(Sanitize(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max])
}

// BuildRID returns a correlation identifier in the format platform:messageID.
func BuildRID(platform, messageID string) string {
	return platform + ":" + messageID
}

// CompactRID shortens a platform:messageID rid for readability. Numeric
// message ids become base36; uuids keep their first block. Anything else is
// returned unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	platform, id, ok := strings.Cut(rid, ":")
	if !ok || platform == "" || id == "" {
		return rid
	}
	if n, err := strconv.ParseInt(id, 10, 64); err == nil && n >= 0 {
		return platform + ":" + strconv.FormatInt(n, 36)
	}
	if len(id) == 36 && strings.Count(id, "-") == 4 {
		return platform + ":" + id[:8]
	}
	return rid
}
