package middleware

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/cmdcore/core/chat"
	"github.com/m3rciful/cmdcore/core/logger"
)

// Recover catches panics in handlers so one message cannot take down an adapter.
func Recover(next chat.Handler) chat.Handler {
	return func(ctx context.Context, ev chat.Event) {
		defer func() {
			if r := recover(); r != nil {
				logger.Adapter.LogAttrs(ctx, slog.LevelError, "handler.panic",
					slog.String("platform", ev.Platform()),
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		next(ctx, ev)
	}
}
