package middleware

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/cmdcore/core/chat"
	"github.com/m3rciful/cmdcore/core/logger"
)

const dedupeWindow = 10 * time.Second

// seen remembers recently handled event ids so redelivered messages are
// dropped. Expired ids are swept at most once per window.
type seen struct {
	mu     sync.Mutex
	window time.Duration
	ids    map[string]time.Time
	swept  time.Time
}

func (s *seen) check(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.swept) > s.window {
		for id, ts := range s.ids {
			if now.Sub(ts) > s.window {
				delete(s.ids, id)
			}
		}
		s.swept = now
	}
	if ts, ok := s.ids[key]; ok && now.Sub(ts) <= s.window {
		return true
	}
	s.ids[key] = now
	return false
}

// Logger attaches rid and event metadata to the context, drops events whose
// id was already seen within the dedupe window and logs one receipt line and
// one completion line per message.
func Logger() Middleware {
	recent := &seen{window: dedupeWindow, ids: make(map[string]time.Time)}
	return func(next chat.Handler) chat.Handler {
		return func(ctx context.Context, ev chat.Event) {
			if ctx == nil {
				ctx = context.Background()
			}
			platform := ev.Platform()
			id := ev.ID
			if id != "" && recent.check(platform+":"+id, time.Now()) {
				logger.Adapter.LogAttrs(ctx, slog.LevelDebug, "message.duplicate",
					slog.String("platform", platform),
					slog.String("message_id", id),
				)
				return
			}
			if id == "" {
				id = uuid.NewString()
			}
			ctx = logger.WithRID(ctx, logger.BuildRID(platform, id))
			ctx = logger.WithEventMeta(ctx, platform, ev.AuthorID, ev.ChannelID)
			ctx = logger.WithLogger(ctx, logger.Adapter)

			sampled := logger.ShouldSampleDebug()
			if sampled {
				logger.LogEvent(ctx, logger.Adapter, slog.LevelDebug, "message.received",
					slog.Bool("private", ev.Private),
					slog.String("payload", logger.SanitizeLimit(ev.Text, 256)),
				)
			}

			counter := &countingSink{next: ev.Reply}
			if ev.Reply != nil {
				ev.Reply = counter
			}
			start := time.Now()
			next(ctx, ev)

			if sampled || counter.sent.Load() > 0 {
				logger.LogEvent(ctx, logger.Adapter, slog.LevelDebug, "message.done",
					slog.Int64("count", counter.sent.Load()),
					slog.Duration("duration", logger.Took(start)),
				)
			}
		}
	}
}

// countingSink counts successful replies sent while handling one message.
type countingSink struct {
	next chat.Sink
	sent atomic.Int64
}

func (c *countingSink) Send(ctx context.Context, text string) error {
	err := c.next.Send(ctx, text)
	if err == nil {
		c.sent.Add(1)
	}
	return err
}
