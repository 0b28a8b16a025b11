// Package sender runs outbound Telegram API calls on a bounded worker pool
// with retries for transient failures.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/cmdcore/core/logger"
	"github.com/m3rciful/cmdcore/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned when Enqueue is called after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options controls the behaviour of the outbound queue.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

type job struct {
	ctx    context.Context
	action string
	run    func(ctx context.Context) error
}

// Queue executes outbound calls asynchronously.
type Queue struct {
	opts Options
	jobs chan job

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	errs atomic.Uint64
}

// NewQueue starts the workers, filling zero options with defaults.
func NewQueue(opts Options) *Queue {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}
	q := &Queue{opts: opts, jobs: make(chan job, opts.QueueSize)}
	q.wg.Add(opts.Workers)
	for range opts.Workers {
		go q.worker()
	}
	return q
}

// Enqueue schedules run. It must be safe to call run more than once.
func (q *Queue) Enqueue(ctx context.Context, action string, run func(ctx context.Context) error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job{ctx: context.WithoutCancel(ctx), action: action, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Do enqueues run, or runs it on the caller when the queue refuses the job.
func (q *Queue) Do(ctx context.Context, action string, run func(ctx context.Context) error) error {
	err := q.Enqueue(ctx, action, run)
	if errors.Is(err, ErrQueueFull) || errors.Is(err, ErrQueueClosed) {
		logger.LogEvent(ctx, logger.Send, slog.LevelWarn, "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return run(ctx)
	}
	return err
}

// ErrorCount returns the number of jobs that failed after all retries.
func (q *Queue) ErrorCount() uint64 {
	return q.errs.Load()
}

// Close stops accepting jobs and waits for queued ones to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for j := range q.jobs {
		q.handle(j)
	}
}

func (q *Queue) handle(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, q.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := q.opts.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		lastErr = j.run(ctx)
		if lastErr == nil {
			if attempt > 1 {
				logger.LogEvent(j.ctx, logger.Send, slog.LevelInfo, "send.retry.success",
					slog.String("action", j.action),
					slog.Int("attempt", attempt),
					slog.Duration("duration", logger.Took(start)),
				)
			}
			return
		}
		if attempt == attempts || !retryable(lastErr) {
			break
		}
		delay := backoff(lastErr, q.opts.RetryBackoff, attempt)
		logger.LogEvent(j.ctx, logger.Send, slog.LevelDebug, "send.retry.backoff",
			slog.String("action", j.action),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			lastErr = ctx.Err()
			attempt = attempts
		case <-timer.C:
		}
	}

	q.errs.Add(1)
	logger.LogEvent(j.ctx, logger.Send, slog.LevelError, "send.fail",
		slog.String("action", j.action),
		slog.String("error", SanitizeError(lastErr)),
		slog.String("error_kind", ClassifyError(lastErr)),
		slog.Int("attempts", attempts),
		slog.Duration("duration", logger.Took(start)),
	)
}

func retryable(err error) bool {
	if _, ok := floodWait(err); ok {
		return true
	}
	return netutil.ShouldRetry(err)
}

// backoff grows linearly with the attempt number unless Telegram asked for a
// specific wait.
func backoff(err error, base time.Duration, attempt int) time.Duration {
	if wait, ok := floodWait(err); ok {
		return wait
	}
	return base * time.Duration(attempt)
}
