package sender

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestQueueRetriesTransientErrors(t *testing.T) {
	q := NewQueue(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	done := make(chan struct{})

	require.NoError(t, q.Enqueue(context.Background(), "send.text", func(context.Context) error {
		if calls.Add(1) < 3 {
			return timeoutErr{}
		}
		close(done)
		return nil
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not succeed")
	}
	q.Close()
	assert.Equal(t, int32(3), calls.Load())
	assert.Zero(t, q.ErrorCount())
}

func TestQueueGivesUpOnPermanentErrors(t *testing.T) {
	q := NewQueue(Options{Workers: 1, MaxRetries: 5, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	require.NoError(t, q.Enqueue(context.Background(), "send.text", func(context.Context) error {
		calls.Add(1)
		return &tele.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"}
	}))
	q.Close()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint64(1), q.ErrorCount())
}

func TestQueueClosed(t *testing.T) {
	q := NewQueue(Options{})
	q.Close()
	q.Close()

	err := q.Enqueue(context.Background(), "send.text", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)

	ran := false
	require.NoError(t, q.Do(context.Background(), "send.text", func(context.Context) error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
}

func TestEnqueueRejectsNil(t *testing.T) {
	q := NewQueue(Options{Workers: 1})
	defer q.Close()
	assert.Error(t, q.Enqueue(context.Background(), "noop", nil))
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "", ClassifyError(nil))
	assert.Equal(t, "timeout", ClassifyError(context.DeadlineExceeded))
	assert.Equal(t, "timeout", ClassifyError(timeoutErr{}))
	assert.Equal(t, "flood", ClassifyError(tele.FloodError{RetryAfter: 3}))
	assert.Equal(t, "http_4xx", ClassifyError(&tele.Error{Code: 400, Description: "Bad Request"}))
	assert.Equal(t, "http_5xx", ClassifyError(errors.New("telegram: internal error (502)")))
	assert.Equal(t, "unknown", ClassifyError(errors.New("boom")))
}

func TestBackoffHonoursFloodWait(t *testing.T) {
	assert.Equal(t, 3*time.Second, backoff(tele.FloodError{RetryAfter: 3}, time.Second, 1))
	assert.Equal(t, 2*time.Second, backoff(timeoutErr{}, time.Second, 2))
	assert.True(t, retryable(tele.FloodError{RetryAfter: 1}))
	assert.False(t, retryable(errors.New("bad request")))
}

func TestSanitizeError(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AAE-x_y/sendMessage": EOF`)
	assert.Equal(t, `Post "https://api.telegram.org/bot<redacted>/sendMessage": EOF`, SanitizeError(err))
	assert.Equal(t, "", SanitizeError(nil))
}
