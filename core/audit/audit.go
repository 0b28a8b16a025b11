// Package audit journals command invocation outcomes.
package audit

import (
	"context"
	"sync"
	"time"
)

// Outcome of a command invocation.
type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeFail   Outcome = "fail"
	OutcomeDenied Outcome = "denied"
)

// Entry is one journaled invocation.
type Entry struct {
	RID       string        `db:"rid"`
	Platform  string        `db:"platform"`
	Command   string        `db:"command"`
	Alias     string        `db:"alias"`
	UserID    string        `db:"user_id"`
	ChannelID string        `db:"channel_id"`
	Private   bool          `db:"private"`
	Outcome   Outcome       `db:"outcome"`
	Error     string        `db:"error"`
	Duration  time.Duration `db:"-"`
	At        time.Time     `db:"created_at"`
}

// Recorder persists entries. Implementations must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Reader lists the most recent entries, newest first.
type Reader interface {
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// Nop discards every entry.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Entry) error { return nil }

// Memory keeps the last Limit entries in process memory.
type Memory struct {
	Limit int

	mu      sync.Mutex
	entries []Entry
}

// NewMemory creates a Memory recorder bounded to limit entries; limit <= 0
// keeps everything.
func NewMemory(limit int) *Memory {
	return &Memory{Limit: limit}
}

// Record implements Recorder.
func (m *Memory) Record(_ context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	if m.Limit > 0 && len(m.entries) > m.Limit {
		m.entries = append([]Entry(nil), m.entries[len(m.entries)-m.Limit:]...)
	}
	return nil
}

// Recent implements Reader.
func (m *Memory) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, 0, n)
	for i := len(m.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

// Entries returns a copy of everything recorded, oldest first.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}
