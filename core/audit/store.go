package audit

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/cmdcore/core/logger"
)

// Migrations holds the journal schema.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

const insertInvocation = `
INSERT INTO command_invocations
    (rid, platform, command, alias, user_id, channel_id, private, outcome, error, duration_ms, created_at)
VALUES
    (:rid, :platform, :command, :alias, :user_id, :channel_id, :private, :outcome, :error, :duration_ms, :created_at)`

const selectRecent = `
SELECT rid, platform, command, alias, user_id, channel_id, private, outcome, error, duration_ms, created_at
FROM command_invocations
ORDER BY created_at DESC, id DESC
LIMIT $1`

// Store journals invocations into Postgres.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type row struct {
	Entry
	DurationMS int64 `db:"duration_ms"`
}

// Record implements Recorder.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	r := row{Entry: e, DurationMS: e.Duration.Milliseconds()}
	if _, err := s.db.NamedExecContext(ctx, insertInvocation, r); err != nil {
		logger.Audit.LogAttrs(ctx, slog.LevelWarn, "audit.write",
			slog.String("status", "fail"),
			slog.String("command", e.Command),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("audit: insert invocation: %w", err)
	}
	return nil
}

// Recent implements Reader.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, selectRecent, limit); err != nil {
		return nil, fmt.Errorf("audit: select recent: %w", err)
	}
	out := make([]Entry, len(rows))
	for i, r := range rows {
		out[i] = r.Entry
		out[i].Duration = time.Duration(r.DurationMS) * time.Millisecond
	}
	return out, nil
}
