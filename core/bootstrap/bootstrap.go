// Package bootstrap assembles the runtime: logger, optional audit database,
// dispatcher with its commands and grants, and the enabled chat adapters.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/cmdcore/core/audit"
	"github.com/m3rciful/cmdcore/core/builtin"
	"github.com/m3rciful/cmdcore/core/chat"
	coreconfig "github.com/m3rciful/cmdcore/core/config"
	coredatabase "github.com/m3rciful/cmdcore/core/database"
	"github.com/m3rciful/cmdcore/core/dispatch"
	"github.com/m3rciful/cmdcore/core/logger"
)

// memoryJournalSize bounds the in-process journal used when audit is disabled.
const memoryJournalSize = 500

// Options control the bootstrap pipeline. Nil funcs select the defaults.
type Options struct {
	Config  *coreconfig.Config
	Modules []Module

	LoggerInit  func(*coreconfig.Config) error
	Connect     func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate     func(context.Context, coredatabase.Config, fs.FS, string) error
	NewAdapters func(*coreconfig.Config) ([]chat.Adapter, error)
}

// Result exposes what the pipeline built.
type Result struct {
	Dispatcher *dispatch.Dispatcher
	Adapters   []chat.Adapter
	Journal    audit.Reader
	DB         *sqlx.DB
	StartedAt  time.Time
}

// Close drains the dispatcher pool and closes the audit database.
func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	if r.Dispatcher != nil {
		r.Dispatcher.Close()
	}
	if r.DB != nil {
		return r.DB.Close()
	}
	return nil
}

// Run initializes infrastructure and builds the dispatcher and adapters.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	cfg := opts.Config
	res := &Result{StartedAt: time.Now()}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	recorder, journal, err := openJournal(ctx, opts, res)
	if err != nil {
		return nil, err
	}
	res.Journal = journal

	dopts := dispatch.OptionsFromConfig(cfg.Dispatch)
	dopts.Recorder = recorder
	d := dispatch.New(dopts)
	res.Dispatcher = d

	d.Permissions().GrantAll(cfg.Permissions)

	if cfg.Dispatch.BuiltinsEnabled() {
		if err := d.RegisterCommand(builtin.New(d, journal)); err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: builtin commands: %w", err)
		}
	}
	for _, m := range opts.Modules {
		if m == nil {
			continue
		}
		if err := m.Register(ctx, d); err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: module registration failed: %w", err)
		}
	}

	newAdapters := opts.NewAdapters
	if newAdapters == nil {
		newAdapters = NewAdapters
	}
	res.Adapters, err = newAdapters(cfg)
	if err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("bootstrap: adapters: %w", err)
	}
	if len(res.Adapters) == 0 {
		_ = res.Close()
		return nil, errors.New("bootstrap: no adapters enabled")
	}

	logger.Dispatch.LogAttrs(ctx, slog.LevelInfo, "bootstrap.done",
		slog.Int("count", len(d.ListCommands())),
		slog.Int("users", len(d.Permissions().Users())),
		slog.Bool("audit", cfg.Audit.Enabled),
		slog.Duration("duration", logger.RoundMS(time.Since(res.StartedAt))),
	)
	return res, nil
}

// openJournal connects and migrates the audit database when enabled and
// falls back to a bounded in-memory journal otherwise.
func openJournal(ctx context.Context, opts Options, res *Result) (audit.Recorder, audit.Reader, error) {
	cfg := opts.Config
	if !cfg.Audit.Enabled {
		mem := audit.NewMemory(memoryJournalSize)
		return mem, mem, nil
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(ctx, cfg.Audit.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(ctx, cfg.Audit.Database, audit.Migrations, audit.MigrationsDir); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}
	res.DB = db
	store := audit.NewStore(db)
	return store, store, nil
}
