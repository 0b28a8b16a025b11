package bootstrap

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/cmdcore/core/audit"
	"github.com/m3rciful/cmdcore/core/chat"
	"github.com/m3rciful/cmdcore/core/chat/chattest"
	"github.com/m3rciful/cmdcore/core/command"
	coreconfig "github.com/m3rciful/cmdcore/core/config"
	coredatabase "github.com/m3rciful/cmdcore/core/database"
	"github.com/m3rciful/cmdcore/core/dispatch"
)

func noLogger(*coreconfig.Config) error { return nil }

func testAdapters(*coreconfig.Config) ([]chat.Adapter, error) {
	return []chat.Adapter{&chattest.Adapter{Source: chattest.NewSource("bot")}}, nil
}

func baseConfig() *coreconfig.Config {
	return &coreconfig.Config{
		Dispatch:    coreconfig.DispatchConfig{Prefix: "!"},
		Permissions: map[string][]string{"admin": {"permissions.*"}},
	}
}

func TestRunBuildsDispatcher(t *testing.T) {
	echo := command.New(func(_ context.Context, in command.Args) (any, error) {
		return in.String(0), nil
	}, command.WithAliases("echo"), command.WithParams(command.ParamToken))

	var modCalled bool
	res, err := Run(context.Background(), Options{
		Config:      baseConfig(),
		LoggerInit:  noLogger,
		NewAdapters: testAdapters,
		Modules: []Module{
			ModuleFunc(func(_ context.Context, d *dispatch.Dispatcher) error {
				modCalled = true
				return d.Register(echo)
			}),
			nil,
		},
	})
	require.NoError(t, err)
	defer res.Close()

	assert.True(t, modCalled)
	assert.Len(t, res.Adapters, 1)
	assert.True(t, res.Dispatcher.HasPermission("admin", "permissions.grant"))
	assert.IsType(t, &audit.Memory{}, res.Journal)
	assert.Nil(t, res.DB)

	_, ok := res.Dispatcher.Registry().Lookup("!help")
	assert.True(t, ok)
	_, ok = res.Dispatcher.Registry().Lookup("!echo")
	assert.True(t, ok)
	_, ok = res.Dispatcher.Registry().Lookup("!history")
	assert.True(t, ok)
}

func TestRunSkipsBuiltinsWhenDisabled(t *testing.T) {
	cfg := baseConfig()
	off := false
	cfg.Dispatch.Builtins = &off

	res, err := Run(context.Background(), Options{Config: cfg, LoggerInit: noLogger, NewAdapters: testAdapters})
	require.NoError(t, err)
	defer res.Close()
	assert.Empty(t, res.Dispatcher.ListCommands())
}

func TestRunFailures(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	assert.Error(t, err)

	_, err = Run(context.Background(), Options{
		Config:     baseConfig(),
		LoggerInit: func(*coreconfig.Config) error { return errors.New("no log dir") },
	})
	assert.ErrorContains(t, err, "logger init failed")

	_, err = Run(context.Background(), Options{
		Config:      baseConfig(),
		LoggerInit:  noLogger,
		NewAdapters: func(*coreconfig.Config) ([]chat.Adapter, error) { return nil, nil },
	})
	assert.ErrorContains(t, err, "no adapters enabled")

	_, err = Run(context.Background(), Options{
		Config:      baseConfig(),
		LoggerInit:  noLogger,
		NewAdapters: testAdapters,
		Modules: []Module{ModuleFunc(func(context.Context, *dispatch.Dispatcher) error {
			return errors.New("bad module")
		})},
	})
	assert.ErrorContains(t, err, "bad module")
}

func TestRunAuditDatabase(t *testing.T) {
	cfg := baseConfig()
	cfg.Audit = coreconfig.AuditConfig{Enabled: true, Database: coreconfig.DatabaseConfig{Host: "db", Name: "cmdcore"}}

	connectErr := errors.New("connection refused")
	_, err := Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: noLogger,
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			return nil, connectErr
		},
		NewAdapters: testAdapters,
	})
	assert.ErrorIs(t, err, connectErr)

	var gotDir string
	_, err = Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: noLogger,
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			return sqlx.Open("postgres", "host=localhost dbname=cmdcore sslmode=disable")
		},
		Migrate: func(_ context.Context, _ coredatabase.Config, fsys fs.FS, dir string) error {
			gotDir = dir
			_, statErr := fs.Stat(fsys, dir)
			require.NoError(t, statErr)
			return errors.New("dirty database")
		},
		NewAdapters: testAdapters,
	})
	assert.ErrorContains(t, err, "migrations failed")
	assert.Equal(t, audit.MigrationsDir, gotDir)
}

func TestNewAdaptersConsole(t *testing.T) {
	cfg := &coreconfig.Config{Console: coreconfig.ConsoleConfig{Enabled: true}}
	out, err := NewAdapters(cfg)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, coreconfig.AdapterConsole, out[0].Platform())

	_, err = NewAdapters(&coreconfig.Config{Discord: coreconfig.DiscordConfig{Enabled: true}})
	assert.Error(t, err)
}

func TestExecutorsModule(t *testing.T) {
	d := dispatch.New(dispatch.Options{})
	exec := executor{command.New(func(context.Context, command.Args) (any, error) { return "x", nil }, command.WithAliases("x"))}
	require.NoError(t, Executors(exec).Register(context.Background(), d))
	assert.Len(t, d.ListCommands(), 1)
}

type executor []command.Command

func (e executor) Commands() []command.Command { return e }
