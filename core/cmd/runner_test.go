package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/cmdcore/core/bootstrap"
	"github.com/m3rciful/cmdcore/core/builtin"
	"github.com/m3rciful/cmdcore/core/chat"
	"github.com/m3rciful/cmdcore/core/chat/chattest"
	coreconfig "github.com/m3rciful/cmdcore/core/config"
	"github.com/m3rciful/cmdcore/core/dispatch"
)

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("CMDCORE_TEST_CONFIG", "/etc/cmdcore.yaml")

	p, err := ResolveConfigPath(Options{ConfigPath: "flag.yaml", ConfigEnvVar: "CMDCORE_TEST_CONFIG"})
	require.NoError(t, err)
	assert.Equal(t, "flag.yaml", p)

	p, err = ResolveConfigPath(Options{ConfigEnvVar: "CMDCORE_TEST_CONFIG", DefaultConfigPath: "config.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "/etc/cmdcore.yaml", p)

	p, err = ResolveConfigPath(Options{ConfigEnvVar: "CMDCORE_UNSET_VAR", DefaultConfigPath: "config.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", p)

	_, err = ResolveConfigPath(Options{ConfigEnvVar: "CMDCORE_UNSET_VAR"})
	assert.Error(t, err)
}

func serveResult(adapters ...chat.Adapter) *bootstrap.Result {
	d := dispatch.New(dispatch.Options{DefaultPrefix: "!"})
	_ = d.RegisterCommand(builtin.New(d, nil))
	return &bootstrap.Result{Dispatcher: d, Adapters: adapters, StartedAt: time.Now()}
}

func TestServeRunsAllAdapters(t *testing.T) {
	a := &chattest.Adapter{Source: chattest.NewSource("bot"), Author: "u", Lines: []string{"!ping"}, Sink: &chattest.Sink{}}
	src := chattest.NewSource("bot")
	src.Name = "other"
	b := &chattest.Adapter{Source: src, Author: "u", Lines: []string{"!ping", "!help"}, Sink: &chattest.Sink{}}

	require.NoError(t, Serve(context.Background(), serveResult(a, b)))
	assert.Equal(t, []string{"pong"}, a.Sink.Replies())
	replies := b.Sink.Replies()
	require.Len(t, replies, 2)
	assert.Equal(t, "pong", replies[0])
	assert.Contains(t, replies[1], "!ping - Check that the bot is alive")
}

func TestServeReportsAdapterFailure(t *testing.T) {
	failing := &chattest.Adapter{Source: chattest.NewSource("bot"), Err: errors.New("gateway refused")}
	err := Serve(context.Background(), serveResult(failing))
	assert.ErrorContains(t, err, "test: gateway refused")

	assert.Error(t, Serve(context.Background(), nil))
}

func TestRunContext(t *testing.T) {
	sink := &chattest.Sink{}
	var shutdown bool
	err := RunContext(context.Background(), Options{
		ConfigPath: "unused.yaml",
		LoadConfig: func(string) (*coreconfig.Config, error) { return &coreconfig.Config{}, nil },
		Bootstrap: func(_ context.Context, opts bootstrap.Options) (*bootstrap.Result, error) {
			res := serveResult(&chattest.Adapter{Source: chattest.NewSource("bot"), Author: "u", Lines: []string{"!ping"}, Sink: sink})
			return res, nil
		},
		ShutdownLogger: func() error { shutdown = true; return nil },
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"pong"}, sink.Replies())
	assert.True(t, shutdown)

	err = RunContext(context.Background(), Options{
		ConfigPath: "missing.yaml",
		LoadConfig: func(string) (*coreconfig.Config, error) { return nil, errors.New("no such file") },
	})
	assert.ErrorContains(t, err, "failed to load config")
}
