// Package cmd loads configuration, bootstraps the runtime and serves every
// enabled adapter until a signal arrives.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/cmdcore/core/bootstrap"
	"github.com/m3rciful/cmdcore/core/chat"
	coreconfig "github.com/m3rciful/cmdcore/core/config"
	"github.com/m3rciful/cmdcore/core/logger"
	"github.com/m3rciful/cmdcore/core/middleware"
)

// DefaultConfigEnvVar names the variable holding the config path.
const DefaultConfigEnvVar = "CONFIG_PATH"

// Options describe how to load configuration, bootstrap the app and serve it.
type Options struct {
	ConfigPath        string
	ConfigEnvVar      string
	DefaultConfigPath string
	Modules           []bootstrap.Module

	LoadConfig     func(path string) (*coreconfig.Config, error)
	Bootstrap      func(ctx context.Context, opts bootstrap.Options) (*bootstrap.Result, error)
	ShutdownLogger func() error
}

// ResolveConfigPath picks the explicit path, then the env var, then the default.
func ResolveConfigPath(opts Options) (string, error) {
	if opts.ConfigPath != "" {
		return opts.ConfigPath, nil
	}
	env := opts.ConfigEnvVar
	if env == "" {
		env = DefaultConfigEnvVar
	}
	if p := os.Getenv(env); p != "" {
		return p, nil
	}
	if opts.DefaultConfigPath != "" {
		return opts.DefaultConfigPath, nil
	}
	return "", fmt.Errorf("cmd: config path not provided via flag, %s or DefaultConfigPath", env)
}

// Run loads configuration, bootstraps the app and serves until SIGINT or SIGTERM.
func Run(opts Options) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return RunContext(ctx, opts)
}

// RunContext is Run with a caller-controlled lifetime.
func RunContext(ctx context.Context, opts Options) error {
	cfgPath, err := ResolveConfigPath(opts)
	if err != nil {
		return err
	}
	load := opts.LoadConfig
	if load == nil {
		load = coreconfig.Load
	}
	log.Printf("loading config: %s", cfgPath)
	cfg, err := load(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}

	boot := opts.Bootstrap
	if boot == nil {
		boot = bootstrap.Run
	}
	res, err := boot(ctx, bootstrap.Options{Config: cfg, Modules: opts.Modules})
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()
	defer func() {
		if err := res.Close(); err != nil {
			logger.L.LogAttrs(context.Background(), slog.LevelWarn, "app.close",
				slog.String("err", err.Error()),
			)
		}
	}()

	app := logger.Component("app")
	app.LogAttrs(ctx, slog.LevelInfo, "app.ready",
		slog.Int("count", len(res.Adapters)),
		slog.Duration("duration", logger.RoundMS(time.Since(res.StartedAt))),
	)
	err = Serve(ctx, res)
	app.LogAttrs(context.Background(), slog.LevelInfo, "app.shutdown",
		slog.String("status", logger.Status(err)),
	)
	return err
}

// Serve runs every adapter against the dispatcher behind the recover and
// logging middleware. An adapter returning cleanly leaves the others running;
// an adapter failure stops them all.
func Serve(ctx context.Context, res *bootstrap.Result) error {
	if res == nil || res.Dispatcher == nil {
		return errors.New("cmd: nothing to serve")
	}
	handler := middleware.Chain(res.Dispatcher.Handle, middleware.Recover, middleware.Logger())

	g, gctx := errgroup.WithContext(ctx)
	for _, a := range res.Adapters {
		g.Go(func() error {
			return runAdapter(gctx, a, handler)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runAdapter(ctx context.Context, a chat.Adapter, h chat.Handler) error {
	err := a.Run(ctx, h)
	lvl := slog.LevelInfo
	if err != nil {
		lvl = slog.LevelError
	}
	attrs := []slog.Attr{
		slog.String("platform", a.Platform()),
		slog.String("status", logger.Status(err)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", err.Error()))
	}
	logger.Adapter.LogAttrs(ctx, lvl, "adapter.exit", attrs...)
	if err != nil {
		return fmt.Errorf("%s: %w", a.Platform(), err)
	}
	return nil
}
