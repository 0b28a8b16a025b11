package bootstrap

import (
	"context"

	"github.com/m3rciful/cmdcore/core/command"
	"github.com/m3rciful/cmdcore/core/dispatch"
)

// Module contributes commands, grants or other setup to a dispatcher.
type Module interface {
	Register(ctx context.Context, d *dispatch.Dispatcher) error
}

// ModuleFunc adapts a bare function to the Module interface.
type ModuleFunc func(ctx context.Context, d *dispatch.Dispatcher) error

// Register executes the underlying function.
func (f ModuleFunc) Register(ctx context.Context, d *dispatch.Dispatcher) error {
	return f(ctx, d)
}

// Executors wraps command executors as a Module.
func Executors(execs ...command.Executor) Module {
	return ModuleFunc(func(_ context.Context, d *dispatch.Dispatcher) error {
		for _, exec := range execs {
			if err := d.RegisterCommand(exec); err != nil {
				return err
			}
		}
		return nil
	})
}
