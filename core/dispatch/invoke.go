package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"

	"github.com/m3rciful/cmdcore/core/command"
	"github.com/m3rciful/cmdcore/core/logger"
)

// InvocationError wraps a failure raised by a command body.
type InvocationError struct {
	Command string
	Cause   error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("command %q: %v", e.Command, e.Cause)
}

func (e *InvocationError) Unwrap() error { return e.Cause }

// invoke runs the command body, converting panics into InvocationError.
func invoke(ctx context.Context, cmd command.Command, args command.Args) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Dispatch.LogAttrs(ctx, slog.LevelError, "command.panic",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			result = nil
			err = &InvocationError{Command: cmd.Name(), Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	result, err = cmd.Func()(ctx, args)
	if err != nil {
		return nil, &InvocationError{Command: cmd.Name(), Cause: err}
	}
	return result, nil
}

// Stringify renders a command result as reply text. Nil and typed-nil
// results are absent.
func Stringify(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return "", false
		}
	}
	switch x := v.(type) {
	case string:
		return x, true
	case fmt.Stringer:
		return x.String(), true
	case error:
		return x.Error(), true
	}
	return fmt.Sprint(v), true
}
