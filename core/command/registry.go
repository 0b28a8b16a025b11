package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode"

	"github.com/m3rciful/cmdcore/core/logger"
)

// Registry indexes commands by normalized alias and keeps registration order.
type Registry struct {
	mu      sync.RWMutex
	prefix  string
	byAlias map[string]*Registered
	ordered []*Registered
}

// NewRegistry creates an empty Registry without a default prefix.
func NewRegistry() *Registry {
	return &Registry{byAlias: make(map[string]*Registered)}
}

// SetDefaultPrefix sets the prefix baked into aliases registered afterwards.
// Already registered aliases keep their keys.
func (r *Registry) SetDefaultPrefix(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefix = prefix
}

// DefaultPrefix returns the current default prefix.
func (r *Registry) DefaultPrefix() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prefix
}

// RegisterExecutor registers every command the executor declares.
func (r *Registry) RegisterExecutor(exec Executor) error {
	if exec == nil {
		return errors.New("command: nil executor")
	}
	return r.Register(exec, exec.Commands()...)
}

// Register adds cmds owned by exec. An invalid command is skipped and
// reported in the joined error; the remaining commands are still registered.
// When two commands share an alias the later one takes the alias.
func (r *Registry) Register(exec Executor, cmds ...Command) error {
	var errs []error
	for i, cmd := range cmds {
		if err := r.register(exec, cmd); err != nil {
			logger.Registry.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
				slog.Int("index", i),
				slog.String("reason", err.Error()),
			)
			errs = append(errs, fmt.Errorf("command #%d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) register(exec Executor, cmd Command) error {
	if len(cmd.aliases) == 0 {
		return ErrNoAliases
	}
	if cmd.run == nil {
		return fmt.Errorf("%q: %w", cmd.Name(), ErrNilFunc)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rc := &Registered{Command: cmd, Executor: exec, Prefix: r.prefix}
	for _, alias := range cmd.aliases {
		key := Key(r.prefix, alias)
		if prev, exists := r.byAlias[key]; exists {
			logger.Registry.LogAttrs(context.Background(), slog.LevelWarn, "register.alias.overwrite",
				slog.String("alias", key),
				slog.String("previous", prev.Name()),
				slog.String("command", cmd.Name()),
			)
		}
		r.byAlias[key] = rc
	}
	r.ordered = append(r.ordered, rc)

	logger.Registry.LogAttrs(context.Background(), slog.LevelDebug, "register.command",
		slog.String("command", cmd.Name()),
		slog.Int("aliases", len(cmd.aliases)),
		slog.String("permission", cmd.permission),
	)
	return nil
}

// Lookup finds the command for a message token, ignoring case.
func (r *Registry) Lookup(token string) (*Registered, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rc, ok := r.byAlias[strings.ToLower(token)]
	return rc, ok
}

// List returns registered commands in registration order.
func (r *Registry) List() []*Registered {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Registered(nil), r.ordered...)
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}

// Key builds the lookup key for alias: prefix prepended, whitespace removed,
// lowercased.
func Key(prefix, alias string) string {
	return strings.ToLower(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, prefix+alias))
}
