// Package middleware wraps chat.Handler with cross-cutting behaviour shared
// by every adapter.
package middleware

import "github.com/m3rciful/cmdcore/core/chat"

// Middleware decorates a handler.
type Middleware func(chat.Handler) chat.Handler

// Chain applies mws so that the first one is outermost.
func Chain(h chat.Handler, mws ...Middleware) chat.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}
