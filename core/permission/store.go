// Package permission holds per-user permission grants and answers
// hierarchical dot-path permission queries.
package permission

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/cmdcore/core/logger"
)

const (
	// None marks a command that anybody may run.
	None = "none"
	// Wildcard matches any segment at its position and everything below it.
	Wildcard = "*"
)

// Store keeps granted permission strings per user id. Grants never expire.
type Store struct {
	mu     sync.RWMutex
	grants map[string][]string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{grants: make(map[string][]string)}
}

// Grant appends permission to the user's list. Duplicates are harmless.
func (s *Store) Grant(userID, permission string) {
	s.mu.Lock()
	s.grants[userID] = append(s.grants[userID], permission)
	s.mu.Unlock()

	logger.Perm.LogAttrs(context.Background(), slog.LevelDebug, "perm.grant",
		slog.String("user_id", userID),
		slog.String("permission", permission),
	)
}

// GrantAll applies every grant from a user id -> permissions map.
func (s *Store) GrantAll(grants map[string][]string) {
	for userID, perms := range grants {
		for _, p := range perms {
			s.Grant(userID, p)
		}
	}
}

// Has reports whether userID holds required. "none" and "" are open to all.
func (s *Store) Has(userID, required string) bool {
	if IsOpen(required) {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, has := range s.grants[userID] {
		if Matches(has, required) {
			return true
		}
	}
	return false
}

// Grants returns a copy of the user's permission list in grant order.
func (s *Store) Grants(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.grants[userID]...)
}

// Users returns the ids of all users with at least one grant, sorted.
func (s *Store) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.grants))
	for id := range s.grants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsOpen reports whether required demands no permission at all.
func IsOpen(required string) bool {
	return required == None || required == ""
}

// Matches reports whether the granted permission has satisfies required.
//
// Segments are compared case-insensitively up to the shorter length. At the
// first differing segment the grant matches only if its segment is "*".
// Without a wildcard both permissions must have the same segment count.
func Matches(has, required string) bool {
	h := segments(has)
	r := segments(required)
	n := min(len(h), len(r))
	for i := 0; i < n; i++ {
		if !strings.EqualFold(h[i], r[i]) {
			return h[i] == Wildcard
		}
	}
	return len(h) == len(r)
}

// segments splits on "." dropping trailing empty segments, so "admin." and
// "admin" compare equal.
func segments(p string) []string {
	parts := strings.Split(p, ".")
	end := len(parts)
	for end > 1 && parts[end-1] == "" {
		end--
	}
	return parts[:end]
}
