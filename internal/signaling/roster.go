// Package signaling implements the server-side presence and call-setup
// protocol (§3, §4.2): the roster of logged-in users, the active call
// registry, the per-connection fan-in queue, and the connection handler
// state machine that ties them together.
package signaling

import (
	"log/slog"
	"sync"
)

// Roster is the process-wide map of Username to that user's Outbox
// (component 5). Keyed by username, unique process-wide; entries are
// created on successful HELLO and destroyed when the owning connection
// closes or is replaced.
type Roster struct {
	mu    sync.RWMutex
	users map[string]*Outbox
}

// NewRoster returns an empty Roster.
func NewRoster() *Roster {
	return &Roster{users: make(map[string]*Outbox)}
}

// Register inserts username atomically if it is not already present. It
// reports false (without mutating the roster) if the name is taken, so
// that concurrent HELLOs racing for the same name resolve to exactly one
// winner (§4.2 tie-break).
func (r *Roster) Register(username string, ob *Outbox) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.users[username]; taken {
		return false
	}
	r.users[username] = ob
	slog.Info("user registered", "username", username, "roster_size", len(r.users))
	return true
}

// Unregister removes username if ob is still its current owner. Using the
// Outbox pointer as a fencing token means a handler that has already been
// replaced (e.g. by a later HELLO after this one's cleanup raced) cannot
// accidentally evict the newer registration.
func (r *Roster) Unregister(username string, ob *Outbox) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.users[username]; ok && cur == ob {
		delete(r.users, username)
		slog.Info("user unregistered", "username", username, "roster_size", len(r.users))
	}
}

// Lookup returns the Outbox registered for username, if any.
func (r *Roster) Lookup(username string) (*Outbox, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ob, ok := r.users[username]
	return ob, ok
}

// Usernames returns a stable snapshot of every currently registered
// username.
func (r *Roster) Usernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.users))
	for u := range r.users {
		out = append(out, u)
	}
	return out
}
