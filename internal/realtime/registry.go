package realtime

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Registry is the set of live connections, at most one per identity.
// Critical sections touch only the map; callers do transport I/O outside.
type Registry struct {
	mu       sync.RWMutex
	conns    map[uuid.UUID]*Connection
	draining bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[uuid.UUID]*Connection)}
}

// Register makes conn the live connection for its identity and returns the
// connection it replaced, if any. The replaced connection is not closed.
func (r *Registry) Register(conn *Connection) *Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.conns[conn.UserID()]
	r.conns[conn.UserID()] = conn
	return prev
}

// Deregister removes whatever connection is registered for userID.
// An absent identity yields (nil, false). Sessions use Remove, which cannot
// drop a newer connection; Deregister is the unconditional form.
func (r *Registry) Deregister(userID uuid.UUID) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[userID]
	if ok {
		delete(r.conns, userID)
	}
	return conn, ok
}

// Remove deletes conn only if it is still the live entry for its identity.
// It reports whether an entry was removed.
func (r *Registry) Remove(conn *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conns[conn.UserID()] != conn {
		return false
	}
	delete(r.conns, conn.UserID())
	return true
}

// evict is Remove for a connection whose transport failed. The connection
// is marked evicted under the same lock, so a concurrent Remove by its own
// session observes the mark.
func (r *Registry) evict(conn *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conns[conn.UserID()] != conn {
		return false
	}
	delete(r.conns, conn.UserID())
	conn.evicted.Store(true)
	return true
}

// Get returns the live connection for userID.
func (r *Registry) Get(userID uuid.UUID) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[userID]
	return conn, ok
}

// Snapshot returns the live connections ordered by connection time.
func (r *Registry) Snapshot() []*Connection {
	r.mu.RLock()
	conns := lo.Values(r.conns)
	r.mu.RUnlock()

	slices.SortFunc(conns, func(a, b *Connection) int {
		if c := a.ConnectedAt.Compare(b.ConnectedAt); c != 0 {
			return c
		}
		return slices.Compare(a.User.ID[:], b.User.ID[:])
	})
	return conns
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// ActiveUsers projects the snapshot into its public roster form.
func (r *Registry) ActiveUsers() []ActiveUser {
	return lo.Map(r.Snapshot(), func(c *Connection, _ int) ActiveUser {
		return c.activeUser()
	})
}

// CloseAll closes every live connection with code and reason and returns
// how many were closed. Entries are left for their sessions to remove.
func (r *Registry) CloseAll(code int, reason string) int {
	conns := r.Snapshot()
	for _, c := range conns {
		_ = c.Close(code, reason)
	}
	return len(conns)
}

// Drain marks the registry as shutting down and closes every live
// connection with code and reason. A connection registered after Drain
// sees Draining report true and must close itself.
func (r *Registry) Drain(code int, reason string) int {
	r.mu.Lock()
	r.draining = true
	r.mu.Unlock()
	return r.CloseAll(code, reason)
}

// Draining reports whether Drain has been called.
func (r *Registry) Draining() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.draining
}
