package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
)

// Close codes sent to clients.
const (
	CloseNormal          = 1000
	CloseGoingAway       = 1001
	CloseInternalError   = 1011
	CloseAuthFailed      = 4001
	CloseSessionReplaced = 4002
)

// Transport is the write side of a client connection.
type Transport interface {
	// WriteMessage writes one text frame, failing if it cannot finish by deadline.
	WriteMessage(data []byte, deadline time.Time) error
	// Close sends a close frame with code and reason, then releases the
	// connection. Any blocked read returns an error. It is safe to call more
	// than once and concurrently with WriteMessage.
	Close(code int, reason string) error
}

// Conn is a full client connection as seen by a Session.
type Conn interface {
	Transport
	// ReadMessage blocks until the next data frame arrives or the connection ends.
	ReadMessage() ([]byte, error)
}

// Connection is a registered, authenticated client.
type Connection struct {
	User        domain.User
	ConnectedAt time.Time

	transport Transport
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error

	// evicted is set when the broadcaster removed this connection from the
	// registry after a failed write.
	evicted atomic.Bool
}

// NewConnection binds an authenticated user to its transport.
func NewConnection(user domain.User, transport Transport, connectedAt time.Time) *Connection {
	return &Connection{
		User:        user,
		ConnectedAt: connectedAt,
		transport:   transport,
	}
}

// UserID returns the identity the connection is registered under.
func (c *Connection) UserID() uuid.UUID {
	return c.User.ID
}

// Evicted reports whether the broadcaster removed this connection as the
// live entry for its identity.
func (c *Connection) Evicted() bool {
	return c.evicted.Load()
}

// write serializes frame writes on one transport.
func (c *Connection) write(data []byte, deadline time.Time) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.transport.WriteMessage(data, deadline)
}

// Close closes the transport once. Later calls return the first result.
func (c *Connection) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		c.closeErr = c.transport.Close(code, reason)
	})
	return c.closeErr
}

func (c *Connection) activeUser() ActiveUser {
	return ActiveUser{ID: c.User.ID, Name: c.User.Name, Email: c.User.Email}
}
