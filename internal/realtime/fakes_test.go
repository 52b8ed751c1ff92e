package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/stretchr/testify/require"
)

var errFakeClosed = errors.New("fake connection closed")

// fakeConn is an in-memory Conn. Frames pushed with send are returned by
// ReadMessage; written frames are recorded.
type fakeConn struct {
	mu          sync.Mutex
	written     [][]byte
	writeErr    error
	closed      bool
	closeCode   int
	closeReason string

	reads    chan []byte
	closedCh chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		reads:    make(chan []byte, 16),
		closedCh: make(chan struct{}),
	}
}

func (f *fakeConn) WriteMessage(data []byte, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if f.closed {
		return errFakeClosed
	}
	f.written = append(f.written, append([]byte(nil), data...))
	return nil
}

func (f *fakeConn) Close(code int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		f.closeCode = code
		f.closeReason = reason
		close(f.closedCh)
	}
	return nil
}

func (f *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data, ok := <-f.reads:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	case <-f.closedCh:
		return nil, errFakeClosed
	}
}

func (f *fakeConn) send(frame string) {
	f.reads <- []byte(frame)
}

func (f *fakeConn) failWrites(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

func (f *fakeConn) closeState() (bool, int, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed, f.closeCode, f.closeReason
}

// frames decodes every written frame.
func (f *fakeConn) frames(t *testing.T) []wireEnvelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]wireEnvelope, 0, len(f.written))
	for _, raw := range f.written {
		var env wireEnvelope
		require.NoError(t, json.Unmarshal(raw, &env))
		out = append(out, env)
	}
	return out
}

// framesOfType filters frames by wire type.
func (f *fakeConn) framesOfType(t *testing.T, kind Kind) []wireEnvelope {
	t.Helper()
	var out []wireEnvelope
	for _, env := range f.frames(t) {
		if env.Type == string(kind) {
			out = append(out, env)
		}
	}
	return out
}

// wireEnvelope is the client's view of an outbound frame.
type wireEnvelope struct {
	Type        string       `json:"type"`
	Message     string       `json:"message"`
	UserID      string       `json:"user_id"`
	UserName    string       `json:"user_name"`
	Status      string       `json:"status"`
	ActiveUsers []ActiveUser `json:"active_users"`
	UserCount   int          `json:"user_count"`
	Timestamp   string       `json:"timestamp"`
}

func testUser(name string) domain.User {
	return domain.User{
		ID:    uuid.New(),
		Name:  name,
		Email: name + "@example.com",
	}
}

// startBroadcaster runs a broadcaster until the test ends.
func startBroadcaster(t *testing.T, registry *Registry) *Broadcaster {
	t.Helper()
	b := NewBroadcaster(registry, BroadcasterConfig{QueueSize: 16, WriteTimeout: time.Second}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return b
}

const eventually = 2 * time.Second
const tick = 5 * time.Millisecond
