package realtime

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/mocks"
	"github.com/phrazzld/taskpulse/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionHarness struct {
	registry    *Registry
	broadcaster *Broadcaster
	authn       *mocks.MockAuthenticator
	users       map[string]domain.User
}

func newSessionHarness(t *testing.T, names ...string) *sessionHarness {
	t.Helper()
	h := &sessionHarness{
		registry: NewRegistry(),
		users:    make(map[string]domain.User),
	}
	tokens := make(map[string]*domain.User)
	for _, name := range names {
		u := testUser(name)
		h.users[name] = u
		tokens["token-"+name] = &u
	}
	h.authn = mocks.NewMockAuthenticator(tokens)
	h.broadcaster = startBroadcaster(t, h.registry)
	return h
}

// serve runs a session for token on conn and returns a channel that yields
// Serve's result.
func (h *sessionHarness) serve(conn *fakeConn, token string) (*Session, <-chan error) {
	s := NewSession(conn, h.authn, h.registry, h.broadcaster, SessionConfig{MaxMessageLength: 50}, nil)
	done := make(chan error, 1)
	go func() { done <- s.Serve(context.Background(), token) }()
	return s, done
}

func (h *sessionHarness) connect(t *testing.T, name string) (*fakeConn, *Session, <-chan error) {
	t.Helper()
	conn := newFakeConn()
	s, done := h.serve(conn, "token-"+name)
	require.Eventually(t, func() bool {
		return len(conn.framesOfType(t, KindWelcome)) == 1
	}, eventually, tick, "%s should receive a welcome", name)
	return conn, s, done
}

func TestSessionRejectsBadCredential(t *testing.T) {
	h := newSessionHarness(t, "alice")
	conn := newFakeConn()

	s, done := h.serve(conn, "forged")
	err := <-done

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
	closed, code, reason := conn.closeState()
	assert.True(t, closed)
	assert.Equal(t, CloseAuthFailed, code)
	assert.Equal(t, "Authentication failed", reason)
	assert.Equal(t, StateClosed, s.State())
	assert.Zero(t, h.registry.Count())
	assert.Empty(t, conn.frames(t))
}

func TestSessionRejectsRevokedCredential(t *testing.T) {
	h := newSessionHarness(t)
	h.authn.Err = auth.ErrRevokedToken
	conn := newFakeConn()

	_, done := h.serve(conn, "token-alice")
	assert.ErrorIs(t, <-done, auth.ErrRevokedToken)
	_, code, _ := conn.closeState()
	assert.Equal(t, CloseAuthFailed, code)
}

func TestSessionAuthInfrastructureFailure(t *testing.T) {
	h := newSessionHarness(t, "alice")
	h.authn.Err = errors.New("failed to check revocation list: connection refused")
	conn := newFakeConn()

	_, done := h.serve(conn, "token-alice")
	require.Error(t, <-done)

	_, code, _ := conn.closeState()
	assert.Equal(t, CloseInternalError, code)
	assert.Zero(t, h.registry.Count())
}

func TestSessionJoinWelcomeAndLeave(t *testing.T) {
	h := newSessionHarness(t, "alice", "bob")

	aliceConn, aliceSession, aliceDone := h.connect(t, "alice")
	assert.Equal(t, StateConnected, aliceSession.State())

	welcome := aliceConn.framesOfType(t, KindWelcome)[0]
	assert.Equal(t, "Welcome alice! You are now connected.", welcome.Message)
	assert.Equal(t, 1, welcome.UserCount)
	require.Len(t, welcome.ActiveUsers, 1)
	assert.Equal(t, h.users["alice"].ID, welcome.ActiveUsers[0].ID)

	bobConn, _, bobDone := h.connect(t, "bob")
	bobWelcome := bobConn.framesOfType(t, KindWelcome)[0]
	assert.Equal(t, 2, bobWelcome.UserCount)
	assert.Equal(t, "alice", bobWelcome.ActiveUsers[0].Name)
	assert.Equal(t, "bob", bobWelcome.ActiveUsers[1].Name)
	assert.Empty(t, bobConn.framesOfType(t, KindStatusChange), "join is not echoed to the joiner")

	require.Eventually(t, func() bool {
		return len(aliceConn.framesOfType(t, KindStatusChange)) == 1
	}, eventually, tick)
	joined := aliceConn.framesOfType(t, KindStatusChange)[0]
	assert.Equal(t, "joined", joined.Status)
	assert.Equal(t, h.users["bob"].ID.String(), joined.UserID)

	close(bobConn.reads)
	require.NoError(t, <-bobDone)

	require.Eventually(t, func() bool {
		return len(aliceConn.framesOfType(t, KindStatusChange)) == 2
	}, eventually, tick)
	left := aliceConn.framesOfType(t, KindStatusChange)[1]
	assert.Equal(t, "left", left.Status)
	assert.Equal(t, h.users["bob"].ID.String(), left.UserID)
	assert.Equal(t, 1, h.registry.Count())

	_, code, _ := bobConn.closeState()
	assert.Equal(t, CloseNormal, code)

	close(aliceConn.reads)
	require.NoError(t, <-aliceDone)
	assert.Equal(t, StateClosed, aliceSession.State())
	assert.Zero(t, h.registry.Count())
}

func TestSessionChatAndAck(t *testing.T) {
	h := newSessionHarness(t, "alice", "bob")
	aliceConn, _, _ := h.connect(t, "alice")
	bobConn, _, _ := h.connect(t, "bob")

	aliceConn.send(`{"message":"hello bob"}`)

	require.Eventually(t, func() bool {
		return len(aliceConn.framesOfType(t, KindDeliveryAck)) == 1
	}, eventually, tick)

	msgs := bobConn.framesOfType(t, KindChatMessage)
	require.Len(t, msgs, 1, "broadcast completes before the ack is sent")
	assert.Equal(t, "hello bob", msgs[0].Message)
	assert.Equal(t, "alice", msgs[0].UserName)
	assert.Empty(t, aliceConn.framesOfType(t, KindChatMessage), "sender is excluded")
	assert.Equal(t, DeliveryAckText, aliceConn.framesOfType(t, KindDeliveryAck)[0].Message)
}

func TestSessionProtocolErrorsKeepConnectionOpen(t *testing.T) {
	h := newSessionHarness(t, "alice")
	conn, s, _ := h.connect(t, "alice")

	frames := []string{
		`not json`,
		`{"msg":"wrong field"}`,
		`{"message":"` + strings.Repeat("a", 51) + `"}`,
	}
	for _, f := range frames {
		conn.send(f)
	}

	require.Eventually(t, func() bool {
		return len(conn.framesOfType(t, KindError)) == 3
	}, eventually, tick)

	errs := conn.framesOfType(t, KindError)
	assert.Equal(t, "invalid format", errs[0].Message)
	assert.Equal(t, "invalid message format", errs[1].Message)
	assert.Equal(t, "message too long", errs[2].Message)

	closed, _, _ := conn.closeState()
	assert.False(t, closed)
	assert.Equal(t, StateConnected, s.State())

	conn.send(`{"message":"still here"}`)
	require.Eventually(t, func() bool {
		return len(conn.framesOfType(t, KindDeliveryAck)) == 1
	}, eventually, tick)
}

func TestSessionSupersededConnection(t *testing.T) {
	h := newSessionHarness(t, "alice", "bob")
	bobConn, _, _ := h.connect(t, "bob")

	first, _, firstDone := h.connect(t, "alice")
	second, _, _ := h.connect(t, "alice")

	require.NoError(t, <-firstDone)
	closed, code, reason := first.closeState()
	assert.True(t, closed)
	assert.Equal(t, CloseSessionReplaced, code)
	assert.Equal(t, "Session replaced", reason)

	assert.Equal(t, 2, h.registry.Count())
	live, ok := h.registry.Get(h.users["alice"].ID)
	require.True(t, ok)
	assert.Same(t, second, live.transport)

	for _, env := range bobConn.framesOfType(t, KindStatusChange) {
		assert.Equal(t, "joined", env.Status, "superseded session must not announce a departure")
	}
}

func TestSessionEvictedPeerAnnouncesLeave(t *testing.T) {
	h := newSessionHarness(t, "alice", "bob")
	aliceConn, _, _ := h.connect(t, "alice")
	bobConn, _, bobDone := h.connect(t, "bob")

	bobConn.failWrites(errors.New("broken pipe"))
	aliceConn.send(`{"message":"anyone there?"}`)

	require.NoError(t, <-bobDone)

	require.Eventually(t, func() bool {
		for _, env := range aliceConn.framesOfType(t, KindStatusChange) {
			if env.Status == "left" && env.UserID == h.users["bob"].ID.String() {
				return true
			}
		}
		return false
	}, eventually, tick)

	var lefts int
	for _, env := range aliceConn.framesOfType(t, KindStatusChange) {
		if env.Status == "left" {
			lefts++
		}
	}
	assert.Equal(t, 1, lefts)
	assert.Equal(t, 1, h.registry.Count())
}

func TestSessionEvictedButReconnectedDoesNotAnnounceLeave(t *testing.T) {
	h := newSessionHarness(t, "alice", "bob")
	bobConn, _, _ := h.connect(t, "bob")

	staleConn := newFakeConn()
	stale := NewConnection(h.users["alice"], staleConn, time.Now().UTC())
	h.registry.Register(stale)
	require.True(t, h.registry.evict(stale))

	// Alice is back before the stale session finishes tearing down.
	h.connect(t, "alice")

	staleSession := NewSession(staleConn, h.authn, h.registry, h.broadcaster, SessionConfig{}, nil)
	staleSession.live = stale
	staleSession.disconnect(context.Background(), slog.Default())

	assert.Equal(t, StateClosed, staleSession.State())
	assert.Equal(t, 2, h.registry.Count())
	for _, env := range bobConn.framesOfType(t, KindStatusChange) {
		assert.NotEqual(t, "left", env.Status, "alice is still online")
	}
}

func TestSessionRegisteredDuringShutdownIsClosed(t *testing.T) {
	h := newSessionHarness(t, "alice")
	h.registry.Drain(CloseGoingAway, ShutdownReason)

	conn := newFakeConn()
	s, done := h.serve(conn, "token-alice")
	require.NoError(t, <-done)

	closed, code, reason := conn.closeState()
	assert.True(t, closed)
	assert.Equal(t, CloseGoingAway, code)
	assert.Equal(t, ShutdownReason, reason)
	assert.Equal(t, StateClosed, s.State())
	assert.Zero(t, h.registry.Count())
	assert.Empty(t, conn.framesOfType(t, KindWelcome))
}

func TestSessionStateString(t *testing.T) {
	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "authenticating", StateAuthenticating.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "rejected", StateRejected.String())
	assert.Equal(t, "disconnecting", StateDisconnecting.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "state(42)", SessionState(42).String())
}
