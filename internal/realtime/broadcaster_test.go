package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerFake(t *testing.T, reg *Registry, name string) (*Connection, *fakeConn) {
	t.Helper()
	fc := newFakeConn()
	conn := NewConnection(testUser(name), fc, time.Now())
	reg.Register(conn)
	return conn, fc
}

func TestBroadcastExcludesSender(t *testing.T) {
	reg := NewRegistry()
	b := startBroadcaster(t, reg)

	sender, senderConn := registerFake(t, reg, "alice")
	var peers []*fakeConn
	for _, name := range []string{"bob", "carol", "dave"} {
		_, fc := registerFake(t, reg, name)
		peers = append(peers, fc)
	}

	exclude := sender.UserID()
	report, err := b.Broadcast(context.Background(), ChatMessage(sender.User, "hi"), &exclude)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 3, report.Delivered)
	assert.Empty(t, report.Failed)
	assert.Empty(t, senderConn.frames(t))
	for _, fc := range peers {
		frames := fc.frames(t)
		require.Len(t, frames, 1)
		assert.Equal(t, "message", frames[0].Type)
		assert.Equal(t, "hi", frames[0].Message)
		assert.Equal(t, sender.UserID().String(), frames[0].UserID)
	}
}

func TestBroadcastWithoutExclusionReachesEveryone(t *testing.T) {
	reg := NewRegistry()
	b := startBroadcaster(t, reg)
	_, a := registerFake(t, reg, "alice")
	bob, fb := registerFake(t, reg, "bob")

	report, err := b.Broadcast(context.Background(), StatusChange(bob.User, PresenceLeft), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Delivered)
	assert.Len(t, a.frames(t), 1)
	assert.Len(t, fb.frames(t), 1)
}

func TestBroadcastIsolatesAndEvictsFailedPeer(t *testing.T) {
	reg := NewRegistry()
	b := startBroadcaster(t, reg)

	sender, _ := registerFake(t, reg, "alice")
	_, healthy := registerFake(t, reg, "bob")
	broken, brokenConn := registerFake(t, reg, "carol")
	brokenConn.failWrites(errors.New("broken pipe"))

	exclude := sender.UserID()
	report, err := b.Broadcast(context.Background(), ChatMessage(sender.User, "hi"), &exclude)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 1, report.Delivered)
	assert.Equal(t, []uuid.UUID{broken.UserID()}, report.Failed)
	assert.Len(t, healthy.frames(t), 1)

	_, stillThere := reg.Get(broken.UserID())
	assert.False(t, stillThere, "failed peer must be evicted")
	assert.True(t, broken.Evicted())
	closed, _, _ := brokenConn.closeState()
	assert.True(t, closed, "failed peer transport must be closed")
	assert.Equal(t, 2, reg.Count())
}

func TestBroadcastToEmptyRegistry(t *testing.T) {
	reg := NewRegistry()
	b := startBroadcaster(t, reg)

	report, err := b.Broadcast(context.Background(), DeliveryAck(), nil)
	require.NoError(t, err)
	assert.Zero(t, report.Attempted)
}

func TestSendTo(t *testing.T) {
	reg := NewRegistry()
	b := startBroadcaster(t, reg)
	ctx := context.Background()

	t.Run("delivers to one user", func(t *testing.T) {
		alice, fa := registerFake(t, reg, "alice")
		_, fb := registerFake(t, reg, "bob")

		require.NoError(t, b.SendTo(ctx, alice.UserID(), DeliveryAck()))
		assert.Len(t, fa.framesOfType(t, KindDeliveryAck), 1)
		assert.Empty(t, fb.frames(t))
	})

	t.Run("not connected", func(t *testing.T) {
		err := b.SendTo(ctx, uuid.New(), DeliveryAck())
		assert.ErrorIs(t, err, ErrNotConnected)
	})

	t.Run("transport failure evicts", func(t *testing.T) {
		carol, fc := registerFake(t, reg, "carol")
		fc.failWrites(errors.New("connection reset"))

		err := b.SendTo(ctx, carol.UserID(), DeliveryAck())
		assert.ErrorIs(t, err, ErrTransportFailure)
		_, ok := reg.Get(carol.UserID())
		assert.False(t, ok)
		assert.True(t, carol.Evicted())
	})
}

func TestBroadcasterStopped(t *testing.T) {
	reg := NewRegistry()
	b := NewBroadcaster(reg, BroadcasterConfig{QueueSize: 4, WriteTimeout: time.Second}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	registerFake(t, reg, "alice")
	_, err := b.Broadcast(context.Background(), DeliveryAck(), nil)
	require.NoError(t, err)

	cancel()
	require.NoError(t, <-done)

	_, err = b.Broadcast(context.Background(), DeliveryAck(), nil)
	assert.ErrorIs(t, err, ErrBroadcasterStopped)
	assert.ErrorIs(t, b.SendTo(context.Background(), uuid.New(), DeliveryAck()), ErrBroadcasterStopped)

	assert.Error(t, b.Run(context.Background()), "run may only be called once")
}

func TestBroadcastHonorsCallerContext(t *testing.T) {
	reg := NewRegistry()
	// Not running: the request can never be served.
	b := NewBroadcaster(reg, BroadcasterConfig{QueueSize: 1, WriteTimeout: time.Second}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := b.Broadcast(ctx, DeliveryAck(), nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
