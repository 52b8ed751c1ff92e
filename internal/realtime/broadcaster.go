package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// DeliveryReport summarizes one broadcast.
type DeliveryReport struct {
	// Attempted is the number of recipients a write was started for.
	Attempted int
	// Delivered is the number of successful writes.
	Delivered int
	// Failed lists recipients whose write failed; each was evicted.
	Failed []uuid.UUID
}

// BroadcasterConfig tunes a Broadcaster.
type BroadcasterConfig struct {
	// QueueSize is the capacity of the request channel.
	QueueSize int
	// WriteTimeout bounds each write to a single peer.
	WriteTimeout time.Duration
}

type deliveryRequest struct {
	payload []byte
	exclude *uuid.UUID
	target  *uuid.UUID
	reply   chan deliveryResult
}

type deliveryResult struct {
	report DeliveryReport
	err    error
}

// Broadcaster delivers envelopes to registered connections. Requests are
// queued on a channel and handled in order by the goroutine running Run.
type Broadcaster struct {
	registry     *Registry
	requests     chan deliveryRequest
	writeTimeout time.Duration
	logger       *slog.Logger

	// stopping is closed when Run begins to shut down; stopped once it has
	// answered every queued request.
	stopping chan struct{}
	stopped  chan struct{}
	running  atomic.Bool
}

// NewBroadcaster creates a broadcaster over registry. Run must be started
// before any request can complete.
func NewBroadcaster(registry *Registry, cfg BroadcasterConfig, log *slog.Logger) *Broadcaster {
	if registry == nil {
		panic("registry cannot be nil")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Broadcaster{
		registry:     registry,
		requests:     make(chan deliveryRequest, cfg.QueueSize),
		writeTimeout: cfg.WriteTimeout,
		logger:       log.With(slog.String("component", "broadcaster")),
		stopping:     make(chan struct{}),
		stopped:      make(chan struct{}),
	}
}

// Run processes requests until ctx is cancelled. Requests still queued, or
// submitted afterwards, fail with ErrBroadcasterStopped. Run may be called once.
func (b *Broadcaster) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return errors.New("broadcaster already running")
	}
	b.logger.Info("broadcaster started")

	for {
		select {
		case <-ctx.Done():
			close(b.stopping)
			b.drain()
			close(b.stopped)
			b.logger.Info("broadcaster stopped")
			return nil
		case req := <-b.requests:
			req.reply <- b.handle(req)
		}
	}
}

func (b *Broadcaster) drain() {
	for {
		select {
		case req := <-b.requests:
			req.reply <- deliveryResult{err: ErrBroadcasterStopped}
		default:
			return
		}
	}
}

// Broadcast sends env to every registered connection except exclude.
// Per-recipient failures are reported, not returned: the error is non-nil
// only if the envelope could not be encoded or the request never ran.
func (b *Broadcaster) Broadcast(
	ctx context.Context,
	env Envelope,
	exclude *uuid.UUID,
) (DeliveryReport, error) {
	payload, err := Encode(env)
	if err != nil {
		return DeliveryReport{}, fmt.Errorf("encode %s envelope: %w", env.Kind, err)
	}
	res, err := b.submit(ctx, deliveryRequest{payload: payload, exclude: exclude})
	if err != nil {
		return DeliveryReport{}, err
	}
	return res.report, res.err
}

// SendTo delivers env to the live connection of userID. It fails with
// ErrNotConnected, or with an error wrapping ErrTransportFailure after which
// the connection has been evicted.
func (b *Broadcaster) SendTo(ctx context.Context, userID uuid.UUID, env Envelope) error {
	payload, err := Encode(env)
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", env.Kind, err)
	}
	res, err := b.submit(ctx, deliveryRequest{payload: payload, target: &userID})
	if err != nil {
		return err
	}
	return res.err
}

func (b *Broadcaster) submit(ctx context.Context, req deliveryRequest) (deliveryResult, error) {
	req.reply = make(chan deliveryResult, 1)

	select {
	case <-b.stopping:
		return deliveryResult{}, ErrBroadcasterStopped
	case <-ctx.Done():
		return deliveryResult{}, ctx.Err()
	case b.requests <- req:
	}

	select {
	case res := <-req.reply:
		return res, nil
	case <-ctx.Done():
		return deliveryResult{}, ctx.Err()
	case <-b.stopped:
		// Queued after the final drain.
		select {
		case res := <-req.reply:
			return res, nil
		default:
			return deliveryResult{}, ErrBroadcasterStopped
		}
	}
}

func (b *Broadcaster) handle(req deliveryRequest) deliveryResult {
	if req.target != nil {
		return deliveryResult{err: b.deliverTo(*req.target, req.payload)}
	}
	return deliveryResult{report: b.fanOut(req.payload, req.exclude)}
}

func (b *Broadcaster) deliverTo(userID uuid.UUID, payload []byte) error {
	conn, ok := b.registry.Get(userID)
	if !ok {
		return ErrNotConnected
	}
	if err := conn.write(payload, time.Now().Add(b.writeTimeout)); err != nil {
		b.evict(conn, err)
		return fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}
	return nil
}

func (b *Broadcaster) fanOut(payload []byte, exclude *uuid.UUID) DeliveryReport {
	recipients := lo.Filter(b.registry.Snapshot(), func(c *Connection, _ int) bool {
		return exclude == nil || c.UserID() != *exclude
	})

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		failed    []uuid.UUID
		delivered atomic.Int64
	)
	deadline := time.Now().Add(b.writeTimeout)

	for _, conn := range recipients {
		wg.Add(1)
		go func(conn *Connection) {
			defer wg.Done()
			if err := conn.write(payload, deadline); err != nil {
				b.evict(conn, err)
				mu.Lock()
				failed = append(failed, conn.UserID())
				mu.Unlock()
				return
			}
			delivered.Add(1)
		}(conn)
	}
	wg.Wait()

	return DeliveryReport{
		Attempted: len(recipients),
		Delivered: int(delivered.Load()),
		Failed:    failed,
	}
}

// evict removes a connection whose write failed and closes its transport.
// The owning session announces the departure when its read loop ends.
func (b *Broadcaster) evict(conn *Connection, cause error) {
	b.registry.evict(conn)
	b.logger.Warn("evicting unreachable connection",
		slog.String("user_id", conn.UserID().String()),
		slog.String("error", cause.Error()))
	_ = conn.Close(CloseInternalError, "Delivery failed")
}
