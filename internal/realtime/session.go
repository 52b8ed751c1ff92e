package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/platform/logger"
	"github.com/phrazzld/taskpulse/internal/redact"
	"github.com/phrazzld/taskpulse/internal/service/auth"
)

// SessionState is a step in a connection's lifecycle.
type SessionState int32

const (
	StatePending SessionState = iota
	StateAuthenticating
	StateConnected
	StateRejected
	StateDisconnecting
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAuthenticating:
		return "authenticating"
	case StateConnected:
		return "connected"
	case StateRejected:
		return "rejected"
	case StateDisconnecting:
		return "disconnecting"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// SessionConfig holds the per-session limits.
type SessionConfig struct {
	// MaxMessageLength is the longest accepted chat message, in characters.
	MaxMessageLength int
	// LeaveTimeout bounds the departure broadcast made after disconnect.
	LeaveTimeout time.Duration
}

// Session drives one client connection from handshake to close.
type Session struct {
	conn        Conn
	authn       auth.Authenticator
	registry    *Registry
	broadcaster *Broadcaster
	cfg         SessionConfig
	logger      *slog.Logger

	state     atomic.Int32
	live      *Connection
	closeOnce sync.Once
}

// NewSession creates a session in the Pending state.
func NewSession(
	conn Conn,
	authn auth.Authenticator,
	registry *Registry,
	broadcaster *Broadcaster,
	cfg SessionConfig,
	log *slog.Logger,
) *Session {
	if cfg.LeaveTimeout <= 0 {
		cfg.LeaveTimeout = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		conn:        conn,
		authn:       authn,
		registry:    registry,
		broadcaster: broadcaster,
		cfg:         cfg,
		logger:      log.With(slog.String("component", "realtime_session")),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) setState(st SessionState) {
	s.state.Store(int32(st))
}

// Serve authenticates token and, on success, runs the read loop until the
// connection ends. It returns the authentication error for rejected sessions
// and nil otherwise.
func (s *Session) Serve(ctx context.Context, token string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	s.setState(StateAuthenticating)
	user, err := s.authn.Authenticate(ctx, token)
	if err != nil {
		s.reject(log, err)
		return err
	}

	log = log.With(slog.String("user_id", user.ID.String()))
	ctx = logger.WithLogger(ctx, log)

	conn := NewConnection(*user, s.conn, time.Now().UTC())
	s.live = conn
	prev := s.registry.Register(conn)
	if s.registry.Draining() {
		s.closeOnce.Do(func() {
			log.Info("closing session registered during shutdown")
			s.registry.Remove(conn)
			_ = conn.Close(CloseGoingAway, ShutdownReason)
			s.setState(StateClosed)
		})
		return nil
	}
	s.setState(StateConnected)
	defer s.disconnect(ctx, log)

	if prev != nil {
		log.Info("superseding previous connection")
		_ = prev.Close(CloseSessionReplaced, "Session replaced")
	}
	log.Info("user connected", slog.Int("active_users", s.registry.Count()))

	if _, err := s.broadcaster.Broadcast(ctx, StatusChange(*user, PresenceJoined), &user.ID); err != nil {
		log.Warn("failed to announce join", slog.String("error", err.Error()))
	}
	if err := s.broadcaster.SendTo(ctx, user.ID, Welcome(*user, s.registry.ActiveUsers())); err != nil {
		log.Warn("failed to send welcome", slog.String("error", err.Error()))
	}

	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			log.Debug("read loop ended", slog.String("error", err.Error()))
			return nil
		}
		if err := s.handleFrame(ctx, log, *user, data); err != nil {
			return nil
		}
	}
}

// handleFrame processes one inbound frame. A non-nil error ends the session.
func (s *Session) handleFrame(ctx context.Context, log *slog.Logger, user domain.User, data []byte) error {
	text, err := ParseFrame(data, s.cfg.MaxMessageLength)
	if err != nil {
		log.Debug("rejected inbound frame", slog.String("error", err.Error()))
		return s.reply(ctx, user, ErrorEnvelope(err.Error()))
	}

	report, err := s.broadcaster.Broadcast(ctx, ChatMessage(user, text), &user.ID)
	if err != nil {
		log.Warn("failed to broadcast message", slog.String("error", err.Error()))
		return err
	}
	log.Debug("message broadcast",
		slog.Int("attempted", report.Attempted),
		slog.Int("delivered", report.Delivered))

	return s.reply(ctx, user, DeliveryAck())
}

func (s *Session) reply(ctx context.Context, user domain.User, env Envelope) error {
	err := s.broadcaster.SendTo(ctx, user.ID, env)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrBroadcasterStopped), errors.Is(err, ErrNotConnected):
		// Shut down or superseded; nothing more to say on this connection.
		return err
	default:
		// Transport failures are followed by a read error; let the loop see it.
		return nil
	}
}

func (s *Session) reject(log *slog.Logger, err error) {
	s.setState(StateRejected)

	code, reason := CloseAuthFailed, "Authentication failed"
	if auth.IsCredentialError(err) {
		log.Warn("websocket authentication failed", slog.String("error", err.Error()))
	} else {
		code, reason = CloseInternalError, "Internal error"
		log.Error("websocket authentication errored", slog.String("error", redact.Error(err)))
	}

	s.closeOnce.Do(func() {
		_ = s.conn.Close(code, reason)
		s.setState(StateClosed)
	})
}

func (s *Session) disconnect(ctx context.Context, log *slog.Logger) {
	s.closeOnce.Do(func() {
		s.setState(StateDisconnecting)
		conn := s.live

		removed := s.registry.Remove(conn)
		_ = conn.Close(CloseNormal, "")

		announce := removed
		if !removed && conn.Evicted() {
			// An evicted identity that has already reconnected is still online.
			_, online := s.registry.Get(conn.UserID())
			announce = !online
		}

		if announce {
			leaveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.LeaveTimeout)
			defer cancel()
			if _, err := s.broadcaster.Broadcast(leaveCtx, StatusChange(conn.User, PresenceLeft), nil); err != nil {
				log.Debug("failed to announce departure", slog.String("error", err.Error()))
			}
		}

		log.Info("user disconnected", slog.Bool("announced", announce))
		s.setState(StateClosed)
	})
}
