package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/phrazzld/taskpulse/internal/config"
	"github.com/phrazzld/taskpulse/internal/platform/logger"
	"github.com/phrazzld/taskpulse/internal/service/auth"
)

// ShutdownReason is sent with the close frame when the server stops.
const ShutdownReason = "Server shutting down"

// Handler upgrades HTTP requests to WebSocket sessions.
type Handler struct {
	upgrader    websocket.Upgrader
	authn       auth.Authenticator
	registry    *Registry
	broadcaster *Broadcaster
	cfg         config.RealtimeConfig
	logger      *slog.Logger

	sessions sync.WaitGroup
}

// NewHandler creates the WebSocket endpoint handler.
func NewHandler(
	authn auth.Authenticator,
	registry *Registry,
	broadcaster *Broadcaster,
	cfg config.RealtimeConfig,
	log *slog.Logger,
) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		authn:       authn,
		registry:    registry,
		broadcaster: broadcaster,
		cfg:         cfg,
		logger:      log.With(slog.String("component", "realtime_handler")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// ServeHTTP upgrades the request and serves the session until it ends.
// Authentication happens after the upgrade so failures can be reported
// with a close code.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Counted before the upgrade hijacks the connection, so Shutdown
	// cannot miss a session that http.Server no longer tracks.
	h.sessions.Add(1)
	defer h.sessions.Done()

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		log.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	conn := newWSConn(ws, ReadLimit(h.cfg), h.cfg.WriteTimeout, h.cfg.PongTimeout, h.cfg.PingInterval)
	session := NewSession(conn, h.authn, h.registry, h.broadcaster, SessionConfig{
		MaxMessageLength: h.cfg.MaxMessageLength,
		LeaveTimeout:     h.cfg.WriteTimeout,
	}, log)

	_ = session.Serve(r.Context(), TokenFromRequest(r))
}

// Shutdown closes every live session with 1001 and waits for their
// sessions to finish, or for ctx to end. Sessions still authenticating
// close themselves with 1001 once they register.
func (h *Handler) Shutdown(ctx context.Context) error {
	n := h.registry.Drain(CloseGoingAway, ShutdownReason)
	h.logger.Info("closing realtime sessions", slog.Int("count", n))

	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

const (
	// maxEncodedRuneBytes is the widest JSON encoding of one character,
	// a \uXXXX\uXXXX surrogate pair.
	maxEncodedRuneBytes = 12
	// frameOverhead covers the object syntax around the message value.
	frameOverhead = 1024
)

// ReadLimit returns the transport read limit for cfg. It is never smaller
// than the largest frame that carries a message of MaxMessageLength
// characters, so such frames reach ParseFrame instead of ending the
// connection with 1009.
func ReadLimit(cfg config.RealtimeConfig) int64 {
	if cfg.MaxMessageLength <= 0 {
		return cfg.MaxFrameBytes
	}
	return max(cfg.MaxFrameBytes, int64(cfg.MaxMessageLength)*maxEncodedRuneBytes+frameOverhead)
}

// TokenFromRequest returns the bearer token from the "token" query parameter,
// falling back to an Authorization: Bearer header.
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host) {
			return true
		}
	}
	return false
}
