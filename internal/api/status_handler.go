package api

import (
	"net/http"

	"github.com/phrazzld/taskpulse/internal/api/shared"
)

// ConnectionCounter reports how many users hold a live realtime connection.
type ConnectionCounter interface {
	Count() int
}

// StatusHandler serves health and realtime statistics.
type StatusHandler struct {
	connections ConnectionCounter
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(connections ConnectionCounter) *StatusHandler {
	return &StatusHandler{connections: connections}
}

// Health handles GET /health.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok"})
}

// RealtimeStats handles GET /api/realtime/stats.
func (h *StatusHandler) RealtimeStats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, RealtimeStatsResponse{UserCount: h.connections.Count()})
}
