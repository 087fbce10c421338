package handler

import (
	"net/http"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
	"github.com/HobanSearch/Tonsurance-sub007/internal/state"
)

// ClientCounter reports the number of connected WebSocket clients.
type ClientCounter interface {
	ClientCount() int
}

// StatusHandler serves the operational status: run mode, uptime, connected
// clients, rate-limiter counters, and the liveness of each background loop.
type StatusHandler struct {
	Mode    string
	state   *state.State
	hub     ClientCounter
	limiter domain.RateLimiter
}

// NewStatusHandler creates a StatusHandler for the given run mode. hub and
// limiter may be nil; their sections are omitted from the response.
func NewStatusHandler(mode string, st *state.State, hub ClientCounter, limiter domain.RateLimiter) *StatusHandler {
	return &StatusHandler{Mode: mode, state: st, hub: hub, limiter: limiter}
}

// GetStatus responds with the current mode, uptime, and loop heartbeats.
// GET /api/v2/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	loops := map[string]any{}
	for name, last := range h.state.Liveness() {
		loops[name] = map[string]any{
			"last_tick":   last.Format(time.RFC3339),
			"age_seconds": int(now.Sub(last).Seconds()),
		}
	}
	body := map[string]any{
		"mode":           h.Mode,
		"version":        Version,
		"uptime_seconds": int(now.Sub(h.state.StartedAt()).Seconds()),
		"loops":          loops,
		"timestamp":      now.Format(time.RFC3339),
	}
	if h.hub != nil {
		body["ws_clients"] = h.hub.ClientCount()
	}
	if h.limiter != nil {
		stats := h.limiter.Stats()
		body["rate_limiter"] = map[string]any{
			"total_requests":   stats.TotalRequests,
			"blocked_requests": stats.BlockedRequests,
		}
	}
	writeJSON(w, http.StatusOK, body)
}
