package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler with the provided logger.
func NewHealthHandler(logger *slog.Logger) *HealthHandler {
	return &HealthHandler{logger: logger}
}

// HealthCheck responds with the liveness payload.
// GET /health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "tonsurance-core",
		"version":   Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
