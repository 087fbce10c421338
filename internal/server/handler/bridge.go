package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/state"
)

// BridgeHandler serves per-bridge health reads from shared state.
type BridgeHandler struct {
	state  *state.State
	logger *slog.Logger
}

// NewBridgeHandler creates a BridgeHandler over the shared state.
func NewBridgeHandler(st *state.State, logger *slog.Logger) *BridgeHandler {
	return &BridgeHandler{state: st, logger: logHandler(logger, "bridge")}
}

// Health returns the latest monitored state of one bridge.
// GET /api/v2/bridge-health/{bridge_id}
func (h *BridgeHandler) Health(w http.ResponseWriter, r *http.Request) {
	bridgeID := r.PathValue("bridge_id")
	if bridgeID == "" {
		writeError(w, http.StatusBadRequest, "missing bridge_id")
		return
	}

	bh, ok := h.state.BridgeState(bridgeID)
	if !ok {
		writeError(w, http.StatusNotFound, "bridge not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bridge_id":        bh.BridgeID,
		"source_chain":     bh.SourceChain,
		"dest_chain":       bh.DestChain,
		"health_score":     bh.HealthScore,
		"health_status":    bh.Status(),
		"tvl_usd":          float64(bh.CurrentTVLCents) / 100,
		"tvl_change_pct":   bh.TVLChangePct(),
		"exploit_detected": bh.ExploitDetected,
		"active_alerts":    bh.ActiveAlerts(),
		"last_updated":     bh.LastUpdated.Format(time.RFC3339),
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	})
}
