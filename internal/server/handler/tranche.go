package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/state"
)

// TrancheHandler serves tranche utilization and yield reads.
type TrancheHandler struct {
	state  *state.State
	logger *slog.Logger
}

// NewTrancheHandler creates a TrancheHandler over the shared state.
func NewTrancheHandler(st *state.State, logger *slog.Logger) *TrancheHandler {
	return &TrancheHandler{state: st, logger: logHandler(logger, "tranche")}
}

// APY returns the latest per-tranche yield rows produced by the APY loop.
// GET /api/v2/tranches/apy
func (h *TrancheHandler) APY(w http.ResponseWriter, r *http.Request) {
	tranches := h.state.Tranches()
	rows := make([]map[string]any, 0, len(tranches))
	for _, t := range tranches {
		rows = append(rows, map[string]any{
			"tranche_id":             t.TrancheID,
			"apy":                    t.APY,
			"utilization":            t.Utilization,
			"total_capital_ton":      float64(t.TotalCapitalCents) / 100,
			"coverage_sold_ton":      float64(t.CoverageSoldCents) / 100,
			"available_capacity_ton": float64(t.AvailableCapacityCents()) / 100,
			"last_updated":           t.LastUpdated.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tranches":  rows,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
