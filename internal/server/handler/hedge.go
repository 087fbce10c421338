package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// CostFetcher estimates per-venue hedge costs for a prospective coverage.
type CostFetcher interface {
	FetchCosts(ctx context.Context, product domain.ProductKey, coverageCents int64) (domain.HedgeCostBreakdown, error)
}

// HedgeHandler serves the hedge read surface: open positions and cost quotes.
type HedgeHandler struct {
	positions domain.HedgePositionStore
	costs     CostFetcher
	logger    *slog.Logger
}

// NewHedgeHandler creates a HedgeHandler. Either dependency may be nil in
// reduced deployments; the corresponding endpoint then returns 503.
func NewHedgeHandler(positions domain.HedgePositionStore, costs CostFetcher, logger *slog.Logger) *HedgeHandler {
	return &HedgeHandler{positions: positions, costs: costs, logger: logHandler(logger, "hedge")}
}

// Positions lists open hedge positions, optionally narrowed to one policy.
// GET /api/v2/hedge/positions?policy_id=123
func (h *HedgeHandler) Positions(w http.ResponseWriter, r *http.Request) {
	if h.positions == nil {
		writeError(w, http.StatusServiceUnavailable, "hedge position store unavailable")
		return
	}

	var (
		positions []domain.HedgePosition
		err       error
	)
	if v := r.URL.Query().Get("policy_id"); v != "" {
		policyID, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid policy_id")
			return
		}
		positions, err = h.positions.ListOpenByPolicy(r.Context(), policyID)
	} else {
		positions, err = h.positions.ListOpen(r.Context())
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list hedge positions failed",
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list hedge positions")
		return
	}
	if positions == nil {
		positions = []domain.HedgePosition{}
	}

	var hedgedCents int64
	for _, p := range positions {
		hedgedCents += p.HedgeCents
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"positions":          positions,
		"count":              len(positions),
		"total_hedged_cents": hedgedCents,
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
	})
}

// Costs quotes current per-venue hedge costs for a product and amount.
// GET /api/v2/hedge/costs?coverage_type=depeg&chain=Ethereum&stablecoin=USDC&coverage_amount=100000
func (h *HedgeHandler) Costs(w http.ResponseWriter, r *http.Request) {
	if h.costs == nil {
		writeError(w, http.StatusServiceUnavailable, "hedge cost fetcher unavailable")
		return
	}

	q := r.URL.Query()
	product := domain.ProductKey{
		Coverage:   domain.CoverageKind(q.Get("coverage_type")),
		Chain:      domain.Chain(q.Get("chain")),
		Stablecoin: domain.Stablecoin(q.Get("stablecoin")),
	}
	if !product.Valid() {
		writeError(w, http.StatusBadRequest, "unknown coverage_type, chain, or stablecoin")
		return
	}
	amount, err := strconv.ParseFloat(q.Get("coverage_amount"), 64)
	if err != nil || amount <= 0 {
		writeError(w, http.StatusBadRequest, "coverage_amount must be a positive number")
		return
	}

	breakdown, err := h.costs.FetchCosts(r.Context(), product, int64(amount*100))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: fetch hedge costs failed",
			slog.String("product", product.String()),
			slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "failed to fetch hedge costs")
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}
