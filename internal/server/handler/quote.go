package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// QuoteHandler serves premium quotes over the multi-dimensional product space.
type QuoteHandler struct {
	logger *slog.Logger
}

// NewQuoteHandler creates a QuoteHandler.
func NewQuoteHandler(logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{logger: logHandler(logger, "quote")}
}

type quoteRequest struct {
	CoverageType   string  `json:"coverage_type"`
	Chain          string  `json:"chain"`
	Stablecoin     string  `json:"stablecoin"`
	CoverageAmount float64 `json:"coverage_amount"`
	DurationDays   int     `json:"duration_days"`
}

type quoteResponse struct {
	Premium     float64               `json:"premium"`
	Breakdown   domain.QuoteBreakdown `json:"breakdown"`
	ProductHash string                `json:"product_hash"`
	Timestamp   string                `json:"timestamp"`
}

// Quote prices one product.
// POST /api/v2/quote/multi-dimensional
func (h *QuoteHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	product := domain.ProductKey{
		Coverage:   domain.CoverageKind(req.CoverageType),
		Chain:      domain.Chain(req.Chain),
		Stablecoin: domain.Stablecoin(req.Stablecoin),
	}
	switch {
	case !product.Coverage.Valid():
		writeErrorHint(w, http.StatusBadRequest, "unknown coverage_type",
			"one of: depeg, smart_contract, oracle, bridge, cex_liquidation")
		return
	case !product.Chain.Valid():
		writeError(w, http.StatusBadRequest, "unknown chain")
		return
	case !product.Stablecoin.Valid():
		writeError(w, http.StatusBadRequest, "unknown stablecoin")
		return
	case req.CoverageAmount <= 0:
		writeError(w, http.StatusBadRequest, "coverage_amount must be positive")
		return
	case req.DurationDays <= 0 || req.DurationDays > 365:
		writeError(w, http.StatusBadRequest, "duration_days must be in [1, 365]")
		return
	}

	premium, breakdown := domain.PremiumFor(product, req.CoverageAmount, req.DurationDays)
	writeJSON(w, http.StatusOK, quoteResponse{
		Premium:     premium,
		Breakdown:   breakdown,
		ProductHash: product.Hash(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}
