package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
	"github.com/HobanSearch/Tonsurance-sub007/internal/state"
)

// PolicyHandler serves the policy purchase and read endpoints.
type PolicyHandler struct {
	pool    *state.Pool
	store   domain.PolicyStore
	tracker domain.UtilizationTracker
	logger  *slog.Logger
}

// NewPolicyHandler creates a PolicyHandler. store may be nil in monitor-only
// deployments; the purchase endpoint then rejects writes.
func NewPolicyHandler(pool *state.Pool, store domain.PolicyStore, tracker domain.UtilizationTracker, logger *slog.Logger) *PolicyHandler {
	return &PolicyHandler{pool: pool, store: store, tracker: tracker, logger: logHandler(logger, "policy")}
}

type purchaseRequest struct {
	Holder         string  `json:"holder"`
	Beneficiary    string  `json:"beneficiary"`
	CoverageType   string  `json:"coverage_type"`
	Chain          string  `json:"chain"`
	Stablecoin     string  `json:"stablecoin"`
	CoverageAmount float64 `json:"coverage_amount"`
	DurationDays   int     `json:"duration_days"`
	TriggerPrice   float64 `json:"trigger_price"`
	FloorPrice     float64 `json:"floor_price"`
}

// Purchase validates a policy request, prices it, books it into the pool, and
// persists it.
// POST /api/v2/policies
func (h *PolicyHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "policy writes disabled in this mode")
		return
	}

	var req purchaseRequest
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
	case req.Holder == "":
		writeError(w, http.StatusBadRequest, "missing holder")
		return
	case !product.Valid():
		writeError(w, http.StatusBadRequest, "unknown coverage_type, chain, or stablecoin")
		return
	case req.CoverageAmount <= 0:
		writeError(w, http.StatusBadRequest, "coverage_amount must be positive")
		return
	case req.DurationDays <= 0 || req.DurationDays > 365:
		writeError(w, http.StatusBadRequest, "duration_days must be in [1, 365]")
		return
	}

	now := time.Now().UTC()
	coverageCents := int64(math.Round(req.CoverageAmount * 100))
	premiumCents, breakdown := domain.PremiumCents(product, coverageCents, req.DurationDays)

	policy := domain.Policy{
		ID:            now.UnixNano(),
		Holder:        req.Holder,
		Beneficiary:   req.Beneficiary,
		Product:       product,
		CoverageCents: coverageCents,
		PremiumCents:  premiumCents,
		TriggerPrice:  req.TriggerPrice,
		FloorPrice:    req.FloorPrice,
		StartTime:     now.Unix(),
		ExpiryTime:    now.AddDate(0, 0, req.DurationDays).Unix(),
		Status:        domain.PolicyStatusActive,
	}
	if err := policy.ValidatePriceBand(); err != nil {
		writeErrorHint(w, http.StatusBadRequest, "invalid trigger/floor prices",
			"required: 0 < floor_price < trigger_price <= 1.0")
		return
	}

	if free, err := totalAvailableCapacity(r, h.tracker); err == nil && coverageCents > free {
		writeError(w, http.StatusConflict, "insufficient tranche capacity for requested coverage")
		return
	}

	if err := h.pool.AddPolicy(policy); err != nil {
		if errors.Is(err, domain.ErrInsufficientCapital) {
			writeError(w, http.StatusConflict, "insufficient pool capital for requested coverage")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: book policy failed",
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to create policy")
		return
	}

	if err := h.store.Create(r.Context(), policy); err != nil {
		// Undo the pool booking so in-memory and persisted books agree.
		if _, uerr := h.pool.RemovePolicy(policy.ID); uerr != nil {
			h.logger.ErrorContext(r.Context(), "handler: rollback after store failure failed",
				slog.Int64("policy_id", policy.ID), slog.String("error", uerr.Error()))
		}
		h.logger.ErrorContext(r.Context(), "handler: persist policy failed",
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to create policy")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"policy":       policy,
		"breakdown":    breakdown,
		"product_hash": product.Hash(),
		"timestamp":    now.Format(time.RFC3339),
	})
}

// Get reads one policy back by id.
// GET /api/v2/policies/{id}
func (h *PolicyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid policy id")
		return
	}

	// The live pool has the freshest view of active policies; fall back to the
	// store for policies already settled or expired out of memory.
	if p, ok := h.pool.Get(id); ok {
		writeJSON(w, http.StatusOK, p)
		return
	}
	if h.store == nil {
		writeError(w, http.StatusNotFound, "policy not found")
		return
	}
	p, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "policy not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get policy failed",
			slog.Int64("policy_id", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to get policy")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func totalAvailableCapacity(r *http.Request, tracker domain.UtilizationTracker) (int64, error) {
	if tracker == nil {
		return 0, domain.ErrNotFound
	}
	yields, err := tracker.GetAllUtilizations(r.Context())
	if err != nil {
		return 0, err
	}
	var free int64
	for _, y := range yields {
		free += y.AvailableCapacityCents()
	}
	return free, nil
}
