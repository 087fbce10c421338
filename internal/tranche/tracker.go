// Package tranche derives per-tranche utilization and yield from the unified
// pool. Capital is split across three fixed tranches; coverage is absorbed
// junior-first so senior depositors see utilization last.
package tranche

import (
	"context"
	"fmt"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// PoolView is the read side of the pool the tracker consumes.
type PoolView interface {
	Snapshot() domain.UnifiedPool
}

// trancheSpec fixes one tranche's capital share and yield curve. APY is
// base + spread x utilization, so a fully utilized tranche pays base+spread.
type trancheSpec struct {
	id           string
	capitalShare float64
	baseAPY      float64
	spreadAPY    float64
}

// Junior absorbs coverage first, senior last. Shares sum to 1.0.
var tranches = []trancheSpec{
	{id: "junior", capitalShare: 0.20, baseAPY: 0.10, spreadAPY: 0.15},
	{id: "mezzanine", capitalShare: 0.30, baseAPY: 0.06, spreadAPY: 0.08},
	{id: "senior", capitalShare: 0.50, baseAPY: 0.03, spreadAPY: 0.04},
}

// Tracker implements domain.UtilizationTracker over a pool view.
type Tracker struct {
	pool PoolView
}

// NewTracker creates a Tracker reading from the given pool.
func NewTracker(pool PoolView) *Tracker {
	return &Tracker{pool: pool}
}

// GetAllUtilizations computes the current yield row for every tranche.
func (t *Tracker) GetAllUtilizations(_ context.Context) ([]domain.TrancheYield, error) {
	snap := t.pool.Snapshot()
	now := time.Now().UTC()

	remaining := snap.TotalCoverageSoldCents
	out := make([]domain.TrancheYield, 0, len(tranches))
	for _, spec := range tranches {
		capital := int64(float64(snap.TotalCapitalCents) * spec.capitalShare)
		sold := remaining
		if sold > capital {
			sold = capital
		}
		remaining -= sold

		var util float64
		if capital > 0 {
			util = float64(sold) / float64(capital)
		}
		out = append(out, domain.TrancheYield{
			TrancheID:         spec.id,
			APY:               spec.baseAPY + spec.spreadAPY*util,
			Utilization:       util,
			TotalCapitalCents: capital,
			CoverageSoldCents: sold,
			LastUpdated:       now,
		})
	}
	return out, nil
}

// GetAvailableCapacity returns the coverage one tranche can still absorb.
func (t *Tracker) GetAvailableCapacity(ctx context.Context, trancheID string) (int64, error) {
	yields, err := t.GetAllUtilizations(ctx)
	if err != nil {
		return 0, err
	}
	for _, y := range yields {
		if y.TrancheID == trancheID {
			return y.AvailableCapacityCents(), nil
		}
	}
	return 0, fmt.Errorf("tranche: %w: unknown tranche %q", domain.ErrNotFound, trancheID)
}

var _ domain.UtilizationTracker = (*Tracker)(nil)
