package tranche

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

type stubPool struct {
	snap domain.UnifiedPool
}

func (s stubPool) Snapshot() domain.UnifiedPool { return s.snap }

func poolView(capital, coverage int64) stubPool {
	return stubPool{snap: domain.UnifiedPool{
		TotalCapitalCents:      capital,
		TotalCoverageSoldCents: coverage,
	}}
}

func byID(t *testing.T, yields []domain.TrancheYield) map[string]domain.TrancheYield {
	t.Helper()
	out := make(map[string]domain.TrancheYield, len(yields))
	for _, y := range yields {
		out[y.TrancheID] = y
	}
	return out
}

func TestGetAllUtilizations_CapitalSplit(t *testing.T) {
	tracker := NewTracker(poolView(1_000_000, 0))
	yields, err := tracker.GetAllUtilizations(context.Background())
	require.NoError(t, err)
	require.Len(t, yields, 3)

	m := byID(t, yields)
	assert.Equal(t, int64(200_000), m["junior"].TotalCapitalCents)
	assert.Equal(t, int64(300_000), m["mezzanine"].TotalCapitalCents)
	assert.Equal(t, int64(500_000), m["senior"].TotalCapitalCents)

	// Idle pool pays base APY everywhere.
	assert.InDelta(t, 0.10, m["junior"].APY, 1e-9)
	assert.InDelta(t, 0.06, m["mezzanine"].APY, 1e-9)
	assert.InDelta(t, 0.03, m["senior"].APY, 1e-9)
}

func TestGetAllUtilizations_JuniorAbsorbsFirst(t *testing.T) {
	// Coverage covers the junior tranche and half the mezzanine.
	tracker := NewTracker(poolView(1_000_000, 350_000))
	yields, err := tracker.GetAllUtilizations(context.Background())
	require.NoError(t, err)

	m := byID(t, yields)
	assert.InDelta(t, 1.0, m["junior"].Utilization, 1e-9)
	assert.InDelta(t, 0.5, m["mezzanine"].Utilization, 1e-9)
	assert.Zero(t, m["senior"].Utilization)

	assert.Equal(t, int64(200_000), m["junior"].CoverageSoldCents)
	assert.Equal(t, int64(150_000), m["mezzanine"].CoverageSoldCents)
	assert.Zero(t, m["senior"].CoverageSoldCents)

	// Fully used junior pays base + full spread.
	assert.InDelta(t, 0.25, m["junior"].APY, 1e-9)
	assert.InDelta(t, 0.10, m["mezzanine"].APY, 1e-9)
}

func TestGetAllUtilizations_FullPool(t *testing.T) {
	tracker := NewTracker(poolView(1_000_000, 1_000_000))
	yields, err := tracker.GetAllUtilizations(context.Background())
	require.NoError(t, err)

	for _, y := range yields {
		assert.InDelta(t, 1.0, y.Utilization, 1e-9, y.TrancheID)
	}
	m := byID(t, yields)
	assert.InDelta(t, 0.07, m["senior"].APY, 1e-9)
}

func TestGetAllUtilizations_EmptyPool(t *testing.T) {
	tracker := NewTracker(poolView(0, 0))
	yields, err := tracker.GetAllUtilizations(context.Background())
	require.NoError(t, err)
	for _, y := range yields {
		assert.Zero(t, y.Utilization)
		assert.Zero(t, y.TotalCapitalCents)
	}
}

func TestGetAvailableCapacity(t *testing.T) {
	tracker := NewTracker(poolView(1_000_000, 350_000))

	junior, err := tracker.GetAvailableCapacity(context.Background(), "junior")
	require.NoError(t, err)
	assert.Zero(t, junior)

	mezz, err := tracker.GetAvailableCapacity(context.Background(), "mezzanine")
	require.NoError(t, err)
	assert.Equal(t, int64(150_000), mezz)

	senior, err := tracker.GetAvailableCapacity(context.Background(), "senior")
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), senior)
}

func TestGetAvailableCapacity_UnknownTranche(t *testing.T) {
	tracker := NewTracker(poolView(1_000_000, 0))
	_, err := tracker.GetAvailableCapacity(context.Background(), "equity")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
