package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

func testPolicy(id, coverage int64) domain.Policy {
	return domain.Policy{
		ID:            id,
		Holder:        "0xholder",
		Product:       domain.ProductKey{Coverage: domain.CoverageDepeg, Chain: domain.ChainEthereum, Stablecoin: domain.StableUSDC},
		CoverageCents: coverage,
		Status:        domain.PolicyStatusActive,
	}
}

func TestPool_AddPolicyBooksCoverage(t *testing.T) {
	p := NewPool(1_000_000)

	require.NoError(t, p.AddPolicy(testPolicy(1, 400_000)))
	require.NoError(t, p.AddPolicy(testPolicy(2, 600_000)))

	snap := p.Snapshot()
	assert.Equal(t, int64(1_000_000), snap.TotalCoverageSoldCents)
	assert.Len(t, snap.ActivePolicies, 2)
	assert.Equal(t, int64(1), snap.ActivePolicies[0].ID)
	assert.Equal(t, int64(2), snap.ActivePolicies[1].ID)
}

func TestPool_AddPolicyRejectsOverCapacity(t *testing.T) {
	p := NewPool(500_000)
	require.NoError(t, p.AddPolicy(testPolicy(1, 400_000)))

	err := p.AddPolicy(testPolicy(2, 200_000))
	assert.ErrorIs(t, err, domain.ErrInsufficientCapital)

	// The failed add must leave the book unchanged.
	snap := p.Snapshot()
	assert.Equal(t, int64(400_000), snap.TotalCoverageSoldCents)
	assert.Len(t, snap.ActivePolicies, 1)
}

func TestPool_AddPolicyRejectsDuplicateID(t *testing.T) {
	p := NewPool(1_000_000)
	require.NoError(t, p.AddPolicy(testPolicy(1, 100_000)))

	err := p.AddPolicy(testPolicy(1, 100_000))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestPool_RemovePolicyReleasesCoverage(t *testing.T) {
	p := NewPool(1_000_000)
	require.NoError(t, p.AddPolicy(testPolicy(1, 300_000)))

	removed, err := p.RemovePolicy(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed.ID)

	snap := p.Snapshot()
	assert.Zero(t, snap.TotalCoverageSoldCents)
	assert.Equal(t, int64(1_000_000), snap.TotalCapitalCents)

	_, err = p.RemovePolicy(1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPool_ReservePayoutDebitsCapital(t *testing.T) {
	p := NewPool(1_000_000)
	require.NoError(t, p.AddPolicy(testPolicy(1, 300_000)))

	pol, err := p.ReservePayout(1, 250_000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pol.ID)

	snap := p.Snapshot()
	assert.Equal(t, int64(750_000), snap.TotalCapitalCents)
	assert.Zero(t, snap.TotalCoverageSoldCents)
	assert.Empty(t, snap.ActivePolicies)
}

func TestPool_ReservePayoutInsufficientCapitalLeavesPoolUntouched(t *testing.T) {
	p := NewPool(100_000)
	require.NoError(t, p.AddPolicy(testPolicy(1, 100_000)))

	_, err := p.ReservePayout(1, 200_000)
	assert.ErrorIs(t, err, domain.ErrInsufficientCapital)

	// Policy stays active for the next cycle; capital is intact.
	snap := p.Snapshot()
	assert.Equal(t, int64(100_000), snap.TotalCapitalCents)
	assert.Equal(t, int64(100_000), snap.TotalCoverageSoldCents)
	_, ok := p.Get(1)
	assert.True(t, ok)
}

func TestPool_Deposit(t *testing.T) {
	p := NewPool(100)
	p.Deposit(50)
	p.Deposit(-10) // ignored
	assert.Equal(t, int64(150), p.Snapshot().TotalCapitalCents)
}

func TestState_LivenessAndSnapshots(t *testing.T) {
	st := New(NewPool(100))

	_, ok := st.RiskSnapshot()
	assert.False(t, ok)

	st.SetRiskSnapshot(domain.RiskSnapshot{LTV: 0.5})
	snap, ok := st.RiskSnapshot()
	require.True(t, ok)
	assert.Equal(t, 0.5, snap.LTV)

	assert.Empty(t, st.BridgeStates())
	st.SetBridgeStates(map[string]domain.BridgeHealth{"ton_bridge": {BridgeID: "ton_bridge"}})
	bh, ok := st.BridgeState("ton_bridge")
	require.True(t, ok)
	assert.Equal(t, "ton_bridge", bh.BridgeID)

	st.MarkAlive("risk_snapshot")
	live := st.Liveness()
	assert.Contains(t, live, "risk_snapshot")

	// Liveness returns a copy.
	live["risk_snapshot"] = live["risk_snapshot"].Add(-1)
	assert.NotEqual(t, live["risk_snapshot"], st.Liveness()["risk_snapshot"])
}
