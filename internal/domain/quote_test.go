package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPremiumFor_DepegEthereumUSDC(t *testing.T) {
	p := ProductKey{Coverage: CoverageDepeg, Chain: ChainEthereum, Stablecoin: StableUSDC}

	premium, bd := PremiumFor(p, 10_000, 90)

	assert.InDelta(t, 0.008, bd.TotalRate, 1e-12)
	assert.InDelta(t, 19.726, premium, 0.001)
	assert.Equal(t, 0.008, bd.BaseRate)
	assert.Equal(t, 1.0, bd.ChainMultiplier)
	assert.Equal(t, 0.0, bd.StablecoinAdjustment)
	assert.Equal(t, 90, bd.DurationDays)
}

func TestPremiumFor_RateComposition(t *testing.T) {
	tests := []struct {
		name     string
		product  ProductKey
		wantRate float64
	}{
		{
			name:     "bridge on polygon with USDT",
			product:  ProductKey{Coverage: CoverageBridge, Chain: ChainPolygon, Stablecoin: StableUSDT},
			wantRate: 0.020*1.2 + 0.0005,
		},
		{
			name:     "cex liquidation on solana with sUSDe",
			product:  ProductKey{Coverage: CoverageCexLiquidation, Chain: ChainSolana, Stablecoin: StableSUSDe},
			wantRate: 0.025*1.4 + 0.002,
		},
		{
			name:     "smart contract on bitcoin with DAI",
			product:  ProductKey{Coverage: CoverageSmartContract, Chain: ChainBitcoin, Stablecoin: StableDAI},
			wantRate: 0.015*0.9 + 0.0002,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, bd := PremiumFor(tt.product, 1000, 365)
			assert.InDelta(t, tt.wantRate, bd.TotalRate, 1e-12)
		})
	}
}

func TestPremiumCents_RoundsToNearestCent(t *testing.T) {
	p := ProductKey{Coverage: CoverageDepeg, Chain: ChainEthereum, Stablecoin: StableUSDC}

	// $10,000 over 90 days at 0.8% annualized: 1972.6027 cents -> 1973.
	cents, _ := PremiumCents(p, 1_000_000, 90)
	assert.Equal(t, int64(1973), cents)

	// Full year has no fractional part: $10,000 * 0.008 = $80.
	cents, _ = PremiumCents(p, 1_000_000, 365)
	assert.Equal(t, int64(8000), cents)
}

func TestProductKey_Valid(t *testing.T) {
	good := ProductKey{Coverage: CoverageOracle, Chain: ChainArbitrum, Stablecoin: StableFRAX}
	assert.True(t, good.Valid())

	assert.False(t, ProductKey{Coverage: "flood", Chain: ChainEthereum, Stablecoin: StableUSDC}.Valid())
	assert.False(t, ProductKey{Coverage: CoverageDepeg, Chain: "Cosmos", Stablecoin: StableUSDC}.Valid())
	assert.False(t, ProductKey{Coverage: CoverageDepeg, Chain: ChainEthereum, Stablecoin: "UST"}.Valid())
}

func TestProductKey_HashStable(t *testing.T) {
	p := ProductKey{Coverage: CoverageDepeg, Chain: ChainEthereum, Stablecoin: StableUSDC}

	assert.Equal(t, "depeg:Ethereum:USDC", p.String())

	h := p.Hash()
	require.Len(t, h, 64)
	assert.Equal(t, h, p.Hash())

	other := ProductKey{Coverage: CoverageDepeg, Chain: ChainEthereum, Stablecoin: StableUSDT}
	assert.NotEqual(t, h, other.Hash())
}
