package domain

import "math"

// BaseRates holds the annualized base premium rate per coverage kind.
var BaseRates = map[CoverageKind]float64{
	CoverageDepeg:          0.008,
	CoverageSmartContract:  0.015,
	CoverageOracle:         0.012,
	CoverageBridge:         0.020,
	CoverageCexLiquidation: 0.025,
}

// ChainMultipliers scales premiums by settlement-chain risk.
var ChainMultipliers = map[Chain]float64{
	ChainEthereum:  1.0,
	ChainTON:       1.0,
	ChainBitcoin:   0.9,
	ChainArbitrum:  1.1,
	ChainBase:      1.1,
	ChainOptimism:  1.1,
	ChainPolygon:   1.2,
	ChainLightning: 1.3,
	ChainSolana:    1.4,
}

// StablecoinAdjustments adds a flat annualized rate per covered asset.
var StablecoinAdjustments = map[Stablecoin]float64{
	StableUSDC:   0,
	StableUSDT:   0.0005,
	StableDAI:    0.0002,
	StableFRAX:   0.0003,
	StableUSDP:   0.0001,
	StableBUSD:   0.001,
	StableUSDe:   0.0015,
	StableSUSDe:  0.002,
	StableUSDY:   0.0008,
	StablePYUSD:  0.0005,
	StableGHO:    0.0004,
	StableLUSD:   0.0003,
	StableCrvUSD: 0.0006,
	StableMkUSD:  0.0007,
}

// QuoteBreakdown itemizes the premium arithmetic for a quote response.
type QuoteBreakdown struct {
	BaseRate             float64 `json:"base_rate"`
	ChainMultiplier      float64 `json:"chain_multiplier"`
	StablecoinAdjustment float64 `json:"stablecoin_adjustment"`
	TotalRate            float64 `json:"total_rate"`
	CoverageAmount       float64 `json:"coverage_amount"`
	DurationDays         int     `json:"duration_days"`
}

// PremiumFor computes the public premium contract for a product:
//
//	total_rate = base_rate * chain_multiplier + stablecoin_adjustment
//	premium    = coverage * total_rate * duration_days / 365
//
// coverage and the returned premium are USD amounts (not cents); callers on
// the cents path convert explicitly.
func PremiumFor(p ProductKey, coverage float64, durationDays int) (float64, QuoteBreakdown) {
	base := BaseRates[p.Coverage]
	mult := ChainMultipliers[p.Chain]
	adj := StablecoinAdjustments[p.Stablecoin]
	totalRate := base*mult + adj
	premium := coverage * totalRate * float64(durationDays) / 365.0
	return premium, QuoteBreakdown{
		BaseRate:             base,
		ChainMultiplier:      mult,
		StablecoinAdjustment: adj,
		TotalRate:            totalRate,
		CoverageAmount:       coverage,
		DurationDays:         durationDays,
	}
}

// PremiumCents is PremiumFor over a cents coverage amount, rounding the
// premium to the nearest cent.
func PremiumCents(p ProductKey, coverageCents int64, durationDays int) (int64, QuoteBreakdown) {
	premium, bd := PremiumFor(p, float64(coverageCents)/100.0, durationDays)
	return int64(math.Round(premium * 100)), bd
}
