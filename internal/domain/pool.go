package domain

// UnifiedPool is a point-in-time view of the shared capital pool. The state
// module owns the live pool; everything else works from copies like this one.
//
// Invariants: 0 <= TotalCoverageSoldCents <= TotalCapitalCents, and the sum of
// CoverageCents over ActivePolicies equals TotalCoverageSoldCents.
type UnifiedPool struct {
	TotalCapitalCents      int64          `json:"total_capital_usd"`
	TotalCoverageSoldCents int64          `json:"total_coverage_sold"`
	ActivePolicies         []Policy       `json:"active_policies"`
	Tranches               []TrancheYield `json:"tranches,omitempty"`
}

// LTV returns coverage sold over capital, or 0 for an empty pool.
func (p UnifiedPool) LTV() float64 {
	if p.TotalCapitalCents <= 0 {
		return 0
	}
	return float64(p.TotalCoverageSoldCents) / float64(p.TotalCapitalCents)
}

// ReserveRatio returns the share of capital not committed to coverage.
func (p UnifiedPool) ReserveRatio() float64 {
	if p.TotalCapitalCents <= 0 {
		return 0
	}
	free := p.TotalCapitalCents - p.TotalCoverageSoldCents
	return float64(free) / float64(p.TotalCapitalCents)
}
