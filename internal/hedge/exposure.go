// Package hedge offsets the pool's tail risk at four external venues:
// Polymarket binary markets, Binance-style perpetuals, DeFi perpetuals, and
// Allianz parametric reinsurance. Each cycle it aggregates per-product
// exposure, splits the hedge requirement by venue weight, executes, and books
// positions; the claims monitor closes positions when the hedged policy pays.
package hedge

import (
	"sort"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// AggregateExposures folds the active book into per-product exposures with
// expected payout and hedge requirement. Products are returned in canonical
// key order so cycles are deterministic.
func AggregateExposures(policies []domain.Policy, hedgeRatio float64) []domain.ProductExposure {
	byKey := map[domain.ProductKey]*domain.ProductExposure{}
	for _, p := range policies {
		e, ok := byKey[p.Product]
		if !ok {
			e = &domain.ProductExposure{Product: p.Product}
			byKey[p.Product] = e
		}
		e.ActivePolicies++
		e.TotalCoverageCents += p.CoverageCents
		e.TotalPremiumCents += p.PremiumCents
	}

	out := make([]domain.ProductExposure, 0, len(byKey))
	for _, e := range byKey {
		f := domain.LossFactors[e.Product.Coverage]
		e.ExpectedPayoutCents = int64(float64(e.TotalCoverageCents) * f.TriggerRate * f.SeverityPct)
		e.HedgeRequiredCents = int64(float64(e.ExpectedPayoutCents) * hedgeRatio)
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Product.String() < out[j].Product.String()
	})
	return out
}
