// Package risk computes portfolio risk snapshots over the unified pool:
// scenario-based VaR/CVaR, expected loss, concentration, and limit alerts.
package risk

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

const (
	// scenarioCount sizes the deterministic loss simulation. The generator is
	// seeded per snapshot from pool contents so identical inputs produce
	// identical snapshots.
	scenarioCount = 2000

	topProductsLimit = 10
)

// Limits holds the risk limits that generate breach and warning alerts.
// Warnings fire at warnFraction of each limit.
type Limits struct {
	MaxLTV           float64
	MinReserveRatio  float64
	MaxConcentration float64
	MaxVaR95Fraction float64 // VaR95 as a fraction of pool capital
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxLTV:           0.80,
		MinReserveRatio:  0.20,
		MaxConcentration: 0.25,
		MaxVaR95Fraction: 0.50,
	}
}

const warnFraction = 0.85

// Calculator implements domain.RiskMonitor.
type Calculator struct {
	limits Limits
	logger *slog.Logger
}

// NewCalculator creates a Calculator with the given limits.
func NewCalculator(limits Limits, logger *slog.Logger) *Calculator {
	return &Calculator{
		limits: limits,
		logger: logger.With(slog.String("component", "risk")),
	}
}

// CalculateSnapshot recomputes the full risk snapshot from a pool view.
func (c *Calculator) CalculateSnapshot(_ context.Context, pool domain.UnifiedPool) (domain.RiskSnapshot, error) {
	now := time.Now().UTC()
	exposures := aggregateExposures(pool.ActivePolicies)
	ranks := rankProducts(exposures)

	var expectedLoss int64
	for _, e := range exposures {
		f := domain.LossFactors[e.product.Coverage]
		expectedLoss += int64(float64(e.coverageCents) * f.TriggerRate * f.SeverityPct)
	}

	losses := simulateLosses(exposures, pool)
	sort.Float64s(losses)
	var95 := int64(stat.Quantile(0.95, stat.Empirical, losses, nil))
	var99 := int64(stat.Quantile(0.99, stat.Empirical, losses, nil))
	cvar95 := int64(tailMean(losses, 0.95))

	maxConc := maxConcentration(exposures, pool.TotalCoverageSoldCents)

	snap := domain.RiskSnapshot{
		VaR95:             var95,
		VaR99:             var99,
		CVaR95:            cvar95,
		ExpectedLossCents: expectedLoss,
		LTV:               pool.LTV(),
		ReserveRatio:      pool.ReserveRatio(),
		MaxConcentration:  maxConc,
		TopProducts:       ranks,
		Timestamp:         now,
	}
	snap.BreachAlerts, snap.WarningAlerts = c.evaluateLimits(snap, pool, now)
	return snap, nil
}

// productExposure is the internal aggregation row.
type productExposure struct {
	product       domain.ProductKey
	coverageCents int64
	policyCount   int
}

func aggregateExposures(policies []domain.Policy) []productExposure {
	byKey := make(map[domain.ProductKey]*productExposure)
	var order []domain.ProductKey
	for _, p := range policies {
		e, ok := byKey[p.Product]
		if !ok {
			e = &productExposure{product: p.Product}
			byKey[p.Product] = e
			order = append(order, p.Product)
		}
		e.coverageCents += p.CoverageCents
		e.policyCount++
	}
	out := make([]productExposure, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out
}

// rankProducts orders products by exposure descending, breaking ties by the
// canonical key string so identical inputs always yield an identical order.
func rankProducts(exposures []productExposure) []domain.ProductRank {
	sorted := make([]productExposure, len(exposures))
	copy(sorted, exposures)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].coverageCents != sorted[j].coverageCents {
			return sorted[i].coverageCents > sorted[j].coverageCents
		}
		return sorted[i].product.String() < sorted[j].product.String()
	})
	if len(sorted) > topProductsLimit {
		sorted = sorted[:topProductsLimit]
	}
	ranks := make([]domain.ProductRank, len(sorted))
	for i, e := range sorted {
		ranks[i] = domain.ProductRank{
			Product:       e.product,
			ExposureCents: e.coverageCents,
			PolicyCount:   e.policyCount,
		}
	}
	return ranks
}

// simulateLosses draws scenarioCount portfolio losses. Each product defaults
// independently with its trigger rate, losing coverage x severity. The RNG is
// seeded from the pool contents so snapshots are reproducible.
func simulateLosses(exposures []productExposure, pool domain.UnifiedPool) []float64 {
	seed := pool.TotalCoverageSoldCents*31 + pool.TotalCapitalCents
	for _, e := range exposures {
		seed = seed*31 + e.coverageCents
	}
	rng := rand.New(rand.NewSource(seed))

	losses := make([]float64, scenarioCount)
	for i := range losses {
		var loss float64
		for _, e := range exposures {
			f := domain.LossFactors[e.product.Coverage]
			if rng.Float64() < f.TriggerRate {
				loss += float64(e.coverageCents) * f.SeverityPct
			}
		}
		losses[i] = loss
	}
	return losses
}

// tailMean averages the losses at or above quantile q of the sorted slice.
func tailMean(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	start := int(q * float64(len(sorted)))
	if start >= len(sorted) {
		start = len(sorted) - 1
	}
	return stat.Mean(sorted[start:], nil)
}

func maxConcentration(exposures []productExposure, totalCoverage int64) float64 {
	if totalCoverage <= 0 {
		return 0
	}
	var max float64
	for _, e := range exposures {
		c := float64(e.coverageCents) / float64(totalCoverage)
		if c > max {
			max = c
		}
	}
	return max
}

// evaluateLimits produces breach alerts for crossed limits and warning alerts
// when a metric passes warnFraction of its limit.
func (c *Calculator) evaluateLimits(snap domain.RiskSnapshot, pool domain.UnifiedPool, now time.Time) (breaches, warnings []domain.RiskAlert) {
	check := func(kind domain.AlertKind, severity domain.Severity, msg string, current, limit float64, breachWhenAbove bool) {
		crossed := current > limit
		warned := current > limit*warnFraction
		if !breachWhenAbove {
			crossed = current < limit
			warned = current < limit/warnFraction
		}
		alert := domain.RiskAlert{
			Kind:         kind,
			Severity:     severity,
			Message:      msg,
			CurrentValue: current,
			LimitValue:   limit,
			Timestamp:    now,
		}
		switch {
		case crossed:
			breaches = append(breaches, alert)
		case warned:
			alert.Severity = domain.SeverityMedium
			warnings = append(warnings, alert)
		}
	}

	if pool.TotalCapitalCents > 0 {
		check(domain.AlertLTVBreach, domain.SeverityCritical,
			"pool LTV above limit", snap.LTV, c.limits.MaxLTV, true)
		check(domain.AlertReserveLow, domain.SeverityHigh,
			"reserve ratio below minimum", snap.ReserveRatio, c.limits.MinReserveRatio, false)
	}
	check(domain.AlertConcentrationHigh, domain.SeverityHigh,
		"single-product concentration above limit", snap.MaxConcentration, c.limits.MaxConcentration, true)
	if pool.TotalCapitalCents > 0 {
		check(domain.AlertVaRBreach, domain.SeverityCritical,
			"VaR(95) above capital fraction limit",
			float64(snap.VaR95)/float64(pool.TotalCapitalCents), c.limits.MaxVaR95Fraction, true)
	}
	return breaches, warnings
}

// Compile-time interface check.
var _ domain.RiskMonitor = (*Calculator)(nil)
