package hedge

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/config"
	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// BinaryMarket is one Polymarket candidate market for hedging a product.
type BinaryMarket struct {
	ID             string
	YesPrice       float64
	LiquidityCents int64
	Expiry         time.Time
}

// MarketSource lists candidate binary markets for a product.
type MarketSource interface {
	ListMarkets(ctx context.Context, product domain.ProductKey) ([]BinaryMarket, error)
}

// FundingSource reports the current hourly funding rate for a perp symbol.
type FundingSource interface {
	FundingRateHourly(ctx context.Context, symbol string) (float64, error)
}

// Quoter requests a reinsurance premium quote for a notional.
type Quoter interface {
	Quote(ctx context.Context, product domain.ProductKey, amountCents int64) (domain.VenueQuote, error)
}

// allianzFallbackRates estimates the premium rate per coverage kind when the
// reinsurer is unreachable.
var allianzFallbackRates = map[domain.CoverageKind]float64{
	domain.CoverageDepeg:          0.02,
	domain.CoverageSmartContract:  0.05,
	domain.CoverageOracle:         0.03,
	domain.CoverageBridge:         0.06,
	domain.CoverageCexLiquidation: 0.04,
}

// CostFetcher estimates the per-venue cost of hedging a prospective coverage
// amount. Venues that cannot serve the product contribute nil entries.
type CostFetcher struct {
	cfg      config.HedgeConfig
	markets  MarketSource
	binance  FundingSource
	defi     FundingSource
	reinsure Quoter
	logger   *slog.Logger
}

// NewCostFetcher creates a CostFetcher. Any nil source disables its venue.
func NewCostFetcher(cfg config.HedgeConfig, markets MarketSource, binance, defi FundingSource, reinsure Quoter, logger *slog.Logger) *CostFetcher {
	return &CostFetcher{
		cfg:      cfg,
		markets:  markets,
		binance:  binance,
		defi:     defi,
		reinsure: reinsure,
		logger:   logger.With(slog.String("component", "hedge_cost")),
	}
}

// FetchCosts computes the cost breakdown for hedging coverageCents of the
// given product under the configured ratio and weights.
func (f *CostFetcher) FetchCosts(ctx context.Context, product domain.ProductKey, coverageCents int64) (domain.HedgeCostBreakdown, error) {
	now := time.Now().UTC()
	hedged := float64(coverageCents) * f.cfg.TotalHedgeRatio
	expiry := now.AddDate(0, 0, f.cfg.DurationDays)

	out := domain.HedgeCostBreakdown{
		Product:    product,
		HedgeRatio: f.cfg.TotalHedgeRatio,
		Timestamp:  now,
	}

	out.PolymarketCents = f.polymarketCost(ctx, product, hedged*f.cfg.PolymarketWeight, expiry)
	out.BinanceCents = f.perpCost(ctx, f.binance, product, hedged*f.cfg.PerpetualsWeight)
	out.HyperliquidCents = f.perpCost(ctx, f.defi, product, hedged*f.cfg.DefiPerpsWeight)
	out.AllianzCents = f.allianzCost(ctx, product, hedged*f.cfg.AllianzWeight)

	for _, c := range []*int64{out.PolymarketCents, out.BinanceCents, out.HyperliquidCents, out.AllianzCents} {
		if c != nil {
			out.TotalCents += *c
		}
	}
	if coverageCents > 0 {
		out.EffectivePremiumAddition = float64(out.TotalCents) / float64(coverageCents)
	}
	return out, nil
}

// polymarketCost picks the cheapest YES price among markets with liquidity at
// least 10% of the intended trade and expiry past the policy's. No passing
// market means no Polymarket hedge.
func (f *CostFetcher) polymarketCost(ctx context.Context, product domain.ProductKey, sliceCents float64, expiry time.Time) *int64 {
	if f.markets == nil || sliceCents <= 0 {
		return nil
	}
	markets, err := f.markets.ListMarkets(ctx, product)
	if err != nil {
		f.logger.Warn("hedge_cost: list markets failed", slog.String("error", err.Error()))
		return nil
	}

	var best *BinaryMarket
	for i := range markets {
		m := markets[i]
		if float64(m.LiquidityCents) < sliceCents*0.10 || m.Expiry.Before(expiry) {
			continue
		}
		if best == nil || m.YesPrice < best.YesPrice {
			best = &m
		}
	}
	if best == nil {
		return nil
	}
	cost := int64(math.Round(sliceCents * best.YesPrice))
	return &cost
}

// perpCost prices a perp hedge as funding over the holding period plus
// slippage.
func (f *CostFetcher) perpCost(ctx context.Context, src FundingSource, product domain.ProductKey, sliceCents float64) *int64 {
	if src == nil || sliceCents <= 0 {
		return nil
	}
	funding, err := src.FundingRateHourly(ctx, PerpSymbol(product))
	if err != nil {
		f.logger.Warn("hedge_cost: funding rate failed",
			slog.String("symbol", PerpSymbol(product)), slog.String("error", err.Error()))
		return nil
	}
	hours := float64(f.cfg.DurationDays) * 24
	cost := int64(math.Round(sliceCents * (funding*hours + f.cfg.SlippageBps/10000)))
	return &cost
}

// allianzCost asks the reinsurer for a quote, falling back to per-kind
// estimated rates when unreachable.
func (f *CostFetcher) allianzCost(ctx context.Context, product domain.ProductKey, sliceCents float64) *int64 {
	if sliceCents <= 0 {
		return nil
	}
	if f.reinsure != nil {
		if q, err := f.reinsure.Quote(ctx, product, int64(sliceCents)); err == nil {
			return &q.CostCents
		}
		f.logger.Warn("hedge_cost: reinsurer unreachable, using fallback rate",
			slog.String("product", product.String()))
	}
	cost := int64(math.Round(sliceCents * allianzFallbackRates[product.Coverage]))
	return &cost
}
