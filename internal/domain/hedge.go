package domain

import "time"

// Venue identifies one external hedge venue.
type Venue string

const (
	VenuePolymarket     Venue = "polymarket"
	VenueBinanceFutures Venue = "binance_futures"
	VenueDefiPerps      Venue = "defi_perps"
	VenueAllianz        Venue = "allianz_parametric"
)

// Venues lists the four hedge venues in allocation order.
var Venues = []Venue{VenuePolymarket, VenueBinanceFutures, VenueDefiPerps, VenueAllianz}

// ExpectedLossFactors holds the per-coverage-kind trigger rate and severity
// used when converting coverage into expected payout.
type ExpectedLossFactors struct {
	TriggerRate float64
	SeverityPct float64
}

// LossFactors maps each coverage kind to its expected-loss factors.
var LossFactors = map[CoverageKind]ExpectedLossFactors{
	CoverageDepeg:          {TriggerRate: 0.05, SeverityPct: 0.30},
	CoverageSmartContract:  {TriggerRate: 0.08, SeverityPct: 0.60},
	CoverageBridge:         {TriggerRate: 0.12, SeverityPct: 0.80},
	CoverageOracle:         {TriggerRate: 0.03, SeverityPct: 0.40},
	CoverageCexLiquidation: {TriggerRate: 0.02, SeverityPct: 0.90},
}

// ProductExposure is the per-product aggregate recomputed each hedge cycle.
// It is derived state and never persisted.
type ProductExposure struct {
	Product             ProductKey `json:"product"`
	ActivePolicies      int        `json:"active_policies"`
	TotalCoverageCents  int64      `json:"total_coverage"`
	TotalPremiumCents   int64      `json:"total_premium"`
	ExpectedPayoutCents int64      `json:"expected_payout"`
	HedgeRequiredCents  int64      `json:"hedge_required"`
}

// HedgeAllocation splits a product's hedge requirement across the four venues.
// The venue slices sum to HedgeRequiredCents of the originating exposure up to
// integer rounding.
type HedgeAllocation struct {
	Product         ProductKey `json:"product"`
	PolymarketCents int64      `json:"polymarket_cents"`
	PerpetualsCents int64      `json:"perpetuals_cents"`
	DefiPerpsCents  int64      `json:"defi_perps_cents"`
	AllianzCents    int64      `json:"allianz_cents"`
	TotalCostCents  int64      `json:"total_cost_cents"`
}

// VenueSlice returns the allocated amount for a single venue.
func (a HedgeAllocation) VenueSlice(v Venue) int64 {
	switch v {
	case VenuePolymarket:
		return a.PolymarketCents
	case VenueBinanceFutures:
		return a.PerpetualsCents
	case VenueDefiPerps:
		return a.DefiPerpsCents
	case VenueAllianz:
		return a.AllianzCents
	}
	return 0
}

// Total sums the four venue slices.
func (a HedgeAllocation) Total() int64 {
	return a.PolymarketCents + a.PerpetualsCents + a.DefiPerpsCents + a.AllianzCents
}

// HedgePositionStatus tracks whether a hedge position is open or closed.
type HedgePositionStatus string

const (
	HedgeStatusOpen   HedgePositionStatus = "open"
	HedgeStatusClosed HedgePositionStatus = "closed"
)

// HedgePosition is one executed (or sentinel-failed) venue hedge. A failed
// execution is persisted directly in status closed with no realized P&L so the
// book never carries an open ghost.
type HedgePosition struct {
	PositionID       string              `json:"position_id"`
	PolicyID         int64               `json:"policy_id"`
	Product          ProductKey          `json:"product"`
	Venue            Venue               `json:"venue"`
	ExternalOrderID  string              `json:"external_order_id"`
	HedgeCents       int64               `json:"hedge_amount_cents"`
	EntryPrice       float64             `json:"entry_price"`
	EntryTime        time.Time           `json:"entry_time"`
	Status           HedgePositionStatus `json:"status"`
	RealizedPnLCents *int64              `json:"realized_pnl_cents,omitempty"`
	CloseTime        *time.Time          `json:"close_time,omitempty"`
}

// VenueQuote is a venue adapter's answer to a quote request.
type VenueQuote struct {
	CostCents int64   `json:"cost_cents"`
	Price     float64 `json:"price"`
}

// VenueOrder is the result of opening a position at a venue.
type VenueOrder struct {
	OrderID    string  `json:"order_id"`
	FilledSize float64 `json:"filled_size"`
	Price      float64 `json:"price"`
}

// VenueClose is the result of closing a position at a venue.
type VenueClose struct {
	NetPnLCents int64   `json:"net_pnl_cents"`
	ExitPrice   float64 `json:"exit_price"`
}

// HedgeCostBreakdown is the read-side per-venue cost estimate for hedging a
// prospective coverage amount. Nil venue entries mean the venue could not
// serve the product (no market passing filters, venue unreachable with no
// fallback, zero weight).
type HedgeCostBreakdown struct {
	Product                  ProductKey `json:"product"`
	PolymarketCents          *int64     `json:"polymarket_cost,omitempty"`
	HyperliquidCents         *int64     `json:"hyperliquid_cost,omitempty"`
	BinanceCents             *int64     `json:"binance_cost,omitempty"`
	AllianzCents             *int64     `json:"allianz_cost,omitempty"`
	TotalCents               int64      `json:"total_hedge_cost"`
	HedgeRatio               float64    `json:"hedge_ratio"`
	EffectivePremiumAddition float64    `json:"effective_premium_addition"`
	Timestamp                time.Time  `json:"timestamp"`
}
