package hedge

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/HobanSearch/Tonsurance-sub007/internal/config"
	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
	"github.com/HobanSearch/Tonsurance-sub007/internal/state"
)

// CostSource estimates the venue cost breakdown for hedging a coverage
// amount. *CostFetcher is the production implementation.
type CostSource interface {
	FetchCosts(ctx context.Context, product domain.ProductKey, coverageCents int64) (domain.HedgeCostBreakdown, error)
}

// Orchestrator runs the hedge cycle: aggregate exposure, allocate across
// venues, execute, and book positions. Cycles never overlap; a failed venue
// execution books a closed sentinel rather than retrying within the cycle.
type Orchestrator struct {
	cfg       config.HedgeConfig
	pool      *state.Pool
	st        *state.State
	venues    map[domain.Venue]domain.VenueAdapter
	positions domain.HedgePositionStore
	costs     CostSource
	archiver  domain.Archiver
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator. costs and archiver may be nil.
func NewOrchestrator(cfg config.HedgeConfig, pool *state.Pool, st *state.State, venues map[domain.Venue]domain.VenueAdapter, positions domain.HedgePositionStore, costs CostSource, archiver domain.Archiver, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		pool:      pool,
		st:        st,
		venues:    venues,
		positions: positions,
		costs:     costs,
		archiver:  archiver,
		logger:    logger.With(slog.String("component", "hedge")),
	}
}

// Run executes one cycle per check interval until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	interval := o.cfg.CheckInterval.Duration
	o.logger.Info("hedge: orchestrator starting", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	o.safeCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			o.logger.Info("hedge: orchestrator stopping")
			return nil
		case <-ticker.C:
			o.safeCycle(ctx)
		}
	}
}

func (o *Orchestrator) safeCycle(ctx context.Context) {
	if err := o.RunCycle(ctx); err != nil {
		o.logger.Warn("hedge: cycle failed", slog.String("error", err.Error()))
		return
	}
	o.st.MarkAlive("hedge")
}

// RunCycle executes one full exposure-allocate-execute-report cycle.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	snap := o.pool.Snapshot()
	exposures := AggregateExposures(snap.ActivePolicies, o.cfg.TotalHedgeRatio)

	open, err := o.positions.ListOpen(ctx)
	if err != nil {
		return fmt.Errorf("hedge: list open positions: %w", err)
	}
	openByProduct := map[domain.ProductKey]int64{}
	for _, p := range open {
		openByProduct[p.Product] += p.HedgeCents
	}

	totals := map[domain.Venue]int64{}
	var costCents int64
	for _, exposure := range exposures {
		if exposure.HedgeRequiredCents < o.cfg.MinHedgeCents {
			continue
		}
		allocation := Allocate(exposure, o.cfg)

		if openCents, hedged := openByProduct[exposure.Product]; hedged {
			if o.cfg.RebalanceEnabled && drift(openCents, allocation.Total()) > o.cfg.RebalanceThreshold {
				o.rebalance(ctx, exposure.Product)
			} else {
				continue
			}
		}

		allocation.TotalCostCents = o.allocationCost(ctx, exposure)
		costCents += allocation.TotalCostCents
		o.execute(ctx, exposure, allocation, totals)
	}

	o.report(ctx, totals, costCents)
	return nil
}

// allocationCost sums the per-venue cost estimates for hedging the exposure's
// coverage. An estimation failure degrades to zero cost; it never blocks
// execution.
func (o *Orchestrator) allocationCost(ctx context.Context, exposure domain.ProductExposure) int64 {
	if o.costs == nil {
		return 0
	}
	breakdown, err := o.costs.FetchCosts(ctx, exposure.Product, exposure.TotalCoverageCents)
	if err != nil {
		o.logger.Warn("hedge: cost estimate failed",
			slog.String("product", exposure.Product.String()),
			slog.String("error", err.Error()))
		return 0
	}
	return breakdown.TotalCents
}

// execute opens one position per weighted venue. Failures book a closed
// sentinel so the book never carries an open ghost.
func (o *Orchestrator) execute(ctx context.Context, exposure domain.ProductExposure, allocation domain.HedgeAllocation, totals map[domain.Venue]int64) {
	now := time.Now().UTC()
	// Positions from a single-policy product carry that policy id so the claim
	// close path can find them; aggregate hedges are pool-level.
	var policyID int64
	if exposure.ActivePolicies == 1 {
		for _, p := range o.pool.Snapshot().ActivePolicies {
			if p.Product == exposure.Product {
				policyID = p.ID
				break
			}
		}
	}

	for _, venue := range domain.Venues {
		amount := allocation.VenueSlice(venue)
		if amount <= 0 {
			continue
		}
		adapter, ok := o.venues[venue]
		if !ok {
			continue
		}

		side, leverage := "short", o.cfg.Leverage
		switch venue {
		case domain.VenuePolymarket:
			side, leverage = "yes", 1
		case domain.VenueAllianz:
			side, leverage = "bind", 1
		}

		pos := domain.HedgePosition{
			PositionID: uuid.NewString(),
			PolicyID:   policyID,
			Product:    exposure.Product,
			Venue:      venue,
			HedgeCents: amount,
			EntryTime:  now,
		}

		order, err := adapter.OpenPosition(ctx, exposure.Product, amount, side, leverage)
		if err != nil {
			o.logger.Warn("hedge: venue execution failed",
				slog.String("venue", string(venue)),
				slog.String("product", exposure.Product.String()),
				slog.String("error", err.Error()))
			pos.Status = domain.HedgeStatusClosed
			closed := now
			pos.CloseTime = &closed
		} else {
			pos.Status = domain.HedgeStatusOpen
			pos.ExternalOrderID = order.OrderID
			pos.EntryPrice = order.Price
			totals[venue] += amount
		}

		if err := o.positions.Create(ctx, pos); err != nil {
			o.logger.Error("hedge: persist position failed",
				slog.String("position_id", pos.PositionID),
				slog.String("error", err.Error()))
		}
	}
}

// CloseForPolicy closes every open position booked against the paid policy.
// Closing an already-closed position is a no-op. Venue-specific P&L rules:
// Polymarket from the exit share price, perpetuals as returned net of fees and
// funding, Allianz as decided by the venue (full hedge amount or zero).
func (o *Orchestrator) CloseForPolicy(ctx context.Context, policyID int64) error {
	positions, err := o.positions.ListOpenByPolicy(ctx, policyID)
	if err != nil {
		return fmt.Errorf("hedge: list positions for policy %d: %w", policyID, err)
	}

	var total int64
	for _, pos := range positions {
		if pos.Status != domain.HedgeStatusOpen {
			continue
		}
		adapter, ok := o.venues[pos.Venue]
		if !ok {
			continue
		}
		result, err := adapter.ClosePosition(ctx, pos.ExternalOrderID)
		if err != nil {
			o.logger.Warn("hedge: close failed",
				slog.String("position_id", pos.PositionID),
				slog.String("venue", string(pos.Venue)),
				slog.String("error", err.Error()))
			continue
		}

		pnl := result.NetPnLCents
		if pos.Venue == domain.VenuePolymarket && pos.EntryPrice > 0 {
			shares := float64(pos.HedgeCents) / pos.EntryPrice
			pnl = int64(math.Round((result.ExitPrice - pos.EntryPrice) * shares))
		}

		now := time.Now().UTC()
		pos.Status = domain.HedgeStatusClosed
		pos.RealizedPnLCents = &pnl
		pos.CloseTime = &now
		if err := o.positions.Update(ctx, pos); err != nil {
			o.logger.Error("hedge: persist closed position failed",
				slog.String("position_id", pos.PositionID),
				slog.String("error", err.Error()))
			continue
		}
		total += pnl
	}

	o.logger.Info("hedge: closed positions for policy",
		slog.Int64("policy_id", policyID),
		slog.Int("count", len(positions)),
		slog.Int64("total_pnl_cents", total))
	return nil
}

// rebalance closes a product's open positions so the next execute books the
// new size.
func (o *Orchestrator) rebalance(ctx context.Context, product domain.ProductKey) {
	open, err := o.positions.ListOpen(ctx)
	if err != nil {
		o.logger.Warn("hedge: rebalance listing failed", slog.String("error", err.Error()))
		return
	}
	for _, pos := range open {
		if pos.Product != product {
			continue
		}
		adapter, ok := o.venues[pos.Venue]
		if !ok {
			continue
		}
		result, err := adapter.ClosePosition(ctx, pos.ExternalOrderID)
		if err != nil {
			o.logger.Warn("hedge: rebalance close failed",
				slog.String("position_id", pos.PositionID),
				slog.String("error", err.Error()))
			continue
		}
		now := time.Now().UTC()
		pnl := result.NetPnLCents
		pos.Status = domain.HedgeStatusClosed
		pos.RealizedPnLCents = &pnl
		pos.CloseTime = &now
		if err := o.positions.Update(ctx, pos); err != nil {
			o.logger.Error("hedge: persist rebalanced position failed",
				slog.String("position_id", pos.PositionID),
				slog.String("error", err.Error()))
		}
	}
	o.logger.Info("hedge: rebalanced product", slog.String("product", product.String()))
}

// report logs the cycle summary and archives it when an archiver is wired.
func (o *Orchestrator) report(ctx context.Context, totals map[domain.Venue]int64, costCents int64) {
	if len(totals) == 0 {
		return
	}
	var sum int64
	attrs := make([]any, 0, len(totals)+2)
	for _, venue := range domain.Venues {
		if cents, ok := totals[venue]; ok {
			sum += cents
			attrs = append(attrs, slog.Int64(string(venue), cents))
		}
	}
	attrs = append(attrs, slog.Int64("total_cents", sum), slog.Int64("estimated_cost_cents", costCents))
	o.logger.Info("hedge: cycle executed", attrs...)

	if o.archiver != nil {
		record := map[string]any{
			"totals_by_venue":      totals,
			"total_cents":          sum,
			"estimated_cost_cents": costCents,
		}
		if err := o.archiver.Archive(ctx, "hedge_reports", time.Now().UTC(), []any{record}); err != nil {
			o.logger.Warn("hedge: archive report failed", slog.String("error", err.Error()))
		}
	}
}

// drift is the relative difference between the open hedge size and the newly
// computed allocation.
func drift(openCents, newCents int64) float64 {
	if openCents == 0 {
		return 0
	}
	return math.Abs(float64(newCents-openCents)) / float64(openCents)
}
