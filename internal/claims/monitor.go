// Package claims runs the payout engine: it samples oracle prices for every
// active policy, advances trigger confirmation state, and settles confirmed
// claims against the pool with piecewise-linear payout interpolation.
package claims

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/config"
	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
	"github.com/HobanSearch/Tonsurance-sub007/internal/notify"
	"github.com/HobanSearch/Tonsurance-sub007/internal/state"
)

// Publisher is the hub-facing side payout events are published to.
type Publisher interface {
	Broadcast(channel string, message map[string]any)
}

// HedgeCloser closes open hedge positions for a paid policy.
type HedgeCloser interface {
	CloseForPolicy(ctx context.Context, policyID int64) error
}

// Notifier forwards operator-facing events to external channels.
type Notifier interface {
	Notify(ctx context.Context, event notify.Event, title, message string) error
}

// cycleLock is the distributed lock name guarding one claims cycle.
const cycleLock = "claims_cycle"

// PayoutRecord is the immutable settlement record emitted per paid claim.
type PayoutRecord struct {
	PolicyID            int64   `json:"policy_id"`
	PayoutCents         int64   `json:"payout"`
	Beneficiary         string  `json:"beneficiary"`
	TriggerPrice        float64 `json:"trigger_price"`
	FloorPrice          float64 `json:"floor_price"`
	CurrentPrice        float64 `json:"current_price"`
	InterpolationFactor float64 `json:"interpolation_factor"`
	Timestamp           int64   `json:"timestamp"`
}

// Monitor is the claims monitor. One cycle runs per sample interval; cycles
// never overlap.
type Monitor struct {
	cfg      config.ClaimsConfig
	pool     *state.Pool
	st       *state.State
	oracle   domain.OracleAdapter
	triggers domain.TriggerStateStore
	policies domain.PolicyStore
	archiver domain.Archiver
	hedges   HedgeCloser
	hub      Publisher
	lock     domain.LockManager
	notifier Notifier
	logger   *slog.Logger
}

// Options carries the optional collaborators of the monitor.
type Options struct {
	Policies domain.PolicyStore
	Archiver domain.Archiver
	Hedges   HedgeCloser
	Lock     domain.LockManager
	Notify   Notifier
}

// NewMonitor creates a claims monitor.
func NewMonitor(cfg config.ClaimsConfig, pool *state.Pool, st *state.State, oracle domain.OracleAdapter, triggers domain.TriggerStateStore, hub Publisher, opts Options, logger *slog.Logger) *Monitor {
	return &Monitor{
		cfg:      cfg,
		pool:     pool,
		st:       st,
		oracle:   oracle,
		triggers: triggers,
		policies: opts.Policies,
		archiver: opts.Archiver,
		hedges:   opts.Hedges,
		hub:      hub,
		lock:     opts.Lock,
		notifier: opts.Notify,
		logger:   logger.With(slog.String("component", "claims")),
	}
}

// Run executes one cycle per sample interval until ctx is cancelled. Cycle
// errors are logged; the next cycle retries.
func (m *Monitor) Run(ctx context.Context) error {
	interval := m.cfg.SampleInterval.Duration
	m.logger.Info("claims: monitor starting", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.safeCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("claims: monitor stopping")
			return nil
		case <-ticker.C:
			m.safeCycle(ctx)
		}
	}
}

func (m *Monitor) safeCycle(ctx context.Context) {
	if err := m.RunCycle(ctx); err != nil {
		m.logger.Warn("claims: cycle failed", slog.String("error", err.Error()))
		return
	}
	m.st.MarkAlive("claims")
}

// RunCycle executes one full sample-confirm-settle cycle.
func (m *Monitor) RunCycle(ctx context.Context) error {
	if m.lock != nil {
		unlock, err := m.lock.Acquire(ctx, cycleLock, m.cfg.SampleInterval.Duration)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				m.logger.Debug("claims: cycle lock held elsewhere, skipping")
				return nil
			}
			return fmt.Errorf("claims: acquire lock: %w", err)
		}
		defer unlock()
	}

	now := time.Now().UTC()
	snap := m.pool.Snapshot()
	if len(snap.ActivePolicies) == 0 {
		return nil
	}

	m.expirePolicies(ctx, snap.ActivePolicies, now)

	prices, err := m.oracle.FetchPrices(ctx, referencedAssets(snap.ActivePolicies))
	if err != nil {
		return fmt.Errorf("claims: fetch prices: %w", err)
	}
	m.publishPrices(prices, now)

	var payouts []PayoutRecord
	for _, policy := range snap.ActivePolicies {
		price, ok := prices[string(policy.Product.Stablecoin)]
		if !ok {
			// Partial oracle result: skip the sample, state untouched.
			continue
		}

		st := m.loadTriggerState(ctx, policy.ID)
		st = st.Observe(price < policy.TriggerPrice, now)
		if err := m.triggers.Upsert(ctx, st); err != nil {
			m.logger.Warn("claims: persist trigger state failed",
				slog.Int64("policy_id", policy.ID), slog.String("error", err.Error()))
		}

		if !st.Confirmed(m.cfg.ConfirmationSamples) || policy.Expired(now) {
			continue
		}
		if rec, ok := m.settle(ctx, policy, price, now); ok {
			payouts = append(payouts, rec)
		}
	}

	if len(payouts) > 0 {
		m.archivePayouts(ctx, payouts, now)
		m.logger.Info("claims: cycle settled payouts", slog.Int("count", len(payouts)))
	}
	return nil
}

// publishPrices fans the cycle's oracle sample out on the pricing channel, so
// subscribers see the live price even on cycles with no settlements.
func (m *Monitor) publishPrices(prices map[string]float64, now time.Time) {
	if len(prices) == 0 {
		return
	}
	m.hub.Broadcast("pricing_updates", map[string]any{
		"type":      "price_sample",
		"prices":    prices,
		"timestamp": now.Format(time.RFC3339),
	})
}

// PayoutAmount interpolates the payout for a confirmed trigger. At or above
// trigger the payout is zero; at or below floor it is the full coverage;
// between them it scales linearly.
func PayoutAmount(coverageCents int64, triggerPrice, floorPrice, currentPrice float64) (int64, float64) {
	switch {
	case currentPrice >= triggerPrice:
		return 0, 0
	case currentPrice <= floorPrice:
		return coverageCents, 1
	}
	factor := (triggerPrice - currentPrice) / (triggerPrice - floorPrice)
	return int64(math.Round(float64(coverageCents) * factor)), factor
}

// settle reserves capital and emits one payout. A failed reservation leaves
// the policy active for the next cycle.
func (m *Monitor) settle(ctx context.Context, policy domain.Policy, price float64, now time.Time) (PayoutRecord, bool) {
	payout, factor := PayoutAmount(policy.CoverageCents, policy.TriggerPrice, policy.FloorPrice, price)
	if payout == 0 {
		return PayoutRecord{}, false
	}

	settled, err := m.pool.ReservePayout(policy.ID, payout)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCapital) {
			m.logger.Warn("claims: insufficient capital, payout deferred",
				slog.Int64("policy_id", policy.ID),
				slog.Int64("payout_cents", payout))
			return PayoutRecord{}, false
		}
		m.logger.Error("claims: reserve payout failed",
			slog.Int64("policy_id", policy.ID), slog.String("error", err.Error()))
		return PayoutRecord{}, false
	}

	settled.Status = domain.PolicyStatusClaimed
	settled.PayoutCents = payout
	settled.PayoutTime = now.Unix()
	if m.policies != nil {
		if err := m.policies.Update(ctx, settled); err != nil {
			m.logger.Warn("claims: persist claimed policy failed",
				slog.Int64("policy_id", policy.ID), slog.String("error", err.Error()))
		}
	}
	if err := m.triggers.Delete(ctx, policy.ID); err != nil {
		m.logger.Warn("claims: delete trigger state failed",
			slog.Int64("policy_id", policy.ID), slog.String("error", err.Error()))
	}

	if m.hedges != nil {
		if err := m.hedges.CloseForPolicy(ctx, policy.ID); err != nil {
			m.logger.Warn("claims: close hedges failed",
				slog.Int64("policy_id", policy.ID), slog.String("error", err.Error()))
		}
	}

	rec := PayoutRecord{
		PolicyID:            policy.ID,
		PayoutCents:         payout,
		Beneficiary:         policy.Payee(),
		TriggerPrice:        policy.TriggerPrice,
		FloorPrice:          policy.FloorPrice,
		CurrentPrice:        price,
		InterpolationFactor: factor,
		Timestamp:           now.Unix(),
	}

	m.hub.Broadcast("pricing_updates", map[string]any{
		"type":          "claim_paid",
		"policy_id":     policy.ID,
		"payout_usd":    float64(payout) / 100,
		"current_price": price,
		"trigger_price": policy.TriggerPrice,
		"timestamp":     now.Format(time.RFC3339),
	})

	if m.notifier != nil {
		title := fmt.Sprintf("Claim paid: policy %d", policy.ID)
		body := fmt.Sprintf("$%.2f to %s at price %.4f", float64(payout)/100, rec.Beneficiary, price)
		if err := m.notifier.Notify(ctx, notify.EventClaimPaid, title, body); err != nil {
			m.logger.Warn("claims: payout notification failed",
				slog.Int64("policy_id", policy.ID), slog.String("error", err.Error()))
		}
	}

	m.logger.Info("claims: payout settled",
		slog.Int64("policy_id", policy.ID),
		slog.Int64("payout_cents", payout),
		slog.Float64("factor", factor),
		slog.String("beneficiary", rec.Beneficiary))
	return rec, true
}

// expirePolicies removes policies past expiry from the pool and marks them in
// the store. Expiry beats trigger confirmation within a cycle.
func (m *Monitor) expirePolicies(ctx context.Context, policies []domain.Policy, now time.Time) {
	for _, p := range policies {
		if !p.Expired(now) {
			continue
		}
		removed, err := m.pool.RemovePolicy(p.ID)
		if err != nil {
			continue
		}
		removed.Status = domain.PolicyStatusExpired
		if m.policies != nil {
			if err := m.policies.Update(ctx, removed); err != nil {
				m.logger.Warn("claims: persist expired policy failed",
					slog.Int64("policy_id", p.ID), slog.String("error", err.Error()))
			}
		}
		if err := m.triggers.Delete(ctx, p.ID); err != nil {
			m.logger.Warn("claims: delete trigger state failed",
				slog.Int64("policy_id", p.ID), slog.String("error", err.Error()))
		}
		m.logger.Info("claims: policy expired", slog.Int64("policy_id", p.ID))
	}
}

func (m *Monitor) loadTriggerState(ctx context.Context, policyID int64) domain.TriggerState {
	st, err := m.triggers.Get(ctx, policyID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			m.logger.Warn("claims: load trigger state failed",
				slog.Int64("policy_id", policyID), slog.String("error", err.Error()))
		}
		return domain.TriggerState{PolicyID: policyID}
	}
	return st
}

func (m *Monitor) archivePayouts(ctx context.Context, payouts []PayoutRecord, now time.Time) {
	if m.archiver == nil {
		return
	}
	records := make([]any, len(payouts))
	for i, p := range payouts {
		records[i] = p
	}
	if err := m.archiver.Archive(ctx, "payouts", now, records); err != nil {
		m.logger.Warn("claims: archive payouts failed", slog.String("error", err.Error()))
	}
}

// referencedAssets collects the distinct stablecoins covered by the active
// book, in first-seen order.
func referencedAssets(policies []domain.Policy) []string {
	seen := map[string]struct{}{}
	var assets []string
	for _, p := range policies {
		asset := string(p.Product.Stablecoin)
		if _, ok := seen[asset]; ok {
			continue
		}
		seen[asset] = struct{}{}
		assets = append(assets, asset)
	}
	return assets
}
