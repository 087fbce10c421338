// Package state owns the mutable shared state of the coordination plane: the
// unified capital pool and the latest snapshot of every monitored signal.
// Each field has a single writer; readers always receive consistent copies.
package state

import (
	"fmt"
	"sync"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// Pool is the live unified capital pool. All mutations run check-then-commit
// under one mutex so the pool invariants hold at every observable point:
// 0 <= coverage sold <= capital, and the active policies sum to coverage sold.
type Pool struct {
	mu            sync.Mutex
	capitalCents  int64
	coverageCents int64
	active        map[int64]domain.Policy
	order         []int64 // insertion order of active policy ids
}

// NewPool creates a pool seeded with the given capital.
func NewPool(capitalCents int64) *Pool {
	return &Pool{
		capitalCents: capitalCents,
		active:       make(map[int64]domain.Policy),
	}
}

// Deposit adds capital to the pool.
func (p *Pool) Deposit(cents int64) {
	if cents <= 0 {
		return
	}
	p.mu.Lock()
	p.capitalCents += cents
	p.mu.Unlock()
}

// AddPolicy admits a policy into the active set, booking its coverage. It
// fails when the policy would push coverage sold past capital, or when the id
// is already active.
func (p *Pool) AddPolicy(pol domain.Policy) error {
	if pol.CoverageCents < 0 {
		return fmt.Errorf("state: add policy %d: %w", pol.ID, domain.ErrValidation)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.active[pol.ID]; ok {
		return fmt.Errorf("state: add policy %d: %w", pol.ID, domain.ErrAlreadyExists)
	}
	if p.coverageCents+pol.CoverageCents > p.capitalCents {
		return fmt.Errorf("state: add policy %d: %w", pol.ID, domain.ErrInsufficientCapital)
	}

	p.active[pol.ID] = pol
	p.order = append(p.order, pol.ID)
	p.coverageCents += pol.CoverageCents
	return nil
}

// RemovePolicy drops a policy from the active set without touching capital
// (expiry path). The released coverage is unbooked.
func (p *Pool) RemovePolicy(id int64) (domain.Policy, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pol, ok := p.active[id]
	if !ok {
		return domain.Policy{}, fmt.Errorf("state: remove policy %d: %w", id, domain.ErrNotFound)
	}
	p.dropLocked(id)
	return pol, nil
}

// ReservePayout atomically settles a claim: it verifies the payout fits in
// pool capital, then decrements capital by the payout, unbooks the policy's
// coverage, and removes it from the active set. On insufficient capital the
// pool is left untouched and the policy stays active.
func (p *Pool) ReservePayout(policyID, payoutCents int64) (domain.Policy, error) {
	if payoutCents < 0 {
		return domain.Policy{}, fmt.Errorf("state: reserve payout for %d: %w", policyID, domain.ErrValidation)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	pol, ok := p.active[policyID]
	if !ok {
		return domain.Policy{}, fmt.Errorf("state: reserve payout for %d: %w", policyID, domain.ErrNotFound)
	}
	if payoutCents > p.capitalCents {
		return domain.Policy{}, fmt.Errorf("state: reserve payout for %d: %w", policyID, domain.ErrInsufficientCapital)
	}

	p.capitalCents -= payoutCents
	p.dropLocked(policyID)
	return pol, nil
}

// dropLocked removes a policy and its coverage booking. Caller holds mu.
func (p *Pool) dropLocked(id int64) {
	pol := p.active[id]
	delete(p.active, id)
	p.coverageCents -= pol.CoverageCents
	for i, oid := range p.order {
		if oid == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Snapshot returns a consistent copy of the pool for readers. Policies appear
// in insertion order.
func (p *Pool) Snapshot() domain.UnifiedPool {
	p.mu.Lock()
	defer p.mu.Unlock()

	policies := make([]domain.Policy, 0, len(p.order))
	for _, id := range p.order {
		policies = append(policies, p.active[id])
	}
	return domain.UnifiedPool{
		TotalCapitalCents:      p.capitalCents,
		TotalCoverageSoldCents: p.coverageCents,
		ActivePolicies:         policies,
	}
}

// Get returns one active policy by id.
func (p *Pool) Get(id int64) (domain.Policy, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pol, ok := p.active[id]
	return pol, ok
}
