package state

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// State bundles the pool with the latest snapshot of every monitored signal.
// Snapshots are replaced atomically by their single producing loop and read
// by handlers and the fan-out loops.
type State struct {
	Pool *Pool

	risk     atomic.Pointer[domain.RiskSnapshot]
	bridges  atomic.Pointer[map[string]domain.BridgeHealth]
	tranches atomic.Pointer[[]domain.TrancheYield]

	mu        sync.Mutex
	liveness  map[string]time.Time
	startedAt time.Time
}

// New creates the shared state around a pool.
func New(pool *Pool) *State {
	s := &State{
		Pool:      pool,
		liveness:  make(map[string]time.Time),
		startedAt: time.Now().UTC(),
	}
	empty := make(map[string]domain.BridgeHealth)
	s.bridges.Store(&empty)
	return s
}

// SetRiskSnapshot replaces the latest risk snapshot. Single writer: the risk
// monitor loop.
func (s *State) SetRiskSnapshot(snap domain.RiskSnapshot) {
	s.risk.Store(&snap)
}

// RiskSnapshot returns the latest risk snapshot, or false when none has been
// produced yet.
func (s *State) RiskSnapshot() (domain.RiskSnapshot, bool) {
	p := s.risk.Load()
	if p == nil {
		return domain.RiskSnapshot{}, false
	}
	return *p, true
}

// SetBridgeStates replaces the bridge health map. Single writer: the bridge
// monitor loop.
func (s *State) SetBridgeStates(states map[string]domain.BridgeHealth) {
	s.bridges.Store(&states)
}

// BridgeStates returns the latest bridge health map. Callers must not mutate
// the returned map.
func (s *State) BridgeStates() map[string]domain.BridgeHealth {
	return *s.bridges.Load()
}

// BridgeState returns one bridge's health by id.
func (s *State) BridgeState(bridgeID string) (domain.BridgeHealth, bool) {
	b, ok := (*s.bridges.Load())[bridgeID]
	return b, ok
}

// SetTranches replaces the latest tranche yields. Single writer: the APY loop.
func (s *State) SetTranches(tranches []domain.TrancheYield) {
	s.tranches.Store(&tranches)
}

// Tranches returns the latest tranche yields, possibly nil before the first
// APY tick.
func (s *State) Tranches() []domain.TrancheYield {
	p := s.tranches.Load()
	if p == nil {
		return nil
	}
	return *p
}

// MarkAlive records that a named loop completed a tick. The status endpoint
// reports these timestamps.
func (s *State) MarkAlive(loop string) {
	s.mu.Lock()
	s.liveness[loop] = time.Now().UTC()
	s.mu.Unlock()
}

// Liveness returns a copy of the per-loop last-tick timestamps.
func (s *State) Liveness() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.liveness))
	for k, v := range s.liveness {
		out[k] = v
	}
	return out
}

// StartedAt returns the process start time.
func (s *State) StartedAt() time.Time {
	return s.startedAt
}
