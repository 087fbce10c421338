package domain

import (
	"context"
	"time"
)

// PolicyStore persists policies.
type PolicyStore interface {
	Create(ctx context.Context, p Policy) error
	Get(ctx context.Context, id int64) (Policy, error)
	ListActive(ctx context.Context) ([]Policy, error)
	Update(ctx context.Context, p Policy) error
}

// TriggerStateStore persists per-policy trigger confirmation state.
type TriggerStateStore interface {
	Get(ctx context.Context, policyID int64) (TriggerState, error)
	Upsert(ctx context.Context, st TriggerState) error
	Delete(ctx context.Context, policyID int64) error
}

// HedgePositionStore persists hedge positions.
type HedgePositionStore interface {
	Create(ctx context.Context, pos HedgePosition) error
	Get(ctx context.Context, positionID string) (HedgePosition, error)
	ListOpen(ctx context.Context) ([]HedgePosition, error)
	ListOpenByPolicy(ctx context.Context, policyID int64) ([]HedgePosition, error)
	Update(ctx context.Context, pos HedgePosition) error
}

// APIKeyStore persists bearer-key records keyed by SHA-256 hash.
type APIKeyStore interface {
	GetByHash(ctx context.Context, keyHash string) (APIKeyInfo, error)
	List(ctx context.Context) ([]APIKeyInfo, error)
	Upsert(ctx context.Context, key APIKeyInfo) error
}

// BridgeTxStore persists monitored cross-chain transfers.
type BridgeTxStore interface {
	ListPending(ctx context.Context) ([]BridgeTransaction, error)
	Upsert(ctx context.Context, tx BridgeTransaction) error
}

// OracleAdapter fetches current prices for a set of assets. Partial results
// are allowed; missing assets are simply absent from the returned map.
type OracleAdapter interface {
	FetchPrices(ctx context.Context, assets []string) (map[string]float64, error)
}

// BridgeMonitor recomputes the health of all known bridges, carrying forward
// the previous state keyed by bridge id.
type BridgeMonitor interface {
	MonitorAll(ctx context.Context, previous map[string]BridgeHealth) ([]BridgeHealth, error)
}

// RiskMonitor computes a full risk snapshot from a pool view.
type RiskMonitor interface {
	CalculateSnapshot(ctx context.Context, pool UnifiedPool) (RiskSnapshot, error)
}

// UtilizationTracker reports per-tranche utilization and yield.
type UtilizationTracker interface {
	GetAllUtilizations(ctx context.Context) ([]TrancheYield, error)
	GetAvailableCapacity(ctx context.Context, trancheID string) (int64, error)
}

// VenueAdapter is the abstract contract every hedge venue implements.
// Side is "short" for perpetuals and "yes" for binary markets; leverage is
// ignored by venues that do not support it.
type VenueAdapter interface {
	Venue() Venue
	Quote(ctx context.Context, product ProductKey, amountCents int64) (VenueQuote, error)
	OpenPosition(ctx context.Context, product ProductKey, amountCents int64, side string, leverage int) (VenueOrder, error)
	ClosePosition(ctx context.Context, orderID string) (VenueClose, error)
}

// Archiver writes immutable records (payouts, hedge reports) to cold storage.
type Archiver interface {
	Archive(ctx context.Context, kind string, ts time.Time, records []any) error
}
