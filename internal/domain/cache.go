package domain

import (
	"context"
	"time"
)

// LimitDecision is the outcome of one rate-limit check.
type LimitDecision struct {
	Allowed   bool
	Remaining int // requests left in the current window after this one
}

// LimiterStats are monotone observability counters every limiter backend
// maintains.
type LimiterStats struct {
	TotalRequests   uint64 `json:"total_requests"`
	BlockedRequests uint64 `json:"blocked_requests"`
}

// RateLimiter applies a sliding-window rate limit per identifier. Allow counts
// the request when permitted; a denied request is never counted against the
// window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (LimitDecision, error)
	Stats() LimiterStats
}

// LockManager provides distributed locking for cycle exclusivity across
// replicas.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// PriceCache provides fast access to the latest oracle prices.
type PriceCache interface {
	SetPrice(ctx context.Context, asset string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, asset string) (float64, time.Time, error)
	GetPrices(ctx context.Context, assets []string) (map[string]float64, error)
}
