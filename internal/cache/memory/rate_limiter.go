// Package memory provides the process-local fallback implementation of
// domain.RateLimiter, used when the distributed Redis backend is unreachable.
// Window semantics are identical to the Redis backend: a sliding window of
// timestamps per identifier, pruned lazily on each check.
package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// RateLimiter is an in-memory sliding-window rate limiter. State is
// process-local and serialized by a single mutex.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time

	total   atomic.Uint64
	blocked atomic.Uint64
}

// NewRateLimiter creates an empty in-memory limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		windows: make(map[string][]time.Time),
	}
}

// Allow checks whether a request for the given identifier is permitted.
// Timestamps older than the window are pruned; an allowed request appends the
// current timestamp, a denied one leaves the window untouched.
func (rl *RateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (domain.LimitDecision, error) {
	rl.total.Add(1)
	now := time.Now()
	cutoff := now.Add(-window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	q := rl.windows[key]
	kept := q[:0]
	for _, ts := range q {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		rl.windows[key] = kept
		rl.blocked.Add(1)
		return domain.LimitDecision{Allowed: false, Remaining: 0}, nil
	}

	kept = append(kept, now)
	rl.windows[key] = kept
	return domain.LimitDecision{
		Allowed:   true,
		Remaining: limit - len(kept),
	}, nil
}

// Stats returns the monotone request counters.
func (rl *RateLimiter) Stats() domain.LimiterStats {
	return domain.LimiterStats{
		TotalRequests:   rl.total.Load(),
		BlockedRequests: rl.blocked.Load(),
	}
}

// Compile-time interface check.
var _ domain.RateLimiter = (*RateLimiter)(nil)
