// Package failover wraps a distributed rate limiter with a process-local
// fallback. While the primary (Redis) backend answers, it is the source of
// truth; when it errors, checks are served from the fallback until the
// primary recovers. The two backends never share window state.
package failover

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// RateLimiter routes Allow calls to the primary backend, switching to the
// fallback on primary errors.
type RateLimiter struct {
	primary  domain.RateLimiter
	fallback domain.RateLimiter
	logger   *slog.Logger

	// degraded is set while the primary is failing so the switch is only
	// logged on transitions, not every request.
	degraded atomic.Bool
}

// New creates a failover limiter. primary may be nil (no Redis configured), in
// which case every check goes straight to the fallback.
func New(primary, fallback domain.RateLimiter, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With(slog.String("component", "ratelimit")),
	}
}

// Allow applies the sliding-window check, preferring the distributed backend.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (domain.LimitDecision, error) {
	if rl.primary != nil {
		dec, err := rl.primary.Allow(ctx, key, limit, window)
		if err == nil {
			if rl.degraded.Swap(false) {
				rl.logger.Info("distributed rate limiter recovered")
			}
			return dec, nil
		}
		if !rl.degraded.Swap(true) {
			rl.logger.Warn("distributed rate limiter unreachable, using in-memory fallback",
				slog.String("error", err.Error()),
			)
		}
	}
	return rl.fallback.Allow(ctx, key, limit, window)
}

// Stats merges the counters of both backends.
func (rl *RateLimiter) Stats() domain.LimiterStats {
	stats := rl.fallback.Stats()
	if rl.primary != nil {
		p := rl.primary.Stats()
		stats.TotalRequests += p.TotalRequests
		stats.BlockedRequests += p.BlockedRequests
	}
	return stats
}

// Compile-time interface check.
var _ domain.RateLimiter = (*RateLimiter)(nil)
