package redis

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// slidingWindowLua atomically prunes a per-identifier sorted set of request
// timestamps, counts the survivors, and appends the current request when the
// window still has room. Scores and members are microsecond timestamps; the
// key expires one window after its last touch.
//
// Returns {allowed, remaining-after-this-request}.
const slidingWindowLua = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)
if count < limit then
    redis.call('ZADD', key, now, now .. '-' .. math.random(1000000))
    redis.call('PEXPIRE', key, math.floor(window / 1000))
    return {1, limit - count - 1}
end
return {0, 0}
`

// RateLimiter implements domain.RateLimiter with a sliding window over a
// Redis sorted set, evaluated atomically by a Lua script.
type RateLimiter struct {
	rdb           *redis.Client
	slidingWindow *redis.Script

	total   atomic.Uint64
	blocked atomic.Uint64
}

// NewRateLimiter creates a RateLimiter backed by the given Client.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{
		rdb:           c.Underlying(),
		slidingWindow: redis.NewScript(slidingWindowLua),
	}
}

func rateLimitKey(key string) string {
	return "ratelimit:" + key
}

// Allow checks whether a request for the given identifier is permitted under
// the sliding window. An allowed request is counted; a denied one is not.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (domain.LimitDecision, error) {
	rl.total.Add(1)

	now := time.Now().UnixMicro()
	result, err := rl.slidingWindow.Run(
		ctx,
		rl.rdb,
		[]string{rateLimitKey(key)},
		now,
		window.Microseconds(),
		limit,
	).Int64Slice()
	if err != nil {
		return domain.LimitDecision{}, fmt.Errorf("redis: rate limit allow %s: %w", key, err)
	}
	if len(result) < 2 {
		return domain.LimitDecision{}, fmt.Errorf("redis: rate limit allow %s: unexpected result length %d", key, len(result))
	}

	dec := domain.LimitDecision{
		Allowed:   result[0] == 1,
		Remaining: int(result[1]),
	}
	if !dec.Allowed {
		rl.blocked.Add(1)
	}
	return dec, nil
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
