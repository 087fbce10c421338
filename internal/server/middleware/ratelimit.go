package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// RateLimitConfig selects the request limit for a caller.
type RateLimitConfig struct {
	AuthedPerWindow int
	AnonPerWindow   int
	Window          time.Duration
	// EndpointLimits tightens the limit further for matching path prefixes.
	EndpointLimits map[string]int
}

// RateLimit returns middleware applying a sliding-window limit per caller.
// Authenticated callers are identified by their key hash, anonymous ones by
// client IP. X-RateLimit-* headers are set on every response; denials get a
// 429 with Retry-After.
func RateLimit(limiter domain.RateLimiter, cfg RateLimitConfig) func(http.Handler) http.Handler {
	windowSecs := strconv.Itoa(int(cfg.Window.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit := cfg.AnonPerWindow
			identifier := "ip:" + clientIP(r)
			if key, ok := APIKeyFrom(r.Context()); ok {
				limit = cfg.AuthedPerWindow
				identifier = "key:" + key.KeyHash
			}
			for prefix, l := range cfg.EndpointLimits {
				if strings.HasPrefix(r.URL.Path, prefix) && l < limit {
					limit = l
				}
			}

			dec, err := limiter.Allow(r.Context(), identifier, limit, cfg.Window)
			if err != nil {
				// The failover limiter already absorbed backend outages;
				// an error here means both paths failed. Fail open.
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
			h.Set("X-RateLimit-Reset", windowSecs)

			if !dec.Allowed {
				h.Set("Retry-After", windowSecs)
				h.Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limit exceeded","retry_after_seconds":` + windowSecs + `}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP determines the real client IP from standard proxy headers, falling
// back to the direct remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.SplitN(xff, ",", 2)
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
