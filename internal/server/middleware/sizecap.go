package middleware

import (
	"fmt"
	"net/http"
)

// SizeCap returns middleware that rejects request bodies larger than maxBytes
// with a 413. Requests under the cap pass through with the body wrapped in a
// MaxBytesReader so chunked uploads cannot sidestep the limit.
func SizeCap(maxBytes int64) func(http.Handler) http.Handler {
	maxMB := maxBytes / (1 << 20)
	body := fmt.Sprintf(`{"error":"Request body too large","max_size_mb":%d}`, maxMB)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				w.Write([]byte(body))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
