package middleware

import (
	"net/http"
	"strings"
)

// CORS returns middleware that enforces the origin allowlist. A request whose
// Origin header is present but not allowed gets a 403; allowed origins are
// echoed back on the response. An empty allowlist (or "*") allows everything.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}
				if !allowed {
					w.Header().Set("Content-Type", "application/json; charset=utf-8")
					w.WriteHeader(http.StatusForbidden)
					w.Write([]byte(`{"error":"origin not allowed"}`))
					return
				}
				setCORSHeaders(w, origin)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Preflight handles the dedicated OPTIONS route: a 200 carrying only the CORS
// headers.
func Preflight(w http.ResponseWriter, r *http.Request) {
	if origin := r.Header.Get("Origin"); origin != "" {
		setCORSHeaders(w, origin)
	}
	w.WriteHeader(http.StatusOK)
}

func setCORSHeaders(w http.ResponseWriter, origin string) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	h.Set("Access-Control-Max-Age", "86400")
}
