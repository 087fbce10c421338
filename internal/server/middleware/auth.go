package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// KeyResolver looks up an API key record by the SHA-256 hex hash of the raw
// bearer key. It returns domain.ErrNotFound for unknown keys.
type KeyResolver interface {
	Resolve(ctx context.Context, keyHash string) (domain.APIKeyInfo, error)
}

// ProtectedRoute declares one path prefix requiring authentication for the
// listed methods. An empty method list protects every method.
type ProtectedRoute struct {
	Prefix  string
	Methods []string
}

// adminPrefix is the path space that additionally requires the admin scope.
const adminPrefix = "/api/v2/admin/"

type ctxKey int

const apiKeyCtxKey ctxKey = iota

// APIKeyFrom returns the authenticated key for the request, if any.
func APIKeyFrom(ctx context.Context) (domain.APIKeyInfo, bool) {
	k, ok := ctx.Value(apiKeyCtxKey).(domain.APIKeyInfo)
	return k, ok
}

// HashKey returns the hex SHA-256 of a raw bearer key.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Auth returns middleware enforcing bearer-key authentication on the declared
// protected routes. Unprotected requests pass through, but a presented valid
// key is still attached to the context so downstream rate limiting can use the
// key identity.
func Auth(resolver KeyResolver, protected []ProtectedRoute) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now().UTC()

			key, keyErr := presentedKey(r, resolver)
			if keyErr == nil && key.Usable(now) {
				r = r.WithContext(context.WithValue(r.Context(), apiKeyCtxKey, key))
			}

			if !routeProtected(r, protected) {
				next.ServeHTTP(w, r)
				return
			}

			switch {
			case keyErr != nil:
				writeUnauthorized(w, keyErr.Error())
				return
			case key.Revoked:
				writeUnauthorized(w, "API key revoked")
				return
			case !key.Usable(now):
				writeUnauthorized(w, "API key expired")
				return
			}

			required := domain.ScopeWrite
			if strings.HasPrefix(r.URL.Path, adminPrefix) {
				required = domain.ScopeAdmin
			}
			if !key.HasScope(required) {
				writeForbidden(w, "insufficient scope")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// presentedKey extracts and resolves the bearer key on the request. The error
// messages are the fixed strings surfaced in 401 bodies.
func presentedKey(r *http.Request, resolver KeyResolver) (domain.APIKeyInfo, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return domain.APIKeyInfo{}, errMissingKey
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return domain.APIKeyInfo{}, errMalformedKey
	}

	key, err := resolver.Resolve(r.Context(), HashKey(strings.TrimSpace(parts[1])))
	if err != nil {
		return domain.APIKeyInfo{}, errUnknownKey
	}
	return key, nil
}

type authError string

func (e authError) Error() string { return string(e) }

const (
	errMissingKey   = authError("missing API key")
	errMalformedKey = authError("malformed authorization header")
	errUnknownKey   = authError("invalid API key")
)

func routeProtected(r *http.Request, protected []ProtectedRoute) bool {
	for _, route := range protected {
		if !strings.HasPrefix(r.URL.Path, route.Prefix) {
			continue
		}
		if len(route.Methods) == 0 {
			return true
		}
		for _, m := range route.Methods {
			if strings.EqualFold(m, r.Method) {
				return true
			}
		}
	}
	return false
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}

func writeForbidden(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
