package domain

import "time"

// Scope is an API key permission level.
type Scope string

const (
	ScopeRead  Scope = "read"
	ScopeWrite Scope = "write"
	ScopeAdmin Scope = "admin"
)

// APIKeyInfo is the stored record for one bearer key. The raw key is never
// stored; only its SHA-256 hash.
type APIKeyInfo struct {
	KeyHash   string     `json:"key_hash"`
	Name      string     `json:"name"`
	Scopes    []Scope    `json:"scopes"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Revoked   bool       `json:"revoked"`
}

// HasScope reports whether the key carries the given scope. Admin implies
// write.
func (k APIKeyInfo) HasScope(s Scope) bool {
	for _, have := range k.Scopes {
		if have == s {
			return true
		}
		if s == ScopeWrite && have == ScopeAdmin {
			return true
		}
	}
	return false
}

// Usable reports whether the key is accepted at time now: not revoked and,
// when an expiry is set, strictly before it.
func (k APIKeyInfo) Usable(now time.Time) bool {
	if k.Revoked {
		return false
	}
	if k.ExpiresAt != nil && !now.Before(*k.ExpiresAt) {
		return false
	}
	return true
}
