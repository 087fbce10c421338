package crypto

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// Keyring is an in-memory API-key resolver loaded from the (optionally
// encrypted) key document at startup. Lookups are by SHA-256 hex hash of the
// raw bearer key.
type Keyring struct {
	mu   sync.RWMutex
	keys map[string]domain.APIKeyInfo
}

// LoadKeyring reads and parses the API-key document at path. The document is
// a JSON array of domain.APIKeyInfo records.
func LoadKeyring(path, password string) (*Keyring, error) {
	raw, err := LoadDocument(path, password)
	if err != nil {
		return nil, err
	}

	var records []domain.APIKeyInfo
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("crypto: parsing API key document: %w", err)
	}

	kr := NewKeyring()
	for _, rec := range records {
		kr.Put(rec)
	}
	return kr, nil
}

// NewKeyring creates an empty keyring.
func NewKeyring() *Keyring {
	return &Keyring{keys: make(map[string]domain.APIKeyInfo)}
}

// Put inserts or replaces a key record.
func (kr *Keyring) Put(rec domain.APIKeyInfo) {
	kr.mu.Lock()
	kr.keys[rec.KeyHash] = rec
	kr.mu.Unlock()
}

// Resolve returns the record for a key hash, or domain.ErrNotFound.
func (kr *Keyring) Resolve(_ context.Context, keyHash string) (domain.APIKeyInfo, error) {
	kr.mu.RLock()
	rec, ok := kr.keys[keyHash]
	kr.mu.RUnlock()
	if !ok {
		return domain.APIKeyInfo{}, domain.ErrNotFound
	}
	return rec, nil
}

// List returns every record in the ring.
func (kr *Keyring) List() []domain.APIKeyInfo {
	kr.mu.RLock()
	defer kr.mu.RUnlock()
	out := make([]domain.APIKeyInfo, 0, len(kr.keys))
	for _, rec := range kr.keys {
		out = append(out, rec)
	}
	return out
}
