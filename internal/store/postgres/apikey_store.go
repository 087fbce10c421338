package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// APIKeyStore implements domain.APIKeyStore using PostgreSQL. Deployments may
// use it instead of (or to seed) the encrypted keyring document.
type APIKeyStore struct {
	pool *pgxpool.Pool
}

// NewAPIKeyStore creates an APIKeyStore backed by the given connection pool.
func NewAPIKeyStore(pool *pgxpool.Pool) *APIKeyStore {
	return &APIKeyStore{pool: pool}
}

// GetByHash returns the key record for one hash.
func (s *APIKeyStore) GetByHash(ctx context.Context, keyHash string) (domain.APIKeyInfo, error) {
	var (
		rec    domain.APIKeyInfo
		scopes []string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT key_hash, name, scopes, created_at, expires_at, revoked
		 FROM api_keys WHERE key_hash = $1`, keyHash,
	).Scan(&rec.KeyHash, &rec.Name, &scopes, &rec.CreatedAt, &rec.ExpiresAt, &rec.Revoked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.APIKeyInfo{}, fmt.Errorf("postgres: api key: %w", domain.ErrNotFound)
		}
		return domain.APIKeyInfo{}, fmt.Errorf("postgres: get api key: %w", err)
	}
	rec.Scopes = toScopes(scopes)
	return rec, nil
}

// List returns every key record.
func (s *APIKeyStore) List(ctx context.Context) ([]domain.APIKeyInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key_hash, name, scopes, created_at, expires_at, revoked
		 FROM api_keys ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list api keys: %w", err)
	}
	defer rows.Close()

	var out []domain.APIKeyInfo
	for rows.Next() {
		var (
			rec    domain.APIKeyInfo
			scopes []string
		)
		if err := rows.Scan(&rec.KeyHash, &rec.Name, &scopes, &rec.CreatedAt, &rec.ExpiresAt, &rec.Revoked); err != nil {
			return nil, fmt.Errorf("postgres: scan api key: %w", err)
		}
		rec.Scopes = toScopes(scopes)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate api keys: %w", err)
	}
	return out, nil
}

// Upsert writes one key record.
func (s *APIKeyStore) Upsert(ctx context.Context, key domain.APIKeyInfo) error {
	scopes := make([]string, len(key.Scopes))
	for i, sc := range key.Scopes {
		scopes[i] = string(sc)
	}

	const query = `
		INSERT INTO api_keys (key_hash, name, scopes, created_at, expires_at, revoked)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key_hash) DO UPDATE
		SET name = EXCLUDED.name,
		    scopes = EXCLUDED.scopes,
		    expires_at = EXCLUDED.expires_at,
		    revoked = EXCLUDED.revoked`

	_, err := s.pool.Exec(ctx, query,
		key.KeyHash, key.Name, scopes, key.CreatedAt, key.ExpiresAt, key.Revoked)
	if err != nil {
		return fmt.Errorf("postgres: upsert api key: %w", err)
	}
	return nil
}

func toScopes(raw []string) []domain.Scope {
	out := make([]domain.Scope, len(raw))
	for i, s := range raw {
		out[i] = domain.Scope(s)
	}
	return out
}

var _ domain.APIKeyStore = (*APIKeyStore)(nil)
