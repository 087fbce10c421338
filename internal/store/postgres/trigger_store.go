package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// TriggerStore implements domain.TriggerStateStore using PostgreSQL.
type TriggerStore struct {
	pool *pgxpool.Pool
}

// NewTriggerStore creates a TriggerStore backed by the given connection pool.
func NewTriggerStore(pool *pgxpool.Pool) *TriggerStore {
	return &TriggerStore{pool: pool}
}

// Get returns the trigger state for one policy.
func (s *TriggerStore) Get(ctx context.Context, policyID int64) (domain.TriggerState, error) {
	var st domain.TriggerState
	err := s.pool.QueryRow(ctx,
		`SELECT policy_id, first_below, samples_below, last_check
		 FROM trigger_states WHERE policy_id = $1`, policyID,
	).Scan(&st.PolicyID, &st.FirstBelow, &st.SamplesBelow, &st.LastCheck)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TriggerState{}, fmt.Errorf("postgres: trigger state %d: %w", policyID, domain.ErrNotFound)
		}
		return domain.TriggerState{}, fmt.Errorf("postgres: get trigger state %d: %w", policyID, err)
	}
	return st, nil
}

// Upsert writes the trigger state for one policy.
func (s *TriggerStore) Upsert(ctx context.Context, st domain.TriggerState) error {
	const query = `
		INSERT INTO trigger_states (policy_id, first_below, samples_below, last_check)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (policy_id) DO UPDATE
		SET first_below = EXCLUDED.first_below,
		    samples_below = EXCLUDED.samples_below,
		    last_check = EXCLUDED.last_check`

	_, err := s.pool.Exec(ctx, query, st.PolicyID, st.FirstBelow, st.SamplesBelow, st.LastCheck)
	if err != nil {
		return fmt.Errorf("postgres: upsert trigger state %d: %w", st.PolicyID, err)
	}
	return nil
}

// Delete removes the trigger state for a settled or expired policy.
func (s *TriggerStore) Delete(ctx context.Context, policyID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM trigger_states WHERE policy_id = $1`, policyID)
	if err != nil {
		return fmt.Errorf("postgres: delete trigger state %d: %w", policyID, err)
	}
	return nil
}

var _ domain.TriggerStateStore = (*TriggerStore)(nil)
