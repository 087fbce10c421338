package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// PolicyStore implements domain.PolicyStore using PostgreSQL.
type PolicyStore struct {
	pool *pgxpool.Pool
}

// NewPolicyStore creates a PolicyStore backed by the given connection pool.
func NewPolicyStore(pool *pgxpool.Pool) *PolicyStore {
	return &PolicyStore{pool: pool}
}

const policyColumns = `
	id, holder, beneficiary, coverage_type, chain, stablecoin,
	coverage_cents, premium_cents, trigger_price, floor_price,
	start_time, expiry_time, status, payout_cents, payout_time`

// Create inserts a new policy.
func (s *PolicyStore) Create(ctx context.Context, p domain.Policy) error {
	const query = `
		INSERT INTO policies (
			id, holder, beneficiary, coverage_type, chain, stablecoin,
			coverage_cents, premium_cents, trigger_price, floor_price,
			start_time, expiry_time, status, payout_cents, payout_time
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14, $15
		)`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.Holder, p.Beneficiary,
		string(p.Product.Coverage), string(p.Product.Chain), string(p.Product.Stablecoin),
		p.CoverageCents, p.PremiumCents, p.TriggerPrice, p.FloorPrice,
		p.StartTime, p.ExpiryTime, string(p.Status), p.PayoutCents, p.PayoutTime,
	)
	if err != nil {
		return fmt.Errorf("postgres: create policy %d: %w", p.ID, err)
	}
	return nil
}

// Get returns one policy by id.
func (s *PolicyStore) Get(ctx context.Context, id int64) (domain.Policy, error) {
	row := s.pool.QueryRow(ctx, `SELECT`+policyColumns+` FROM policies WHERE id = $1`, id)
	p, err := scanPolicy(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Policy{}, fmt.Errorf("postgres: policy %d: %w", id, domain.ErrNotFound)
		}
		return domain.Policy{}, fmt.Errorf("postgres: get policy %d: %w", id, err)
	}
	return p, nil
}

// ListActive returns every active policy, oldest first.
func (s *PolicyStore) ListActive(ctx context.Context) ([]domain.Policy, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT`+policyColumns+` FROM policies WHERE status = 'active' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active policies: %w", err)
	}
	defer rows.Close()

	var out []domain.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan policy: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate policies: %w", err)
	}
	return out, nil
}

// Update rewrites the mutable fields of a policy.
func (s *PolicyStore) Update(ctx context.Context, p domain.Policy) error {
	const query = `
		UPDATE policies
		SET status = $2, payout_cents = $3, payout_time = $4, updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, p.ID, string(p.Status), p.PayoutCents, p.PayoutTime)
	if err != nil {
		return fmt.Errorf("postgres: update policy %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: policy %d: %w", p.ID, domain.ErrNotFound)
	}
	return nil
}

func scanPolicy(row pgx.Row) (domain.Policy, error) {
	var (
		p                           domain.Policy
		coverage, chain, stablecoin string
		status                      string
	)
	err := row.Scan(
		&p.ID, &p.Holder, &p.Beneficiary, &coverage, &chain, &stablecoin,
		&p.CoverageCents, &p.PremiumCents, &p.TriggerPrice, &p.FloorPrice,
		&p.StartTime, &p.ExpiryTime, &status, &p.PayoutCents, &p.PayoutTime,
	)
	if err != nil {
		return domain.Policy{}, err
	}
	p.Product = domain.ProductKey{
		Coverage:   domain.CoverageKind(coverage),
		Chain:      domain.Chain(chain),
		Stablecoin: domain.Stablecoin(stablecoin),
	}
	p.Status = domain.PolicyStatus(status)
	return p, nil
}

var _ domain.PolicyStore = (*PolicyStore)(nil)
