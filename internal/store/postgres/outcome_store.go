package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mae-kelly/arbitrage/internal/domain"
)

// OutcomeStore implements domain.OutcomeStore using PostgreSQL. It is the
// durable ledger behind the cached per-strategy statistics.
type OutcomeStore struct {
	pool *pgxpool.Pool
}

// NewOutcomeStore creates a new OutcomeStore backed by the given pool.
func NewOutcomeStore(pool *pgxpool.Pool) *OutcomeStore {
	return &OutcomeStore{pool: pool}
}

var _ domain.OutcomeStore = (*OutcomeStore)(nil)

// Insert persists one realized trade outcome. Re-inserting an outcome with
// the same id is a no-op.
func (s *OutcomeStore) Insert(ctx context.Context, o domain.Outcome) error {
	const query = `
		INSERT INTO strategy_outcomes (
			id, kind, symbol, profit, capital_used, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		o.ID, string(o.Kind), o.Symbol, o.Profit, o.CapitalUsed, o.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert outcome %s: %w", o.ID, err)
	}
	return nil
}

// ListByKind returns the most recent outcomes for a strategy kind, newest
// first. A limit <= 0 returns all recorded outcomes for the kind.
func (s *OutcomeStore) ListByKind(ctx context.Context, kind domain.StrategyKind, limit int) ([]domain.Outcome, error) {
	query := `
		SELECT id, kind, symbol, profit, capital_used, recorded_at
		FROM strategy_outcomes
		WHERE kind = $1
		ORDER BY recorded_at DESC`
	args := []any{string(kind)}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list outcomes for %s: %w", kind, err)
	}
	defer rows.Close()

	outcomes, err := scanOutcomeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan outcomes for %s: %w", kind, err)
	}
	return outcomes, nil
}

func scanOutcomeRows(rows pgx.Rows) ([]domain.Outcome, error) {
	var outcomes []domain.Outcome
	for rows.Next() {
		var (
			o    domain.Outcome
			kind string
		)
		if err := rows.Scan(
			&o.ID, &kind, &o.Symbol, &o.Profit, &o.CapitalUsed, &o.RecordedAt,
		); err != nil {
			return nil, err
		}
		o.Kind = domain.StrategyKind(kind)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}
