package postgres

import (
	"context"
	"errors"
	"fmt"

	"campus-card-ledger/internal/core/domain"
	"campus-card-ledger/pkg/money"

	"github.com/jackc/pgx/v5"
)

// AggregateRepo implements ports.AggregateRepository.
type AggregateRepo struct {
	pool Pool
}

// NewAggregateRepo creates a new AggregateRepo.
func NewAggregateRepo(pool Pool) *AggregateRepo {
	return &AggregateRepo{pool: pool}
}

// Increment bumps the day's row by one transaction and its amount, inside
// the purchase transaction. Incremental only: it never rewrites totals.
func (r *AggregateRepo) Increment(ctx context.Context, tx pgx.Tx, day string, amount money.Amount) error {
	query := `INSERT INTO daily_aggregates (day, transaction_count, total_revenue)
		VALUES ($1, 1, $2)
		ON CONFLICT (day) DO UPDATE SET
			transaction_count = daily_aggregates.transaction_count + 1,
			total_revenue = daily_aggregates.total_revenue + EXCLUDED.total_revenue`

	_, err := tx.Exec(ctx, query, day, int64(amount))
	if err != nil {
		return fmt.Errorf("increment daily aggregate: %w", err)
	}
	return nil
}

// GetByDate fetches one aggregate row; nil if no sales that day.
func (r *AggregateRepo) GetByDate(ctx context.Context, day string) (*domain.DailyAggregate, error) {
	query := `SELECT day::text, transaction_count, total_revenue FROM daily_aggregates WHERE day = $1`

	agg := &domain.DailyAggregate{}
	var revenue int64
	err := r.pool.QueryRow(ctx, query, day).Scan(&agg.Date, &agg.TransactionCount, &revenue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get daily aggregate: %w", err)
	}
	agg.TotalRevenue = money.Amount(revenue)
	return agg, nil
}
