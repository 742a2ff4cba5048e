package postgres

import (
	"context"
	"fmt"

	"campus-card-ledger/internal/core/domain"
	"campus-card-ledger/pkg/money"

	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository. The history log is strictly
// append-only: this type deliberately has no update or delete method.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Insert appends one history entry within a database transaction.
func (r *LedgerRepo) Insert(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (id, card_uid, delta, balance_before, balance_after, reference, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.CardUID, int64(e.Delta), int64(e.BalanceBefore), int64(e.BalanceAfter),
		e.Reference, e.Description, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// ListByCard returns a card's full history, oldest first, for replay.
func (r *LedgerRepo) ListByCard(ctx context.Context, uid string) ([]domain.LedgerEntry, error) {
	query := `SELECT id, card_uid, delta, balance_before, balance_after, reference, description, created_at
		FROM ledger_entries WHERE card_uid = $1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, uid)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var delta, before, after int64
		err := rows.Scan(&e.ID, &e.CardUID, &delta, &before, &after, &e.Reference, &e.Description, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Delta = money.Amount(delta)
		e.BalanceBefore = money.Amount(before)
		e.BalanceAfter = money.Amount(after)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}
