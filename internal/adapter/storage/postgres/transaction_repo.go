package postgres

import (
	"context"
	"errors"
	"fmt"

	"campus-card-ledger/internal/core/domain"
	"campus-card-ledger/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a transaction and its line items within a database
// transaction. Transactions are immutable once written.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, cardholder_id, card_uid, total_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.CardholderID, t.CardUID, int64(t.TotalAmount), t.Status, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	lineQuery := `INSERT INTO transaction_items (transaction_id, item_id, name, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, l := range t.Lines {
		_, err := tx.Exec(ctx, lineQuery,
			t.ID, l.ItemID, l.Name, l.Quantity, int64(l.UnitPrice), int64(l.LineTotal),
		)
		if err != nil {
			return fmt.Errorf("insert transaction item: %w", err)
		}
	}
	return nil
}

// GetByID fetches a transaction with its line items.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT id, cardholder_id, card_uid, total_amount, status, created_at
		FROM transactions WHERE id = $1`

	t := &domain.Transaction{}
	var total int64
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.CardholderID, &t.CardUID, &total, &t.Status, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	t.TotalAmount = money.Amount(total)

	lineQuery := `SELECT item_id, name, quantity, unit_price, line_total
		FROM transaction_items WHERE transaction_id = $1`
	rows, err := r.pool.Query(ctx, lineQuery, id)
	if err != nil {
		return nil, fmt.Errorf("list transaction items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.LineItem
		var unit, lineTotal int64
		if err := rows.Scan(&l.ItemID, &l.Name, &l.Quantity, &unit, &lineTotal); err != nil {
			return nil, fmt.Errorf("scan transaction item: %w", err)
		}
		l.UnitPrice = money.Amount(unit)
		l.LineTotal = money.Amount(lineTotal)
		t.Lines = append(t.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction items: %w", err)
	}
	return t, nil
}
