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

// CardRepo implements ports.CardRepository.
type CardRepo struct {
	pool Pool
}

// NewCardRepo creates a new CardRepo.
func NewCardRepo(pool Pool) *CardRepo {
	return &CardRepo{pool: pool}
}

const cardColumns = `card_uid, cardholder_id, status, balance, issued_at, updated_at`

// Create inserts a new card within a database transaction (issuance unit).
func (r *CardRepo) Create(ctx context.Context, tx pgx.Tx, c *domain.Card) error {
	query := `INSERT INTO cards (card_uid, cardholder_id, status, balance, issued_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query,
		c.UID, c.CardholderID, c.Status, int64(c.Balance), c.IssuedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

// GetByUID fetches a card by its tag identifier (non-locking read).
func (r *CardRepo) GetByUID(ctx context.Context, uid string) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE card_uid = $1`
	return scanCard(r.pool.QueryRow(ctx, query, uid))
}

// GetByCardholder fetches a cardholder's ACTIVE card if one exists.
func (r *CardRepo) GetByCardholder(ctx context.Context, cardholderID uuid.UUID) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE cardholder_id = $1 AND status = 'ACTIVE'`
	return scanCard(r.pool.QueryRow(ctx, query, cardholderID))
}

// GetByUIDForUpdate fetches a card with a row-level lock.
// This MUST be called within a transaction.
func (r *CardRepo) GetByUIDForUpdate(ctx context.Context, tx pgx.Tx, uid string) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE card_uid = $1 FOR UPDATE`
	return scanCard(tx.QueryRow(ctx, query, uid))
}

// UpdateBalance writes a card's balance within a transaction. Only the
// ledger's apply-delta path calls this, after taking the row lock.
func (r *CardRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, uid string, balance money.Amount) error {
	query := `UPDATE cards SET balance = $1, updated_at = NOW() WHERE card_uid = $2`

	tag, err := tx.Exec(ctx, query, int64(balance), uid)
	if err != nil {
		return fmt.Errorf("update card balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("card not found: %s", uid)
	}
	return nil
}

// UpdateStatus is the administrative status transition, outside the hot path.
func (r *CardRepo) UpdateStatus(ctx context.Context, uid string, status domain.CardStatus) error {
	query := `UPDATE cards SET status = $1, updated_at = NOW() WHERE card_uid = $2`

	tag, err := r.pool.Exec(ctx, query, status, uid)
	if err != nil {
		return fmt.Errorf("update card status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("card not found: %s", uid)
	}
	return nil
}

func scanCard(row pgx.Row) (*domain.Card, error) {
	c := &domain.Card{}
	var balance int64
	err := row.Scan(&c.UID, &c.CardholderID, &c.Status, &balance, &c.IssuedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan card: %w", err)
	}
	c.Balance = money.Amount(balance)
	return c, nil
}
