package ports

import (
	"context"

	"campus-card-ledger/internal/core/domain"
	"campus-card-ledger/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CardRepository defines persistence operations for cards.
// Methods accepting pgx.Tx run inside transaction blocks; GetByUIDForUpdate
// takes a row-level lock so balance check and write are never interleaved.
type CardRepository interface {
	Create(ctx context.Context, tx pgx.Tx, card *domain.Card) error
	GetByUID(ctx context.Context, uid string) (*domain.Card, error)
	GetByCardholder(ctx context.Context, cardholderID uuid.UUID) (*domain.Card, error)
	GetByUIDForUpdate(ctx context.Context, tx pgx.Tx, uid string) (*domain.Card, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, uid string, balance money.Amount) error
	UpdateStatus(ctx context.Context, uid string, status domain.CardStatus) error
}

// LedgerRepository persists the append-only history log. There is no update
// or delete operation, ever.
type LedgerRepository interface {
	Insert(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	ListByCard(ctx context.Context, uid string) ([]domain.LedgerEntry, error)
}

// TransactionRepository persists completed purchases with their line items.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
}

// AggregateRepository maintains the per-date sales aggregate. Increment runs
// inside the same transaction that commits the purchase.
type AggregateRepository interface {
	Increment(ctx context.Context, tx pgx.Tx, day string, amount money.Amount) error
	GetByDate(ctx context.Context, day string) (*domain.DailyAggregate, error)
}

// CatalogRepository is the read-only catalog snapshot. The menu itself is
// owned by an external collaborator.
type CatalogRepository interface {
	GetItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.MenuItem, error)
}

// IdempotencyRepository defines persistence for purchase idempotency
// records (DB backup behind the redis fast path).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, rec *domain.IdempotencyRecord) error
	Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
