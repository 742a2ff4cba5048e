package ports

import (
	"context"
	"time"

	"campus-card-ledger/internal/core/domain"
	"campus-card-ledger/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BalanceChange reports a balance before and after one ledger mutation.
type BalanceChange struct {
	Before money.Amount `json:"balance_before"`
	After  money.Amount `json:"balance_after"`
}

// LedgerStore is the single mutator of card balances. ApplyDelta runs its
// own atomic unit; ApplyDeltaTx joins a caller-supplied transaction so
// purchase and issuance can widen the unit. Both fail with
// INSUFFICIENT_FUNDS, changing nothing, when before+delta < 0.
type LedgerStore interface {
	ApplyDelta(ctx context.Context, cardUID string, delta money.Amount, description string, reference *uuid.UUID) (BalanceChange, error)
	ApplyDeltaTx(ctx context.Context, tx pgx.Tx, cardUID string, delta money.Amount, description string, reference *uuid.UUID) (BalanceChange, error)
	GetBalance(ctx context.Context, cardUID string) (money.Amount, domain.CardStatus, error)
	// Reconcile replays the card's history against its stored balance.
	// Verification only, never on the hot path. A mismatch blocks the card.
	Reconcile(ctx context.Context, cardUID string) error
}

// CardRegistry maps physical cards to ledger entries and owns issuance.
type CardRegistry interface {
	ResolveByCardUID(ctx context.Context, uid string) (*domain.Card, error)
	ResolveByCardholder(ctx context.Context, cardholderID uuid.UUID) (*domain.Card, error)
	Issue(ctx context.Context, cardholderID uuid.UUID, startingBalance money.Amount) (*domain.Card, error)
	SetStatus(ctx context.Context, uid string, status domain.CardStatus) error
}

// PurchaseRequest holds validated input for the transaction processor.
// ReferenceID is the client-generated idempotency key, scoped per card.
type PurchaseRequest struct {
	CardUID     string
	ReferenceID string
	Lines       []domain.CartLine
}

// PurchaseReceipt is the committed outcome of a purchase.
type PurchaseReceipt struct {
	Transaction *domain.Transaction `json:"transaction"`
	NewBalance  money.Amount        `json:"new_balance"`
}

// TransactionProcessor turns a cart into one atomic debit and performs
// credit operations against active cards.
type TransactionProcessor interface {
	Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseReceipt, error)
	Recharge(ctx context.Context, cardUID string, amount money.Amount) (BalanceChange, error)
}

// IdempotencyCache is the redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached receipt JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// EventPublisher fans an event out to listening sessions. Best-effort:
// implementations never block and never fail a committed transaction.
type EventPublisher interface {
	Publish(evt domain.Event)
}

// TerminalSession drives one terminal's transaction state machine. Each UI
// connection owns an independent instance.
type TerminalSession interface {
	Arm(cart []domain.CartLine) error
	Cancel()
	Phase() domain.SessionPhase
	HandleReaderStatus(evt domain.ReaderStatusEvent)
	HandleCardPresent(evt domain.CardPresentEvent)
	HandleCardRemoved(evt domain.CardRemovedEvent)
}

// SessionFactory builds a fresh TerminalSession per connection.
type SessionFactory func() TerminalSession
