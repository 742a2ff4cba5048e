package domain

import (
	"time"

	"github.com/google/uuid"

	"campus-card-ledger/pkg/money"
)

// LedgerEntry is the immutable audit record of one balance mutation.
// Entries are append-only: never updated, never deleted.
type LedgerEntry struct {
	ID            uuid.UUID    `json:"id"`
	CardUID       string       `json:"card_uid"`
	Delta         money.Amount `json:"delta"`
	BalanceBefore money.Amount `json:"balance_before"`
	BalanceAfter  money.Amount `json:"balance_after"`
	Reference     *uuid.UUID   `json:"reference,omitempty"`
	Description   string       `json:"description"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Consistent reports whether the entry's own arithmetic holds.
func (e *LedgerEntry) Consistent() bool {
	return e.BalanceAfter == e.BalanceBefore+e.Delta
}

// ReplayBalance folds a card's full history, oldest first, into the balance
// it should have. The first entry is the issuance entry, so the fold starts
// at zero. Used by reconciliation, never on the hot path.
func ReplayBalance(entries []LedgerEntry) money.Amount {
	var balance money.Amount
	for _, e := range entries {
		balance += e.Delta
	}
	return balance
}
