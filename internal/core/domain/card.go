package domain

import (
	"time"

	"github.com/google/uuid"

	"campus-card-ledger/pkg/money"
)

// CardStatus represents the administrative state of a card.
type CardStatus string

const (
	CardStatusActive   CardStatus = "ACTIVE"
	CardStatusInactive CardStatus = "INACTIVE"
	CardStatusBlocked  CardStatus = "BLOCKED"
)

// Card binds a physical NFC tag to a cardholder and carries its balance.
// UID is immutable once issued. Balance is mutated exclusively through the
// ledger's apply-delta operation and never goes negative.
type Card struct {
	UID          string       `json:"card_uid"`
	CardholderID uuid.UUID    `json:"cardholder_id"`
	Status       CardStatus   `json:"status"`
	Balance      money.Amount `json:"balance"`
	IssuedAt     time.Time    `json:"issued_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IsActive returns true if the card may transact.
func (c *Card) IsActive() bool {
	return c.Status == CardStatusActive
}
