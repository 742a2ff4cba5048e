package domain

import (
	"github.com/google/uuid"

	"campus-card-ledger/pkg/money"
)

// MenuItem is a read-only snapshot of one sellable item at lookup time.
// The catalog itself is owned by an external collaborator; the processor
// only consumes id, price and availability.
type MenuItem struct {
	ID        uuid.UUID    `json:"id"`
	Name      string       `json:"name"`
	UnitPrice money.Amount `json:"unit_price"`
	Available bool         `json:"available"`
}
