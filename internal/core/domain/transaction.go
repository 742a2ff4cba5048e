package domain

import (
	"time"

	"github.com/google/uuid"

	"campus-card-ledger/pkg/money"
)

// TransactionStatus is the lifecycle state of a purchase.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// CartLine is one cart position supplied by the caller. Not persisted
// directly; the processor turns it into a LineItem at committed prices.
type CartLine struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int32     `json:"quantity"`
}

// LineItem is one sold position with the unit price captured at sale time.
// Late catalog price changes never affect a committed transaction.
type LineItem struct {
	ItemID    uuid.UUID    `json:"item_id"`
	Name      string       `json:"name"`
	Quantity  int32        `json:"quantity"`
	UnitPrice money.Amount `json:"unit_price"`
	LineTotal money.Amount `json:"line_total"`
}

// Transaction is one completed (or attempted) purchase. Created only by the
// transaction processor inside its atomic unit and never mutated afterwards.
type Transaction struct {
	ID           uuid.UUID         `json:"id"`
	CardholderID uuid.UUID         `json:"cardholder_id"`
	CardUID      string            `json:"card_uid"`
	TotalAmount  money.Amount      `json:"total_amount"`
	Status       TransactionStatus `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	Lines        []LineItem        `json:"lines"`
}

// LinesTotal sums the line totals. Must equal TotalAmount.
func (t *Transaction) LinesTotal() money.Amount {
	var sum money.Amount
	for _, l := range t.Lines {
		sum += l.LineTotal
	}
	return sum
}

// DailyAggregate is one row per calendar date, incremented in the same
// atomic unit that commits each completed transaction.
type DailyAggregate struct {
	Date             string       `json:"date"` // YYYY-MM-DD, UTC
	TransactionCount int64        `json:"transaction_count"`
	TotalRevenue     money.Amount `json:"total_revenue"`
}

// AggregateDay returns the aggregate key for a transaction timestamp.
func AggregateDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
