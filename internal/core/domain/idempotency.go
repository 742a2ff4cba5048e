package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyRecord caches a purchase outcome so a retried submission with
// the same reference returns the original transaction instead of debiting
// twice.
type IdempotencyRecord struct {
	Key           string    `json:"key"` // Format: "card_uid:reference_id"
	TransactionID uuid.UUID `json:"transaction_id"`
	ResponseJSON  []byte    `json:"response_json"` // Cached receipt to return
	CreatedAt     time.Time `json:"created_at"`
}

// BuildPurchaseKey constructs the idempotency key for a purchase submission.
// The reference id is client-generated and scoped per card.
func BuildPurchaseKey(cardUID, referenceID string) string {
	return cardUID + ":" + referenceID
}
