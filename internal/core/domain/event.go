package domain

import (
	"time"

	"github.com/google/uuid"

	"campus-card-ledger/pkg/money"
)

// EventType tags the closed set of channel message variants. Payloads are
// typed structs validated at the adapter boundary, never loose JSON.
type EventType string

const (
	EventReaderStatus        EventType = "reader-status"
	EventCardPresent         EventType = "card-present"
	EventCardRemoved         EventType = "card-removed"
	EventTransactionComplete EventType = "transaction-complete"
	EventBalanceUpdated      EventType = "balance-updated"
	EventSessionStatus       EventType = "session-status"
)

// Event is the sealed union of channel messages.
type Event interface {
	Kind() EventType
}

// ReaderState is the connectivity status of the NFC reader.
type ReaderState string

const (
	ReaderConnected    ReaderState = "connected"
	ReaderDisconnected ReaderState = "disconnected"
	ReaderError        ReaderState = "error"
)

// ReaderStatusEvent reports reader connectivity changes.
type ReaderStatusEvent struct {
	Status     ReaderState `json:"status"`
	ReaderName string      `json:"reader_name,omitempty"`
	Error      string      `json:"error,omitempty"`
	At         time.Time   `json:"timestamp"`
}

func (ReaderStatusEvent) Kind() EventType { return EventReaderStatus }

// CardPresentEvent signals a card tap with its tag identifier.
type CardPresentEvent struct {
	CardUID string    `json:"card_uid"`
	At      time.Time `json:"timestamp"`
}

func (CardPresentEvent) Kind() EventType { return EventCardPresent }

// CardRemovedEvent signals the card leaving the field. It never aborts an
// in-flight ledger unit.
type CardRemovedEvent struct {
	CardUID string    `json:"card_uid"`
	At      time.Time `json:"timestamp"`
}

func (CardRemovedEvent) Kind() EventType { return EventCardRemoved }

// TransactionCompleteEvent is the best-effort completion notification
// published after a purchase commits.
type TransactionCompleteEvent struct {
	CardholderID  uuid.UUID    `json:"cardholder_id"`
	TransactionID uuid.UUID    `json:"transaction_id"`
	NewBalance    money.Amount `json:"new_balance"`
}

func (TransactionCompleteEvent) Kind() EventType { return EventTransactionComplete }

// BalanceUpdatedEvent is published after any credit or debit commits.
type BalanceUpdatedEvent struct {
	CardholderID uuid.UUID    `json:"cardholder_id"`
	CardUID      string       `json:"card_uid"`
	NewBalance   money.Amount `json:"new_balance"`
	Delta        money.Amount `json:"amount_delta"`
}

func (BalanceUpdatedEvent) Kind() EventType { return EventBalanceUpdated }

// SessionStatusEvent reports a terminal session phase change, published on
// every transition so UI clients can mirror the state machine.
type SessionStatusEvent struct {
	Phase     SessionPhase `json:"phase"`
	CardUID   string       `json:"card_uid,omitempty"`
	ErrorCode string       `json:"error_code,omitempty"`
	At        time.Time    `json:"timestamp"`
}

func (SessionStatusEvent) Kind() EventType { return EventSessionStatus }
