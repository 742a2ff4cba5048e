package dto

import (
	"campus-card-ledger/internal/core/domain"
	"campus-card-ledger/internal/core/ports"
)

// CartLine is one position in a purchase request.
type CartLine struct {
	ItemID   string `json:"item_id" binding:"required,uuid"`
	Quantity int32  `json:"quantity" binding:"required,gt=0"`
}

// PurchaseRequest is the request body for POST /api/v1/purchases.
// Amounts never appear in the request; prices come from the catalog.
type PurchaseRequest struct {
	CardUID     string     `json:"card_uid" binding:"required,max=32"`
	ReferenceID string     `json:"reference_id" binding:"required,max=100"`
	Lines       []CartLine `json:"items" binding:"required,min=1,dive"`
}

// RechargeRequest is the request body for POST /api/v1/recharges.
// Amount is a decimal string ("25.00"); fractions beyond cents are rejected.
type RechargeRequest struct {
	CardUID string `json:"card_uid" binding:"required,max=32"`
	Amount  string `json:"amount" binding:"required"`
}

// IssueRequest is the request body for POST /api/v1/cards.
type IssueRequest struct {
	CardholderID    string `json:"cardholder_id" binding:"required,uuid"`
	StartingBalance string `json:"starting_balance,omitempty"`
}

// StatusRequest is the request body for PATCH /api/v1/cards/:uid/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required,oneof=ACTIVE INACTIVE BLOCKED"`
}

// LineItemResponse is one sold position with its captured price.
type LineItemResponse struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	Quantity  int32  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

// ReceiptResponse is the response body for a committed purchase.
type ReceiptResponse struct {
	TransactionID string             `json:"transaction_id"`
	CardUID       string             `json:"card_uid"`
	TotalAmount   string             `json:"total_amount"`
	NewBalance    string             `json:"new_balance"`
	Status        string             `json:"status"`
	CreatedAt     string             `json:"created_at"`
	Lines         []LineItemResponse `json:"lines"`
}

// BalanceChangeResponse reports a recharge outcome.
type BalanceChangeResponse struct {
	CardUID       string `json:"card_uid"`
	BalanceBefore string `json:"balance_before"`
	BalanceAfter  string `json:"balance_after"`
}

// BalanceResponse is the response body for GET /api/v1/cards/balance.
type BalanceResponse struct {
	CardUID string `json:"card_uid"`
	Balance string `json:"balance"`
	Status  string `json:"status"`
}

// CardResponse is the response body for card issuance and lookups.
type CardResponse struct {
	CardUID      string `json:"card_uid"`
	CardholderID string `json:"cardholder_id"`
	Status       string `json:"status"`
	Balance      string `json:"balance"`
	IssuedAt     string `json:"issued_at"`
}

// DailyReportResponse is one aggregate row.
type DailyReportResponse struct {
	Date             string `json:"date"`
	TransactionCount int64  `json:"transaction_count"`
	TotalRevenue     string `json:"total_revenue"`
}

// ToReceiptResponse converts a committed receipt for the wire.
func ToReceiptResponse(r *ports.PurchaseReceipt) ReceiptResponse {
	txn := r.Transaction
	lines := make([]LineItemResponse, 0, len(txn.Lines))
	for _, l := range txn.Lines {
		lines = append(lines, LineItemResponse{
			ItemID:    l.ItemID.String(),
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.String(),
			LineTotal: l.LineTotal.String(),
		})
	}
	return ReceiptResponse{
		TransactionID: txn.ID.String(),
		CardUID:       txn.CardUID,
		TotalAmount:   txn.TotalAmount.String(),
		NewBalance:    r.NewBalance.String(),
		Status:        string(txn.Status),
		CreatedAt:     txn.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Lines:         lines,
	}
}

// ToCardResponse converts a card for the wire.
func ToCardResponse(card *domain.Card) CardResponse {
	return CardResponse{
		CardUID:      card.UID,
		CardholderID: card.CardholderID.String(),
		Status:       string(card.Status),
		Balance:      card.Balance.String(),
		IssuedAt:     card.IssuedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// ToBalanceChangeResponse converts a balance change for the wire.
func ToBalanceChangeResponse(cardUID string, change ports.BalanceChange) BalanceChangeResponse {
	return BalanceChangeResponse{
		CardUID:       cardUID,
		BalanceBefore: change.Before.String(),
		BalanceAfter:  change.After.String(),
	}
}

// ToDailyReportResponse converts an aggregate row for the wire.
func ToDailyReportResponse(agg *domain.DailyAggregate) DailyReportResponse {
	return DailyReportResponse{
		Date:             agg.Date,
		TransactionCount: agg.TransactionCount,
		TotalRevenue:     agg.TotalRevenue.String(),
	}
}
