package handler

import (
	"campus-card-ledger/internal/adapter/http/dto"
	"campus-card-ledger/internal/core/domain"
	"campus-card-ledger/internal/core/ports"
	"campus-card-ledger/pkg/apperror"
	"campus-card-ledger/pkg/money"
	"campus-card-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CardHandler handles card registry and ledger inspection endpoints.
type CardHandler struct {
	cards  ports.CardRegistry
	ledger ports.LedgerStore
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(cards ports.CardRegistry, ledger ports.LedgerStore) *CardHandler {
	return &CardHandler{cards: cards, ledger: ledger}
}

// Issue handles POST /api/v1/cards.
func (h *CardHandler) Issue(c *gin.Context) {
	var req dto.IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	cardholderID, err := uuid.Parse(req.CardholderID)
	if err != nil {
		response.Error(c, apperror.Validation("cardholder_id must be a UUID"))
		return
	}

	var starting money.Amount
	if req.StartingBalance != "" {
		starting, err = money.Parse(req.StartingBalance)
		if err != nil {
			response.Error(c, apperror.ErrInvalidAmount())
			return
		}
	}

	card, err := h.cards.Issue(c.Request.Context(), cardholderID, starting)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToCardResponse(card))
}

// GetBalance handles GET /api/v1/cards/balance?card_uid=...
func (h *CardHandler) GetBalance(c *gin.Context) {
	uid := c.Query("card_uid")
	if uid == "" {
		response.Error(c, apperror.Validation("card_uid query parameter is required"))
		return
	}

	balance, status, err := h.ledger.GetBalance(c.Request.Context(), uid)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.BalanceResponse{
		CardUID: uid,
		Balance: balance.String(),
		Status:  string(status),
	})
}

// SetStatus handles PATCH /api/v1/cards/:uid/status.
func (h *CardHandler) SetStatus(c *gin.Context) {
	var req dto.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	uid := c.Param("uid")
	if err := h.cards.SetStatus(c.Request.Context(), uid, domain.CardStatus(req.Status)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"card_uid": uid, "status": req.Status})
}

// Reconcile handles POST /api/v1/cards/:uid/reconcile. Off the hot path;
// a mismatch blocks the card and surfaces RECONCILE_MISMATCH.
func (h *CardHandler) Reconcile(c *gin.Context) {
	uid := c.Param("uid")
	if err := h.ledger.Reconcile(c.Request.Context(), uid); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"card_uid": uid, "consistent": true})
}
