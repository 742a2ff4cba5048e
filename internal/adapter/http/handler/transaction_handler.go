package handler

import (
	"time"

	"campus-card-ledger/internal/adapter/http/dto"
	"campus-card-ledger/internal/core/domain"
	"campus-card-ledger/internal/core/ports"
	"campus-card-ledger/pkg/apperror"
	"campus-card-ledger/pkg/money"
	"campus-card-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransactionHandler handles purchase, recharge and reporting endpoints.
type TransactionHandler struct {
	processor ports.TransactionProcessor
	aggRepo   ports.AggregateRepository
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(processor ports.TransactionProcessor, aggRepo ports.AggregateRepository) *TransactionHandler {
	return &TransactionHandler{processor: processor, aggRepo: aggRepo}
}

// Purchase handles POST /api/v1/purchases.
func (h *TransactionHandler) Purchase(c *gin.Context) {
	var req dto.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	lines := make([]domain.CartLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		itemID, err := uuid.Parse(l.ItemID)
		if err != nil {
			response.Error(c, apperror.Validation("item_id must be a UUID"))
			return
		}
		lines = append(lines, domain.CartLine{ItemID: itemID, Quantity: l.Quantity})
	}

	receipt, err := h.processor.Purchase(c.Request.Context(), ports.PurchaseRequest{
		CardUID:     req.CardUID,
		ReferenceID: req.ReferenceID,
		Lines:       lines,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToReceiptResponse(receipt))
}

// Recharge handles POST /api/v1/recharges.
func (h *TransactionHandler) Recharge(c *gin.Context) {
	var req dto.RechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	change, err := h.processor.Recharge(c.Request.Context(), req.CardUID, amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToBalanceChangeResponse(req.CardUID, change))
}

// DailyReport handles GET /api/v1/reports/daily?date=YYYY-MM-DD.
// Defaults to the current UTC date.
func (h *TransactionHandler) DailyReport(c *gin.Context) {
	day := c.Query("date")
	if day == "" {
		day = domain.AggregateDay(time.Now())
	} else if _, err := time.Parse("2006-01-02", day); err != nil {
		response.Error(c, apperror.Validation("date must be YYYY-MM-DD"))
		return
	}

	agg, err := h.aggRepo.GetByDate(c.Request.Context(), day)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	if agg == nil {
		agg = &domain.DailyAggregate{Date: day}
	}
	response.OK(c, dto.ToDailyReportResponse(agg))
}
