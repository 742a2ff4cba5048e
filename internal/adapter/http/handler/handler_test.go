package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campus-card-ledger/internal/core/domain"
	"campus-card-ledger/internal/core/ports"
	"campus-card-ledger/internal/core/ports/mocks"
	"campus-card-ledger/pkg/apperror"
	"campus-card-ledger/pkg/money"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type routerTestDeps struct {
	router    *gin.Engine
	cards     *mocks.MockCardRegistry
	ledger    *mocks.MockLedgerStore
	processor *mocks.MockTransactionProcessor
	aggRepo   *mocks.MockAggregateRepository
	ctrl      *gomock.Controller
}

func setupRouter(t *testing.T) *routerTestDeps {
	ctrl := gomock.NewController(t)
	d := &routerTestDeps{
		cards:     mocks.NewMockCardRegistry(ctrl),
		ledger:    mocks.NewMockLedgerStore(ctrl),
		processor: mocks.NewMockTransactionProcessor(ctrl),
		aggRepo:   mocks.NewMockAggregateRepository(ctrl),
		ctrl:      ctrl,
	}
	d.router = SetupRouter(RouterDeps{
		Cards:     d.cards,
		Ledger:    d.ledger,
		Processor: d.processor,
		AggRepo:   d.aggRepo,
	})
	return d
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPurchaseEndpoint_Success(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	itemID := uuid.New()
	txnID := uuid.New()

	d.processor.EXPECT().Purchase(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.PurchaseRequest) (*ports.PurchaseReceipt, error) {
			assert.Equal(t, "04A1B2C3", req.CardUID)
			assert.Equal(t, "ORDER-001", req.ReferenceID)
			require.Len(t, req.Lines, 1)
			assert.Equal(t, itemID, req.Lines[0].ItemID)
			return &ports.PurchaseReceipt{
				Transaction: &domain.Transaction{
					ID:          txnID,
					CardUID:     "04A1B2C3",
					TotalAmount: 20000,
					Status:      domain.TransactionStatusCompleted,
					CreatedAt:   time.Now().UTC(),
					Lines: []domain.LineItem{
						{ItemID: itemID, Name: "Fried Rice", Quantity: 2, UnitPrice: 10000, LineTotal: 20000},
					},
				},
				NewBalance: 30000,
			}, nil
		})

	w := doJSON(d.router, http.MethodPost, "/api/v1/purchases", gin.H{
		"card_uid":     "04A1B2C3",
		"reference_id": "ORDER-001",
		"items":        []gin.H{{"item_id": itemID.String(), "quantity": 2}},
	})

	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Data struct {
			TransactionID string `json:"transaction_id"`
			TotalAmount   string `json:"total_amount"`
			NewBalance    string `json:"new_balance"`
		} `json:"data"`
		RequestID string `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, txnID.String(), resp.Data.TransactionID)
	assert.Equal(t, "200.00", resp.Data.TotalAmount)
	assert.Equal(t, "300.00", resp.Data.NewBalance)
	assert.NotEmpty(t, resp.RequestID)
}

func TestPurchaseEndpoint_ValidationRejects(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	tests := []struct {
		name string
		body gin.H
	}{
		{"missing card_uid", gin.H{"reference_id": "R", "items": []gin.H{{"item_id": uuid.NewString(), "quantity": 1}}}},
		{"missing reference_id", gin.H{"card_uid": "04A1", "items": []gin.H{{"item_id": uuid.NewString(), "quantity": 1}}}},
		{"empty cart", gin.H{"card_uid": "04A1", "reference_id": "R", "items": []gin.H{}}},
		{"zero quantity", gin.H{"card_uid": "04A1", "reference_id": "R", "items": []gin.H{{"item_id": uuid.NewString(), "quantity": 0}}}},
		{"bad item id", gin.H{"card_uid": "04A1", "reference_id": "R", "items": []gin.H{{"item_id": "not-a-uuid", "quantity": 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(d.router, http.MethodPost, "/api/v1/purchases", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestPurchaseEndpoint_InsufficientFundsMapsTo402(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	d.processor.EXPECT().Purchase(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrInsufficientFunds())

	w := doJSON(d.router, http.MethodPost, "/api/v1/purchases", gin.H{
		"card_uid":     "04A1B2C3",
		"reference_id": "ORDER-001",
		"items":        []gin.H{{"item_id": uuid.NewString(), "quantity": 1}},
	})

	require.Equal(t, http.StatusPaymentRequired, w.Code)
	var resp struct {
		ErrorCode string `json:"error_code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INSUFFICIENT_FUNDS", resp.ErrorCode)
}

func TestRechargeEndpoint_ParsesDecimalAmount(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	d.processor.EXPECT().Recharge(gomock.Any(), "04A1B2C3", money.Amount(2550)).
		Return(ports.BalanceChange{Before: 1000, After: 3550}, nil)

	w := doJSON(d.router, http.MethodPost, "/api/v1/recharges", gin.H{
		"card_uid": "04A1B2C3",
		"amount":   "25.50",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			BalanceBefore string `json:"balance_before"`
			BalanceAfter  string `json:"balance_after"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "10.00", resp.Data.BalanceBefore)
	assert.Equal(t, "35.50", resp.Data.BalanceAfter)
}

func TestRechargeEndpoint_BadAmount(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	w := doJSON(d.router, http.MethodPost, "/api/v1/recharges", gin.H{
		"card_uid": "04A1B2C3",
		"amount":   "twenty",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBalanceEndpoint(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	d.ledger.EXPECT().GetBalance(gomock.Any(), "04A1B2C3").
		Return(money.Amount(12345), domain.CardStatusActive, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cards/balance?card_uid=04A1B2C3", nil)
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			Balance string `json:"balance"`
			Status  string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "123.45", resp.Data.Balance)
	assert.Equal(t, "ACTIVE", resp.Data.Status)
}

func TestBalanceEndpoint_MissingQuery(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cards/balance", nil)
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIssueEndpoint(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	cardholderID := uuid.New()
	d.cards.EXPECT().Issue(gomock.Any(), cardholderID, money.Amount(5000)).
		Return(&domain.Card{
			UID:          "04NEWCARD",
			CardholderID: cardholderID,
			Status:       domain.CardStatusActive,
			Balance:      5000,
			IssuedAt:     time.Now().UTC(),
		}, nil)

	w := doJSON(d.router, http.MethodPost, "/api/v1/cards", gin.H{
		"cardholder_id":    cardholderID.String(),
		"starting_balance": "50.00",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Data struct {
			CardUID string `json:"card_uid"`
			Balance string `json:"balance"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "04NEWCARD", resp.Data.CardUID)
	assert.Equal(t, "50.00", resp.Data.Balance)
}

func TestSetStatusEndpoint_RejectsUnknownStatus(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	w := doJSON(d.router, http.MethodPatch, "/api/v1/cards/04A1B2C3/status", gin.H{
		"status": "FROZEN",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReconcileEndpoint_Mismatch(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	d.ledger.EXPECT().Reconcile(gomock.Any(), "04A1B2C3").
		Return(apperror.ErrReconcileMismatch("04A1B2C3"))

	w := doJSON(d.router, http.MethodPost, "/api/v1/cards/04A1B2C3/reconcile", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	var resp struct {
		ErrorCode string `json:"error_code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "RECONCILE_MISMATCH", resp.ErrorCode)
}

func TestDailyReportEndpoint(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	d.aggRepo.EXPECT().GetByDate(gomock.Any(), "2026-05-01").
		Return(&domain.DailyAggregate{Date: "2026-05-01", TransactionCount: 42, TotalRevenue: 1234500}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/daily?date=2026-05-01", nil)
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			Date             string `json:"date"`
			TransactionCount int64  `json:"transaction_count"`
			TotalRevenue     string `json:"total_revenue"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.Data.TransactionCount)
	assert.Equal(t, "12345.00", resp.Data.TotalRevenue)
}

func TestDailyReportEndpoint_NoRowsYieldsZeroes(t *testing.T) {
	d := setupRouter(t)
	defer d.ctrl.Finish()

	d.aggRepo.EXPECT().GetByDate(gomock.Any(), "2026-05-02").Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/daily?date=2026-05-02", nil)
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			TransactionCount int64  `json:"transaction_count"`
			TotalRevenue     string `json:"total_revenue"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(0), resp.Data.TransactionCount)
	assert.Equal(t, "0.00", resp.Data.TotalRevenue)
}

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(context.Context) error { return s.err }
func (s stubChecker) Name() string               { return s.name }

func TestHealthEndpoint_Degraded(t *testing.T) {
	router := SetupRouter(RouterDeps{
		HealthCheckers: []ports.HealthChecker{
			stubChecker{name: "postgresql"},
			stubChecker{name: "redis", err: errors.New("connection refused")},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}
