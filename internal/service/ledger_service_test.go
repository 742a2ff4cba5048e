package service

import (
	"context"
	"testing"

	"campus-card-ledger/internal/core/domain"
	"campus-card-ledger/internal/core/ports/mocks"
	"campus-card-ledger/pkg/apperror"
	"campus-card-ledger/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type ledgerTestDeps struct {
	svc        *LedgerServiceImpl
	cardRepo   *mocks.MockCardRepository
	ledgerRepo *mocks.MockLedgerRepository
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller
}

func setupLedgerService(t *testing.T) *ledgerTestDeps {
	ctrl := gomock.NewController(t)
	d := &ledgerTestDeps{
		cardRepo:   mocks.NewMockCardRepository(ctrl),
		ledgerRepo: mocks.NewMockLedgerRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewLedgerService(d.cardRepo, d.ledgerRepo, d.transactor, zerolog.Nop())
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func TestLedgerService_ApplyDelta_Debit(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	ref := uuid.New()

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.cardRepo.EXPECT().GetByUIDForUpdate(ctx, tx, "04A1B2C3").Return(&domain.Card{
		UID:     "04A1B2C3",
		Status:  domain.CardStatusActive,
		Balance: 50000,
	}, nil)
	d.cardRepo.EXPECT().UpdateBalance(ctx, tx, "04A1B2C3", money.Amount(18000)).Return(nil)
	d.ledgerRepo.EXPECT().Insert(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, entry *domain.LedgerEntry) error {
			assert.Equal(t, "04A1B2C3", entry.CardUID)
			assert.Equal(t, money.Amount(-32000), entry.Delta)
			assert.Equal(t, money.Amount(50000), entry.BalanceBefore)
			assert.Equal(t, money.Amount(18000), entry.BalanceAfter)
			assert.True(t, entry.Consistent())
			assert.Equal(t, "purchase", entry.Description)
			require.NotNil(t, entry.Reference)
			assert.Equal(t, ref, *entry.Reference)
			return nil
		})

	change, err := d.svc.ApplyDelta(ctx, "04A1B2C3", -32000, "purchase", &ref)
	require.NoError(t, err)
	assert.Equal(t, money.Amount(50000), change.Before)
	assert.Equal(t, money.Amount(18000), change.After)
}

func TestLedgerService_ApplyDelta_InsufficientFunds(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.cardRepo.EXPECT().GetByUIDForUpdate(ctx, tx, "04A1B2C3").Return(&domain.Card{
		UID:     "04A1B2C3",
		Status:  domain.CardStatusActive,
		Balance: 1000,
	}, nil)
	// No UpdateBalance, no Insert: the reject writes nothing.

	_, err := d.svc.ApplyDelta(ctx, "04A1B2C3", -5000, "purchase", nil)
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "INSUFFICIENT_FUNDS", appErr.Code)
}

func TestLedgerService_ApplyDelta_DebitToExactlyZero(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.cardRepo.EXPECT().GetByUIDForUpdate(ctx, tx, "04A1B2C3").Return(&domain.Card{
		UID:     "04A1B2C3",
		Balance: 5000,
	}, nil)
	d.cardRepo.EXPECT().UpdateBalance(ctx, tx, "04A1B2C3", money.Amount(0)).Return(nil)
	d.ledgerRepo.EXPECT().Insert(ctx, tx, gomock.Any()).Return(nil)

	change, err := d.svc.ApplyDelta(ctx, "04A1B2C3", -5000, "purchase", nil)
	require.NoError(t, err)
	assert.Equal(t, money.Amount(0), change.After)
}

func TestLedgerService_ApplyDelta_CardNotFound(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.cardRepo.EXPECT().GetByUIDForUpdate(ctx, tx, "UNKNOWN").Return(nil, nil)

	_, err := d.svc.ApplyDelta(ctx, "UNKNOWN", 1000, "recharge", nil)
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "CARD_NOT_FOUND", appErr.Code)
}

func TestLedgerService_GetBalance(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.cardRepo.EXPECT().GetByUID(ctx, "04A1B2C3").Return(&domain.Card{
		UID:     "04A1B2C3",
		Status:  domain.CardStatusActive,
		Balance: 12345,
	}, nil)

	balance, status, err := d.svc.GetBalance(ctx, "04A1B2C3")
	require.NoError(t, err)
	assert.Equal(t, money.Amount(12345), balance)
	assert.Equal(t, domain.CardStatusActive, status)
}

func TestLedgerService_Reconcile_Match(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.cardRepo.EXPECT().GetByUID(ctx, "04A1B2C3").Return(&domain.Card{
		UID:     "04A1B2C3",
		Balance: 17950,
	}, nil)
	d.ledgerRepo.EXPECT().ListByCard(ctx, "04A1B2C3").Return([]domain.LedgerEntry{
		{Delta: 5000, BalanceBefore: 0, BalanceAfter: 5000},
		{Delta: 25000, BalanceBefore: 5000, BalanceAfter: 30000},
		{Delta: -12050, BalanceBefore: 30000, BalanceAfter: 17950},
	}, nil)

	require.NoError(t, d.svc.Reconcile(ctx, "04A1B2C3"))
}

func TestLedgerService_Reconcile_MismatchBlocksCard(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.cardRepo.EXPECT().GetByUID(ctx, "04A1B2C3").Return(&domain.Card{
		UID:     "04A1B2C3",
		Balance: 20000,
	}, nil)
	d.ledgerRepo.EXPECT().ListByCard(ctx, "04A1B2C3").Return([]domain.LedgerEntry{
		{Delta: 5000, BalanceBefore: 0, BalanceAfter: 5000},
	}, nil)
	d.cardRepo.EXPECT().UpdateStatus(ctx, "04A1B2C3", domain.CardStatusBlocked).Return(nil)

	err := d.svc.Reconcile(ctx, "04A1B2C3")
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "RECONCILE_MISMATCH", appErr.Code)
}
