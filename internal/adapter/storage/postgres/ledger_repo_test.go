package postgres

import (
	"context"
	"testing"
	"time"

	"campus-card-ledger/internal/core/domain"
	"campus-card-ledger/pkg/money"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgerColumns() []string {
	return []string{"id", "card_uid", "delta", "balance_before", "balance_after", "reference", "description", "created_at"}
}

func TestLedgerRepo_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	ref := uuid.New()
	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		CardUID:       "04A1B2C3D4",
		Delta:         -32000,
		BalanceBefore: 50000,
		BalanceAfter:  18000,
		Reference:     &ref,
		Description:   "purchase",
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(entry.ID, entry.CardUID, int64(entry.Delta), int64(entry.BalanceBefore),
			int64(entry.BalanceAfter), entry.Reference, entry.Description, entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Insert(context.Background(), tx, entry)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_ListByCard(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)

	rows := pgxmock.NewRows(ledgerColumns()).
		AddRow(uuid.New(), "04A1", int64(5000), int64(0), int64(5000), (*uuid.UUID)(nil), "issuance", now).
		AddRow(uuid.New(), "04A1", int64(-2000), int64(5000), int64(3000), (*uuid.UUID)(nil), "purchase", now.Add(time.Minute))

	mock.ExpectQuery("SELECT .+ FROM ledger_entries WHERE card_uid .+ ORDER BY created_at").
		WithArgs("04A1").
		WillReturnRows(rows)

	entries, err := repo.ListByCard(context.Background(), "04A1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, money.Amount(5000), entries[0].Delta)
	assert.Equal(t, money.Amount(3000), entries[1].BalanceAfter)
	assert.Equal(t, money.Amount(3000), domain.ReplayBalance(entries))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_ListByCard_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM ledger_entries").
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows(ledgerColumns()))

	entries, err := repo.ListByCard(context.Background(), "ghost")
	assert.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}
