package postgres

import (
	"context"
	"testing"
	"time"

	"campus-card-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cardColumnNames() []string {
	return []string{"card_uid", "cardholder_id", "status", "balance", "issued_at", "updated_at"}
}

func newTestCard() *domain.Card {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Card{
		UID:          "04A1B2C3D4",
		CardholderID: uuid.New(),
		Status:       domain.CardStatusActive,
		Balance:      50000,
		IssuedAt:     now,
		UpdatedAt:    now,
	}
}

func cardRow(c *domain.Card) *pgxmock.Rows {
	return pgxmock.NewRows(cardColumnNames()).AddRow(
		c.UID, c.CardholderID, c.Status, int64(c.Balance), c.IssuedAt, c.UpdatedAt,
	)
}

func TestCardRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCardRepo(mock)
	card := newTestCard()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO cards").
		WithArgs(card.UID, card.CardholderID, card.Status, int64(card.Balance), card.IssuedAt, card.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, card)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepo_GetByUID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCardRepo(mock)
	card := newTestCard()

	mock.ExpectQuery("SELECT .+ FROM cards WHERE card_uid").
		WithArgs(card.UID).
		WillReturnRows(cardRow(card))

	result, err := repo.GetByUID(context.Background(), card.UID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, card.UID, result.UID)
	assert.Equal(t, card.Balance, result.Balance)
	assert.Equal(t, domain.CardStatusActive, result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepo_GetByUID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCardRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM cards WHERE card_uid").
		WithArgs("unknown").
		WillReturnRows(pgxmock.NewRows(cardColumnNames()))

	result, err := repo.GetByUID(context.Background(), "unknown")
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepo_GetByUIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCardRepo(mock)
	card := newTestCard()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM cards WHERE card_uid .+ FOR UPDATE").
		WithArgs(card.UID).
		WillReturnRows(cardRow(card))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByUIDForUpdate(context.Background(), tx, card.UID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, card.Balance, result.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepo_UpdateBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCardRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE cards SET balance").
		WithArgs(int64(18000), "04A1B2C3D4").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalance(context.Background(), tx, "04A1B2C3D4", 18000)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepo_UpdateBalance_Missing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCardRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE cards SET balance").
		WithArgs(int64(18000), "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalance(context.Background(), tx, "ghost", 18000)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepo_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCardRepo(mock)

	mock.ExpectExec("UPDATE cards SET status").
		WithArgs(domain.CardStatusBlocked, "04A1B2C3D4").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.UpdateStatus(context.Background(), "04A1B2C3D4", domain.CardStatusBlocked)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
