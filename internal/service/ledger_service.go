package service

import (
	"context"
	"fmt"
	"time"

	"campus-card-ledger/internal/core/domain"
	"campus-card-ledger/internal/core/ports"
	"campus-card-ledger/pkg/apperror"
	"campus-card-ledger/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// LedgerServiceImpl implements ports.LedgerStore. It is the only code path
// that writes card balances; every mutation appends a matching ledger entry
// inside the same transaction.
type LedgerServiceImpl struct {
	cardRepo   ports.CardRepository
	ledgerRepo ports.LedgerRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	cardRepo ports.CardRepository,
	ledgerRepo ports.LedgerRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		cardRepo:   cardRepo,
		ledgerRepo: ledgerRepo,
		transactor: transactor,
		log:        log,
	}
}

// ApplyDelta runs one balance mutation as its own atomic unit.
func (s *LedgerServiceImpl) ApplyDelta(ctx context.Context, cardUID string, delta money.Amount, description string, reference *uuid.UUID) (ports.BalanceChange, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return ports.BalanceChange{}, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	change, err := s.ApplyDeltaTx(ctx, dbTx, cardUID, delta, description, reference)
	if err != nil {
		return ports.BalanceChange{}, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return ports.BalanceChange{}, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return change, nil
}

// ApplyDeltaTx applies a balance mutation inside a caller-owned transaction.
// The card row is locked first so check and write never interleave with a
// concurrent mutation. A debit past zero fails with INSUFFICIENT_FUNDS and
// writes nothing.
func (s *LedgerServiceImpl) ApplyDeltaTx(ctx context.Context, tx pgx.Tx, cardUID string, delta money.Amount, description string, reference *uuid.UUID) (ports.BalanceChange, error) {
	card, err := s.cardRepo.GetByUIDForUpdate(ctx, tx, cardUID)
	if err != nil {
		return ports.BalanceChange{}, apperror.InternalError(fmt.Errorf("lock card: %w", err))
	}
	if card == nil {
		return ports.BalanceChange{}, apperror.ErrCardNotFound()
	}

	before := card.Balance
	after := before + delta
	if after < 0 {
		return ports.BalanceChange{}, apperror.ErrInsufficientFunds()
	}

	if err := s.cardRepo.UpdateBalance(ctx, tx, cardUID, after); err != nil {
		return ports.BalanceChange{}, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		CardUID:       cardUID,
		Delta:         delta,
		BalanceBefore: before,
		BalanceAfter:  after,
		Reference:     reference,
		Description:   description,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.ledgerRepo.Insert(ctx, tx, entry); err != nil {
		return ports.BalanceChange{}, apperror.InternalError(fmt.Errorf("insert ledger entry: %w", err))
	}

	s.log.Info().
		Str("card_uid", cardUID).
		Str("entry_id", entry.ID.String()).
		Int64("delta", int64(delta)).
		Int64("balance_after", int64(after)).
		Str("description", description).
		Msg("ledger entry appended")

	return ports.BalanceChange{Before: before, After: after}, nil
}

// GetBalance reads the current balance and status of a card.
func (s *LedgerServiceImpl) GetBalance(ctx context.Context, cardUID string) (money.Amount, domain.CardStatus, error) {
	card, err := s.cardRepo.GetByUID(ctx, cardUID)
	if err != nil {
		return 0, "", apperror.InternalError(fmt.Errorf("get card: %w", err))
	}
	if card == nil {
		return 0, "", apperror.ErrCardNotFound()
	}
	return card.Balance, card.Status, nil
}

// Reconcile replays the card's full history and compares the result with the
// stored balance. A mismatch means the append-discipline was broken somewhere;
// the card is blocked until an operator investigates.
func (s *LedgerServiceImpl) Reconcile(ctx context.Context, cardUID string) error {
	card, err := s.cardRepo.GetByUID(ctx, cardUID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get card: %w", err))
	}
	if card == nil {
		return apperror.ErrCardNotFound()
	}

	entries, err := s.ledgerRepo.ListByCard(ctx, cardUID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("list ledger entries: %w", err))
	}

	replayed := domain.ReplayBalance(entries)
	if replayed != card.Balance {
		s.log.Error().
			Str("card_uid", cardUID).
			Int64("stored_balance", int64(card.Balance)).
			Int64("replayed_balance", int64(replayed)).
			Int("entries", len(entries)).
			Msg("ledger reconciliation mismatch, blocking card")

		if err := s.cardRepo.UpdateStatus(ctx, cardUID, domain.CardStatusBlocked); err != nil {
			s.log.Error().Err(err).Str("card_uid", cardUID).Msg("failed to block card after mismatch")
		}
		return apperror.ErrReconcileMismatch(cardUID)
	}

	s.log.Debug().
		Str("card_uid", cardUID).
		Int("entries", len(entries)).
		Msg("ledger reconciliation passed")
	return nil
}
