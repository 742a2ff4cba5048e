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
	"github.com/rs/zerolog"
)

// CardServiceImpl implements ports.CardRegistry.
type CardServiceImpl struct {
	cardRepo   ports.CardRepository
	ledger     ports.LedgerStore
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewCardService creates a new CardServiceImpl.
func NewCardService(
	cardRepo ports.CardRepository,
	ledger ports.LedgerStore,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *CardServiceImpl {
	return &CardServiceImpl{
		cardRepo:   cardRepo,
		ledger:     ledger,
		transactor: transactor,
		log:        log,
	}
}

// ResolveByCardUID looks up a card by its physical tag identifier.
func (s *CardServiceImpl) ResolveByCardUID(ctx context.Context, uid string) (*domain.Card, error) {
	card, err := s.cardRepo.GetByUID(ctx, uid)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get card: %w", err))
	}
	if card == nil {
		return nil, apperror.ErrCardNotFound()
	}
	return card, nil
}

// ResolveByCardholder finds the card currently bound to a cardholder.
func (s *CardServiceImpl) ResolveByCardholder(ctx context.Context, cardholderID uuid.UUID) (*domain.Card, error) {
	card, err := s.cardRepo.GetByCardholder(ctx, cardholderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get card by cardholder: %w", err))
	}
	if card == nil {
		return nil, apperror.ErrCardNotFound()
	}
	return card, nil
}

// Issue binds a fresh card UID to a cardholder. The card row and its
// issuance ledger entry commit in one atomic unit, so a card never exists
// without an explainable opening balance. One active card per cardholder.
func (s *CardServiceImpl) Issue(ctx context.Context, cardholderID uuid.UUID, startingBalance money.Amount) (*domain.Card, error) {
	if startingBalance < 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	existing, err := s.cardRepo.GetByCardholder(ctx, cardholderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check existing card: %w", err))
	}
	if existing != nil && existing.IsActive() {
		return nil, apperror.ErrAlreadyIssued()
	}

	now := time.Now().UTC()
	card := &domain.Card{
		UID:          newCardUID(),
		CardholderID: cardholderID,
		Status:       domain.CardStatusActive,
		Balance:      0,
		IssuedAt:     now,
		UpdatedAt:    now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.cardRepo.Create(ctx, dbTx, card); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create card: %w", err))
	}

	// Opening entry is written even for a zero balance so every card's
	// history starts with an issuance record.
	change, err := s.ledger.ApplyDeltaTx(ctx, dbTx, card.UID, startingBalance, "issuance", nil)
	if err != nil {
		return nil, err
	}
	card.Balance = change.After

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("card_uid", card.UID).
		Str("cardholder_id", cardholderID.String()).
		Int64("starting_balance", int64(startingBalance)).
		Msg("card issued")

	return card, nil
}

// SetStatus changes a card's administrative status.
func (s *CardServiceImpl) SetStatus(ctx context.Context, uid string, status domain.CardStatus) error {
	card, err := s.cardRepo.GetByUID(ctx, uid)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get card: %w", err))
	}
	if card == nil {
		return apperror.ErrCardNotFound()
	}

	if err := s.cardRepo.UpdateStatus(ctx, uid, status); err != nil {
		return apperror.InternalError(fmt.Errorf("update status: %w", err))
	}

	s.log.Info().
		Str("card_uid", uid).
		Str("status", string(status)).
		Msg("card status updated")
	return nil
}

// newCardUID mints a tag identifier for a freshly issued card. Real tags
// have a manufacturer UID; issuance outside a reader gets a synthetic one.
func newCardUID() string {
	raw := uuid.New()
	return fmt.Sprintf("%X", raw[:7])
}
