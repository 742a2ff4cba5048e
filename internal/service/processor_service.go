package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"campus-card-ledger/internal/core/domain"
	"campus-card-ledger/internal/core/ports"
	"campus-card-ledger/pkg/apperror"
	"campus-card-ledger/pkg/money"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const idempotencyTTL = 24 * time.Hour

// ProcessorServiceImpl implements ports.TransactionProcessor.
type ProcessorServiceImpl struct {
	cards       ports.CardRegistry
	ledger      ports.LedgerStore
	catalogRepo ports.CatalogRepository
	txRepo      ports.TransactionRepository
	aggRepo     ports.AggregateRepository
	idempRepo   ports.IdempotencyRepository
	idempCache  ports.IdempotencyCache
	transactor  ports.DBTransactor
	events      ports.EventPublisher
	maxRecharge money.Amount
	log         zerolog.Logger
}

// NewProcessorService creates a new ProcessorServiceImpl.
func NewProcessorService(
	cards ports.CardRegistry,
	ledger ports.LedgerStore,
	catalogRepo ports.CatalogRepository,
	txRepo ports.TransactionRepository,
	aggRepo ports.AggregateRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	events ports.EventPublisher,
	maxRecharge money.Amount,
	log zerolog.Logger,
) *ProcessorServiceImpl {
	return &ProcessorServiceImpl{
		cards:       cards,
		ledger:      ledger,
		catalogRepo: catalogRepo,
		txRepo:      txRepo,
		aggRepo:     aggRepo,
		idempRepo:   idempRepo,
		idempCache:  idempCache,
		transactor:  transactor,
		events:      events,
		maxRecharge: maxRecharge,
		log:         log,
	}
}

// Purchase debits a card for a cart in one atomic unit: ledger delta,
// transaction record, daily aggregate and idempotency record commit together
// or not at all.
func (s *ProcessorServiceImpl) Purchase(ctx context.Context, req ports.PurchaseRequest) (*ports.PurchaseReceipt, error) {
	if req.CardUID == "" {
		return nil, apperror.Validation("card_uid is required")
	}
	if req.ReferenceID == "" {
		return nil, apperror.Validation("reference_id is required")
	}
	if len(req.Lines) == 0 {
		return nil, apperror.Validation("cart must not be empty")
	}
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, apperror.Validation("line quantity must be positive")
		}
	}

	idempKey := domain.BuildPurchaseKey(req.CardUID, req.ReferenceID)

	// Layer 1: Redis idempotency check
	cached, err := s.idempCache.Get(ctx, idempKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return unmarshalCachedReceipt(cached)
	}

	// Layer 2: DB idempotency check
	idempRec, err := s.idempRepo.Get(ctx, idempKey)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if idempRec != nil {
		return unmarshalCachedReceipt(idempRec.ResponseJSON)
	}

	card, err := s.cards.ResolveByCardUID(ctx, req.CardUID)
	if err != nil {
		return nil, err
	}
	if !card.IsActive() {
		return nil, apperror.ErrCardNotActive()
	}

	lines, total, err := s.resolveCart(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	// Begin database transaction
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:           uuid.New(),
		CardholderID: card.CardholderID,
		CardUID:      card.UID,
		TotalAmount:  total,
		Status:       domain.TransactionStatusCompleted,
		CreatedAt:    now,
		Lines:        lines,
	}

	// Debit: locks the card row, checks sufficiency, appends the entry
	change, err := s.ledger.ApplyDeltaTx(ctx, dbTx, card.UID, -total, "purchase", &txn.ID)
	if err != nil {
		return nil, err
	}

	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	if err := s.aggRepo.Increment(ctx, dbTx, domain.AggregateDay(now), total); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("increment daily aggregate: %w", err))
	}

	receipt := &ports.PurchaseReceipt{Transaction: txn, NewBalance: change.After}
	respJSON, err := json.Marshal(receipt)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal receipt: %w", err))
	}

	if err := s.idempRepo.Create(ctx, dbTx, &domain.IdempotencyRecord{
		Key:           idempKey,
		TransactionID: txn.ID,
		ResponseJSON:  respJSON,
		CreatedAt:     now,
	}); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save idempotency record: %w", err))
	}

	// Commit
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	// Post-process: cache in Redis (best-effort)
	if err := s.idempCache.Set(ctx, idempKey, respJSON, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache receipt in redis")
	}

	s.events.Publish(domain.TransactionCompleteEvent{
		CardholderID:  card.CardholderID,
		TransactionID: txn.ID,
		NewBalance:    change.After,
	})
	s.events.Publish(domain.BalanceUpdatedEvent{
		CardholderID: card.CardholderID,
		CardUID:      card.UID,
		NewBalance:   change.After,
		Delta:        -total,
	})

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("card_uid", card.UID).
		Int64("total", int64(total)).
		Int64("new_balance", int64(change.After)).
		Int("lines", len(lines)).
		Msg("purchase completed")

	return receipt, nil
}

// resolveCart looks up every cart line in the catalog, captures unit prices
// and computes the total in minor units.
func (s *ProcessorServiceImpl) resolveCart(ctx context.Context, cart []domain.CartLine) ([]domain.LineItem, money.Amount, error) {
	ids := make([]uuid.UUID, 0, len(cart))
	for _, line := range cart {
		ids = append(ids, line.ItemID)
	}

	items, err := s.catalogRepo.GetItems(ctx, ids)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("resolve catalog items: %w", err))
	}

	lines := make([]domain.LineItem, 0, len(cart))
	var total money.Amount
	for _, line := range cart {
		item, ok := items[line.ItemID]
		if !ok || !item.Available {
			return nil, 0, apperror.ErrItemUnavailable(line.ItemID.String())
		}
		lineTotal := item.UnitPrice * money.Amount(line.Quantity)
		lines = append(lines, domain.LineItem{
			ItemID:    item.ID,
			Name:      item.Name,
			Quantity:  line.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: lineTotal,
		})
		total += lineTotal
	}
	if total <= 0 {
		return nil, 0, apperror.ErrInvalidAmount()
	}
	return lines, total, nil
}

// Recharge credits a card. Credits cannot fail on sufficiency, only on
// validation and card state.
func (s *ProcessorServiceImpl) Recharge(ctx context.Context, cardUID string, amount money.Amount) (ports.BalanceChange, error) {
	if amount <= 0 || amount > s.maxRecharge {
		return ports.BalanceChange{}, apperror.ErrInvalidAmount()
	}

	card, err := s.cards.ResolveByCardUID(ctx, cardUID)
	if err != nil {
		return ports.BalanceChange{}, err
	}
	if !card.IsActive() {
		return ports.BalanceChange{}, apperror.ErrCardNotActive()
	}

	change, err := s.ledger.ApplyDelta(ctx, cardUID, amount, "recharge", nil)
	if err != nil {
		return ports.BalanceChange{}, err
	}

	s.events.Publish(domain.BalanceUpdatedEvent{
		CardholderID: card.CardholderID,
		CardUID:      cardUID,
		NewBalance:   change.After,
		Delta:        amount,
	})

	s.log.Info().
		Str("card_uid", cardUID).
		Int64("amount", int64(amount)).
		Int64("new_balance", int64(change.After)).
		Msg("recharge completed")

	return change, nil
}

func unmarshalCachedReceipt(data []byte) (*ports.PurchaseReceipt, error) {
	var receipt ports.PurchaseReceipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached receipt: %w", err))
	}
	return &receipt, nil
}
