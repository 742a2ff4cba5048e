package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"campus-card-ledger/internal/core/domain"
	"campus-card-ledger/internal/core/ports"
	"campus-card-ledger/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// memTx mimics a database transaction over the in-memory store: writes are
// applied immediately but recorded in an undo log, so Rollback restores the
// prior state. Row locks taken during the transaction are held until Commit
// or Rollback, which is what serializes concurrent per-card mutations.
type memTx struct {
	pgx.Tx
	mu    sync.Mutex
	undo  []func()
	locks []*sync.Mutex
	done  bool
}

func (t *memTx) addUndo(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.undo = append(t.undo, fn)
}

func (t *memTx) addLock(l *sync.Mutex) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.locks = append(t.locks, l)
}

func (t *memTx) finish(rollback bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	if rollback {
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
	}
	for _, l := range t.locks {
		l.Unlock()
	}
}

func (t *memTx) Commit(context.Context) error {
	t.finish(false)
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	t.finish(true)
	return nil
}

// memStore is the shared backing state for all in-memory repositories.
type memStore struct {
	mu        sync.Mutex
	cards     map[string]*domain.Card
	cardLocks map[string]*sync.Mutex
	entries   []domain.LedgerEntry
	txns      map[uuid.UUID]*domain.Transaction
	aggs      map[string]*domain.DailyAggregate
	idems     map[string]*domain.IdempotencyRecord
	items     map[uuid.UUID]domain.MenuItem
}

func newMemStore() *memStore {
	return &memStore{
		cards:     make(map[string]*domain.Card),
		cardLocks: make(map[string]*sync.Mutex),
		txns:      make(map[uuid.UUID]*domain.Transaction),
		aggs:      make(map[string]*domain.DailyAggregate),
		idems:     make(map[string]*domain.IdempotencyRecord),
		items:     make(map[uuid.UUID]domain.MenuItem),
	}
}

func newMenuItem(id uuid.UUID, name, price string, available bool) domain.MenuItem {
	amount, err := money.Parse(price)
	if err != nil {
		panic(err)
	}
	return domain.MenuItem{ID: id, Name: name, UnitPrice: amount, Available: available}
}

func (s *memStore) entriesOf(uid string) []domain.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.LedgerEntry
	for _, e := range s.entries {
		if e.CardUID == uid {
			out = append(out, e)
		}
	}
	return out
}

func (s *memStore) lockFor(uid string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.cardLocks[uid]
	if !ok {
		l = &sync.Mutex{}
		s.cardLocks[uid] = l
	}
	return l
}

// --- Transactor ---

type memTransactor struct{}

func (memTransactor) Begin(context.Context) (pgx.Tx, error) {
	return &memTx{}, nil
}

// --- Card repo ---

type memCardRepo struct{ s *memStore }

func (r *memCardRepo) Create(_ context.Context, tx pgx.Tx, card *domain.Card) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.cards[card.UID]; ok {
		return fmt.Errorf("duplicate card uid %s", card.UID)
	}
	cp := *card
	r.s.cards[card.UID] = &cp
	if mt, ok := tx.(*memTx); ok {
		uid := card.UID
		mt.addUndo(func() {
			r.s.mu.Lock()
			defer r.s.mu.Unlock()
			delete(r.s.cards, uid)
		})
	}
	return nil
}

func (r *memCardRepo) GetByUID(_ context.Context, uid string) (*domain.Card, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	card, ok := r.s.cards[uid]
	if !ok {
		return nil, nil
	}
	cp := *card
	return &cp, nil
}

func (r *memCardRepo) GetByCardholder(_ context.Context, cardholderID uuid.UUID) (*domain.Card, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, card := range r.s.cards {
		if card.CardholderID == cardholderID && card.Status == domain.CardStatusActive {
			cp := *card
			return &cp, nil
		}
	}
	return nil, nil
}

// GetByUIDForUpdate blocks until the card's row lock is free, like
// SELECT ... FOR UPDATE. The lock is released when the transaction ends.
func (r *memCardRepo) GetByUIDForUpdate(ctx context.Context, tx pgx.Tx, uid string) (*domain.Card, error) {
	lock := r.s.lockFor(uid)
	lock.Lock()
	if mt, ok := tx.(*memTx); ok {
		mt.addLock(lock)
	}
	return r.GetByUID(ctx, uid)
}

func (r *memCardRepo) UpdateBalance(_ context.Context, tx pgx.Tx, uid string, balance money.Amount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	card, ok := r.s.cards[uid]
	if !ok {
		return fmt.Errorf("card %s not found", uid)
	}
	prev := card.Balance
	card.Balance = balance
	card.UpdatedAt = time.Now().UTC()
	if mt, ok := tx.(*memTx); ok {
		mt.addUndo(func() {
			r.s.mu.Lock()
			defer r.s.mu.Unlock()
			if c, ok := r.s.cards[uid]; ok {
				c.Balance = prev
			}
		})
	}
	return nil
}

func (r *memCardRepo) UpdateStatus(_ context.Context, uid string, status domain.CardStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	card, ok := r.s.cards[uid]
	if !ok {
		return fmt.Errorf("card %s not found", uid)
	}
	card.Status = status
	return nil
}

// --- Ledger repo ---

type memLedgerRepo struct{ s *memStore }

func (r *memLedgerRepo) Insert(_ context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.entries = append(r.s.entries, *entry)
	if mt, ok := tx.(*memTx); ok {
		id := entry.ID
		mt.addUndo(func() {
			r.s.mu.Lock()
			defer r.s.mu.Unlock()
			for i, e := range r.s.entries {
				if e.ID == id {
					r.s.entries = append(r.s.entries[:i], r.s.entries[i+1:]...)
					return
				}
			}
		})
	}
	return nil
}

func (r *memLedgerRepo) ListByCard(_ context.Context, uid string) ([]domain.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.LedgerEntry
	for _, e := range r.s.entries {
		if e.CardUID == uid {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- Transaction repo ---

type memTransactionRepo struct {
	s *memStore
	// failCreate makes the next Create return an error, for fault injection.
	failCreate func() error
}

func (r *memTransactionRepo) Create(_ context.Context, tx pgx.Tx, txn *domain.Transaction) error {
	if r.failCreate != nil {
		if err := r.failCreate(); err != nil {
			return err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *txn
	r.s.txns[txn.ID] = &cp
	if mt, ok := tx.(*memTx); ok {
		id := txn.ID
		mt.addUndo(func() {
			r.s.mu.Lock()
			defer r.s.mu.Unlock()
			delete(r.s.txns, id)
		})
	}
	return nil
}

func (r *memTransactionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	txn, ok := r.s.txns[id]
	if !ok {
		return nil, nil
	}
	cp := *txn
	return &cp, nil
}

// --- Aggregate repo ---

type memAggregateRepo struct{ s *memStore }

func (r *memAggregateRepo) Increment(_ context.Context, tx pgx.Tx, day string, amount money.Amount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	agg, ok := r.s.aggs[day]
	if !ok {
		agg = &domain.DailyAggregate{Date: day}
		r.s.aggs[day] = agg
	}
	agg.TransactionCount++
	agg.TotalRevenue += amount
	if mt, ok := tx.(*memTx); ok {
		mt.addUndo(func() {
			r.s.mu.Lock()
			defer r.s.mu.Unlock()
			if a, ok := r.s.aggs[day]; ok {
				a.TransactionCount--
				a.TotalRevenue -= amount
			}
		})
	}
	return nil
}

func (r *memAggregateRepo) GetByDate(_ context.Context, day string) (*domain.DailyAggregate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	agg, ok := r.s.aggs[day]
	if !ok {
		return nil, nil
	}
	cp := *agg
	return &cp, nil
}

// --- Catalog repo ---

type memCatalogRepo struct{ s *memStore }

func (r *memCatalogRepo) GetItems(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.MenuItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[uuid.UUID]domain.MenuItem, len(ids))
	for _, id := range ids {
		if item, ok := r.s.items[id]; ok {
			out[id] = item
		}
	}
	return out, nil
}

// --- Idempotency repo ---

type memIdempotencyRepo struct{ s *memStore }

func (r *memIdempotencyRepo) Create(_ context.Context, tx pgx.Tx, rec *domain.IdempotencyRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.idems[rec.Key]; ok {
		// Mirrors the primary-key violation a real database raises.
		return fmt.Errorf("idempotency key %s already exists", rec.Key)
	}
	cp := *rec
	r.s.idems[rec.Key] = &cp
	if mt, ok := tx.(*memTx); ok {
		key := rec.Key
		mt.addUndo(func() {
			r.s.mu.Lock()
			defer r.s.mu.Unlock()
			delete(r.s.idems, key)
		})
	}
	return nil
}

func (r *memIdempotencyRepo) Get(_ context.Context, key string) (*domain.IdempotencyRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.idems[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// --- Idempotency cache (redis stand-in) ---

type memIdempotencyCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemIdempotencyCache() *memIdempotencyCache {
	return &memIdempotencyCache{data: make(map[string][]byte)}
}

func (c *memIdempotencyCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *memIdempotencyCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

// --- Event recorder ---

type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) Publish(evt domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *eventRecorder) kinds() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.Kind())
	}
	return out
}

var _ ports.EventPublisher = (*eventRecorder)(nil)
