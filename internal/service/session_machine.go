package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"campus-card-ledger/internal/core/domain"
	"campus-card-ledger/internal/core/ports"
	"campus-card-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionConfig tunes one terminal session.
type SessionConfig struct {
	// ResetDelay holds success/failed on screen before re-arming.
	ResetDelay time.Duration
	// ProcessingTimeout bounds one processor invocation.
	ProcessingTimeout time.Duration
}

// SessionMachine drives one terminal's transaction state machine:
// idle, waiting, detected, processing, success, failed. Each UI session
// owns its own instance; sessions share nothing but the ledger beneath.
//
// Cancellation and reset are generation-guarded: bumping the generation
// invalidates every in-flight processor result and pending timer, so a
// late outcome is dropped instead of resurrecting a cancelled session.
// The ledger unit itself always runs to completion either way.
type SessionMachine struct {
	processor ports.TransactionProcessor
	events    ports.EventPublisher
	cfg       SessionConfig
	log       zerolog.Logger

	mu              sync.Mutex
	phase           domain.SessionPhase
	cart            []domain.CartLine
	readerConnected bool
	gen             uint64
	resetTimer      *time.Timer
}

// NewSessionMachine creates a session in the idle phase.
func NewSessionMachine(
	processor ports.TransactionProcessor,
	events ports.EventPublisher,
	cfg SessionConfig,
	log zerolog.Logger,
) *SessionMachine {
	return &SessionMachine{
		processor: processor,
		events:    events,
		cfg:       cfg,
		phase:     domain.PhaseIdle,
		log:       log,
	}
}

// Phase returns the current phase.
func (m *SessionMachine) Phase() domain.SessionPhase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// HandleReaderStatus tracks reader connectivity. A disconnect does not
// abort anything in flight; it only prevents future arming.
func (m *SessionMachine) HandleReaderStatus(evt domain.ReaderStatusEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readerConnected = evt.Status == domain.ReaderConnected
	m.log.Debug().
		Str("reader_status", string(evt.Status)).
		Str("reader_name", evt.ReaderName).
		Msg("reader status changed")
}

// Arm moves idle to waiting. Requires a connected reader and a non-empty
// cart; re-arming while already waiting replaces the cart.
func (m *SessionMachine) Arm(cart []domain.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != domain.PhaseIdle && m.phase != domain.PhaseWaiting {
		return apperror.Validation("session busy, cancel before re-arming")
	}
	if !m.readerConnected {
		return apperror.Validation("reader is not connected")
	}
	if len(cart) == 0 {
		return apperror.Validation("cart must not be empty")
	}

	m.cart = cart
	m.transitionLocked(domain.PhaseWaiting, "", "")
	return nil
}

// HandleCardPresent reacts to a card tap. Outside waiting the event is
// ignored: at most one attempt is in flight per session.
func (m *SessionMachine) HandleCardPresent(evt domain.CardPresentEvent) {
	m.mu.Lock()
	if m.phase != domain.PhaseWaiting {
		m.log.Debug().
			Str("card_uid", evt.CardUID).
			Str("phase", string(m.phase)).
			Msg("card-present ignored outside waiting")
		m.mu.Unlock()
		return
	}

	m.transitionLocked(domain.PhaseDetected, evt.CardUID, "")
	m.transitionLocked(domain.PhaseProcessing, evt.CardUID, "")
	gen := m.gen
	cart := make([]domain.CartLine, len(m.cart))
	copy(cart, m.cart)
	m.mu.Unlock()

	go m.process(gen, evt.CardUID, cart)
}

// HandleCardRemoved is informational only. A removal during processing
// never aborts the debit; the unit runs to completion on its own.
func (m *SessionMachine) HandleCardRemoved(evt domain.CardRemovedEvent) {
	m.log.Debug().Str("card_uid", evt.CardUID).Msg("card removed")
}

// Cancel moves the session to idle from any phase. It only stops this
// session's own progression; a ledger unit already underway commits or
// rolls back on its own.
func (m *SessionMachine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.stopResetTimerLocked()
	m.cart = nil
	m.transitionLocked(domain.PhaseIdle, "", "")
}

// process runs one processor invocation off the event goroutine so further
// reader events stay observable while the debit is in flight.
func (m *SessionMachine) process(gen uint64, cardUID string, cart []domain.CartLine) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ProcessingTimeout)
	defer cancel()

	receipt, err := m.processor.Purchase(ctx, ports.PurchaseRequest{
		CardUID:     cardUID,
		ReferenceID: uuid.NewString(),
		Lines:       cart,
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		// Session was cancelled or reset while we ran; drop the outcome.
		m.log.Debug().Str("card_uid", cardUID).Msg("dropping stale processor result")
		return
	}

	if err != nil {
		code := "INTERNAL_ERROR"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			code = "TIMEOUT"
		} else {
			var appErr *apperror.AppError
			if errors.As(err, &appErr) {
				code = appErr.Code
			}
		}
		m.log.Warn().Err(err).Str("card_uid", cardUID).Str("code", code).Msg("purchase attempt failed")
		m.transitionLocked(domain.PhaseFailed, cardUID, code)
	} else {
		m.log.Info().
			Str("card_uid", cardUID).
			Str("tx_id", receipt.Transaction.ID.String()).
			Msg("purchase attempt succeeded")
		m.transitionLocked(domain.PhaseSuccess, cardUID, "")
	}

	m.scheduleResetLocked()
}

// scheduleResetLocked re-arms the session to waiting after the configured
// delay, unless a cancel intervenes. Caller holds the lock.
func (m *SessionMachine) scheduleResetLocked() {
	gen := m.gen
	m.stopResetTimerLocked()
	m.resetTimer = time.AfterFunc(m.cfg.ResetDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.gen != gen || !m.phase.Terminal() {
			return
		}
		m.transitionLocked(domain.PhaseWaiting, "", "")
	})
}

func (m *SessionMachine) stopResetTimerLocked() {
	if m.resetTimer != nil {
		m.resetTimer.Stop()
		m.resetTimer = nil
	}
}

// transitionLocked updates the phase and publishes the change. Caller
// holds the lock.
func (m *SessionMachine) transitionLocked(to domain.SessionPhase, cardUID, errorCode string) {
	from := m.phase
	m.phase = to
	m.log.Debug().
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("session transition")
	m.events.Publish(domain.SessionStatusEvent{
		Phase:     to,
		CardUID:   cardUID,
		ErrorCode: errorCode,
		At:        time.Now().UTC(),
	})
}
