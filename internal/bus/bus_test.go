package bus

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-card-ledger/internal/core/domain"
)

func newTestBus(buffer int) *Bus {
	return New(buffer, zerolog.Nop())
}

func TestBus_FanOut(t *testing.T) {
	b := newTestBus(8)
	sub1 := b.Subscribe()
	sub2 := b.Subscribe()

	evt := domain.CardPresentEvent{CardUID: "04A1", At: time.Now()}
	b.Publish(evt)

	for _, sub := range []*Subscription{sub1, sub2} {
		select {
		case got := <-sub.Events():
			assert.Equal(t, evt, got)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBus_PerSwipeOrdering(t *testing.T) {
	b := newTestBus(8)
	sub := b.Subscribe()

	b.Publish(domain.CardPresentEvent{CardUID: "04A1"})
	b.Publish(domain.CardRemovedEvent{CardUID: "04A1"})

	first := <-sub.Events()
	second := <-sub.Events()
	assert.Equal(t, domain.EventCardPresent, first.Kind())
	assert.Equal(t, domain.EventCardRemoved, second.Kind())
}

func TestBus_DropOldestWhenFull(t *testing.T) {
	b := newTestBus(2)
	sub := b.Subscribe()

	b.Publish(domain.CardPresentEvent{CardUID: "A"})
	b.Publish(domain.CardPresentEvent{CardUID: "B"})
	b.Publish(domain.CardPresentEvent{CardUID: "C"}) // evicts A

	got1 := (<-sub.Events()).(domain.CardPresentEvent)
	got2 := (<-sub.Events()).(domain.CardPresentEvent)
	assert.Equal(t, "B", got1.CardUID)
	assert.Equal(t, "C", got2.CardUID)

	select {
	case evt := <-sub.Events():
		t.Fatalf("unexpected extra event: %v", evt)
	default:
	}
}

func TestBus_PublishNeverBlocks(t *testing.T) {
	b := newTestBus(1)
	b.Subscribe() // nobody ever reads this subscription

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Publish(domain.BalanceUpdatedEvent{CardUID: "04A1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	b := newTestBus(4)
	sub := b.Subscribe()
	b.Unsubscribe(sub)

	_, open := <-sub.Events()
	require.False(t, open, "channel should be closed after unsubscribe")

	// Publishing after unsubscribe must not panic.
	b.Publish(domain.CardPresentEvent{CardUID: "04A1"})
	// Double unsubscribe is a no-op.
	b.Unsubscribe(sub)
}
