// Package bus is the in-process event channel between the reader feed, the
// terminal sessions and the websocket hub. One producer fans out to N
// subscribers over bounded buffers; a slow subscriber loses its oldest
// events rather than stalling the producer. Live-status traffic only, the
// transaction commit path never goes through here.
package bus

import (
	"sync"

	"campus-card-ledger/internal/core/domain"

	"github.com/rs/zerolog"
)

// Subscription is one subscriber's bounded event feed.
type Subscription struct {
	ch chan domain.Event
}

// Events returns the receive side of the subscription. The channel closes
// on Unsubscribe.
func (s *Subscription) Events() <-chan domain.Event {
	return s.ch
}

// Bus fans events out to all current subscribers. Publish never blocks.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	log    zerolog.Logger
}

// New creates a Bus with the given per-subscriber buffer size.
func New(buffer int, log zerolog.Logger) *Bus {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		log:    log,
	}
}

// Subscribe registers a new subscriber starting from the next published
// event.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan domain.Event, b.buffer)}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
}

// Publish delivers the event to every subscriber without blocking. A full
// buffer drops its oldest event first; events from a single producer still
// arrive in publish order.
func (b *Bus) Publish(evt domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		select {
		case sub.ch <- evt:
			continue
		default:
		}
		// Buffer full: evict the oldest, then retry once.
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- evt:
		default:
			b.log.Warn().Str("event", string(evt.Kind())).Msg("event dropped, subscriber buffer contended")
		}
	}
}
