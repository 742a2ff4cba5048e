package ws

import (
	"context"

	"campus-card-ledger/internal/bus"
	"campus-card-ledger/internal/core/domain"

	"github.com/rs/zerolog"
)

// Hub fans outbound events to every connected terminal client. Only the
// UI-facing kinds cross the wire; hardware-feed events stay on the internal
// bus.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan domain.Event
	log        zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan domain.Event, 100),
		log:        log,
	}
}

// Register attaches a terminal client to the broadcast set.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister detaches and closes a terminal client.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// Broadcast queues an event for delivery to all clients. Never blocks.
func (h *Hub) Broadcast(evt domain.Event) {
	select {
	case h.broadcast <- evt:
	default:
		h.log.Warn().Str("event", string(evt.Kind())).Msg("hub broadcast queue full, dropping event")
	}
}

// outbound reports whether an event kind belongs on the terminal wire.
func outbound(kind domain.EventType) bool {
	switch kind {
	case domain.EventTransactionComplete, domain.EventBalanceUpdated, domain.EventSessionStatus, domain.EventReaderStatus:
		return true
	}
	return false
}

// Run owns the client set until ctx is done. Register, unregister and
// broadcast all funnel through here, so no locking is needed.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				c.Close()
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.log.Info().
				Str("client_id", client.ID()).
				Int("connection_count", len(h.clients)).
				Msg("terminal client registered")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
				h.log.Info().
					Str("client_id", client.ID()).
					Int("connection_count", len(h.clients)).
					Msg("terminal client unregistered")
			}

		case evt := <-h.broadcast:
			if !outbound(evt.Kind()) {
				continue
			}
			frame, err := EncodeEvent(evt)
			if err != nil {
				h.log.Error().Err(err).Str("event", string(evt.Kind())).Msg("failed to encode event")
				continue
			}
			for client := range h.clients {
				client.Send(frame)
			}
		}
	}
}

// Pump forwards bus events into the hub until the subscription closes.
func (h *Hub) Pump(sub *bus.Subscription) {
	for evt := range sub.Events() {
		h.Broadcast(evt)
	}
}
