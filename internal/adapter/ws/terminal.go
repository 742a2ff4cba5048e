package ws

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"campus-card-ledger/internal/bus"
	"campus-card-ledger/internal/core/domain"
	"campus-card-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// TerminalEndpoint serves the point-of-sale UI: arm and cancel commands in,
// session status and completion events out. Each connection gets its own
// state machine wired to the hardware feed.
type TerminalEndpoint struct {
	upgrader   websocket.Upgrader
	hub        *Hub
	events     *bus.Bus
	newSession ports.SessionFactory
	lastReader atomic.Pointer[domain.ReaderStatusEvent]
	log        zerolog.Logger
}

// NewTerminalEndpoint creates the /ws/terminal handler.
func NewTerminalEndpoint(hub *Hub, events *bus.Bus, newSession ports.SessionFactory, log zerolog.Logger) *TerminalEndpoint {
	return &TerminalEndpoint{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		hub:        hub,
		events:     events,
		newSession: newSession,
		log:        log,
	}
}

// TrackReader remembers the latest reader status so sessions created after
// the reader came up still start armable. Run on its own goroutine.
func (e *TerminalEndpoint) TrackReader(sub *bus.Subscription) {
	for evt := range sub.Events() {
		if status, ok := evt.(domain.ReaderStatusEvent); ok {
			e.lastReader.Store(&status)
		}
	}
}

// Handle upgrades the connection, builds the session machine and runs the
// command loop until the UI disconnects.
func (e *TerminalEndpoint) Handle(c *gin.Context) {
	conn, err := e.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		e.log.Warn().Err(err).Msg("terminal upgrade failed")
		return
	}

	client := NewClient(conn, e.log)
	e.hub.Register(client)
	e.log.Info().Str("client_id", client.ID()).Msg("terminal connected")

	session := e.newSession()
	if status := e.lastReader.Load(); status != nil {
		session.HandleReaderStatus(*status)
	}

	sub := e.events.Subscribe()
	defer func() {
		e.events.Unsubscribe(sub)
		session.Cancel()
		e.hub.Unregister(client)
		e.log.Info().Str("client_id", client.ID()).Msg("terminal disconnected")
	}()

	// Route hardware events into this connection's own machine.
	go func() {
		for evt := range sub.Events() {
			switch evt := evt.(type) {
			case domain.ReaderStatusEvent:
				session.HandleReaderStatus(evt)
			case domain.CardPresentEvent:
				session.HandleCardPresent(evt)
			case domain.CardRemovedEvent:
				session.HandleCardRemoved(evt)
			}
		}
	}()

	client.ReadLoop(func(frame []byte) {
		cmd, arm, err := DecodeTerminalCommand(frame)
		if err != nil {
			e.log.Warn().Err(err).Str("client_id", client.ID()).Msg("rejected terminal frame")
			e.sendError(client, err.Error())
			return
		}

		switch cmd {
		case CommandArm:
			if err := session.Arm(arm.Lines); err != nil {
				e.sendError(client, err.Error())
			}
		case CommandCancel:
			session.Cancel()
		}
	})
}

func (e *TerminalEndpoint) sendError(client *Client, message string) {
	data, _ := json.Marshal(gin.H{"message": message})
	frame, err := json.Marshal(Envelope{Type: "error", Data: data})
	if err != nil {
		return
	}
	client.Send(frame)
}
