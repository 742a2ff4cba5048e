package ws

import (
	"net/http"
	"time"

	"campus-card-ledger/internal/core/domain"
	"campus-card-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ReaderEndpoint is the hardware feed: the NFC reader bridge connects here
// and streams card-present, card-removed and reader-status frames. Every
// accepted frame lands on the internal bus.
type ReaderEndpoint struct {
	upgrader websocket.Upgrader
	events   ports.EventPublisher
	log      zerolog.Logger
}

// NewReaderEndpoint creates the /ws/reader handler.
func NewReaderEndpoint(events ports.EventPublisher, log zerolog.Logger) *ReaderEndpoint {
	return &ReaderEndpoint{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		events: events,
		log:    log,
	}
}

// Handle upgrades the connection and pumps reader frames onto the bus until
// the feed drops. A dropped socket is reported as a disconnected reader.
func (e *ReaderEndpoint) Handle(c *gin.Context) {
	conn, err := e.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		e.log.Warn().Err(err).Msg("reader upgrade failed")
		return
	}

	client := NewClient(conn, e.log)
	e.log.Info().Str("client_id", client.ID()).Msg("reader feed connected")

	defer func() {
		client.Close()
		e.events.Publish(domain.ReaderStatusEvent{
			Status: domain.ReaderDisconnected,
			At:     time.Now().UTC(),
		})
		e.log.Info().Str("client_id", client.ID()).Msg("reader feed disconnected")
	}()

	client.ReadLoop(func(frame []byte) {
		evt, err := DecodeReaderMessage(frame)
		if err != nil {
			e.log.Warn().Err(err).Str("client_id", client.ID()).Msg("rejected reader frame")
			return
		}
		e.events.Publish(evt)
	})
}
