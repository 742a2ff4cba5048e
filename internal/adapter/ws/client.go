package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	readLimit  = 4096
	sendBuffer = 64
)

// Client is one websocket connection with a buffered outbound queue. A full
// queue drops the frame instead of blocking the hub.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
	log  zerolog.Logger
}

// NewClient wraps an upgraded connection and starts its write pump.
func NewClient(conn *websocket.Conn, log zerolog.Logger) *Client {
	c := &Client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
		log:  log,
	}
	go c.writePump()
	return c
}

// ID returns the connection identifier used in logs.
func (c *Client) ID() string {
	return c.id
}

// Send queues a frame for delivery. Never blocks.
func (c *Client) Send(frame []byte) {
	select {
	case <-c.done:
	case c.send <- frame:
	default:
		c.log.Warn().Str("client_id", c.id).Msg("send buffer full, dropping frame")
	}
}

// Close shuts the connection down. Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Done is closed when the connection is finished.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// ReadLoop delivers inbound frames to handle until the connection drops.
// Runs on the caller's goroutine.
func (c *Client) ReadLoop(handle func(frame []byte)) {
	defer c.Close()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Str("client_id", c.id).Msg("websocket closed unexpectedly")
			}
			return
		}
		handle(frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
