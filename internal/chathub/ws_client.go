package chathub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"lovelink/backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBufferSize = 256
)

// WebSocketClient implements Client over a gorilla/websocket connection.
// It is created only after the handshake has been authenticated, so UserID
// is always bound.
type WebSocketClient struct {
	UserID   uint
	SocketID string
	Conn     *websocket.Conn

	Hub     *Manager
	Gateway *Gateway
	Log     *zap.Logger

	// Send is written to by the hub and the gateway concurrently with
	// shutdown, so it is never closed; done carries the close signal and is
	// owned by Close alone.
	Send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewWebSocketClient(userID uint, socketID string, conn *websocket.Conn, hub *Manager, gateway *Gateway, log *zap.Logger) *WebSocketClient {
	return &WebSocketClient{
		UserID:   userID,
		SocketID: socketID,
		Conn:     conn,
		Hub:      hub,
		Gateway:  gateway,
		Log:      log,
		Send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
}

func (c *WebSocketClient) GetUserID() uint               { return c.UserID }
func (c *WebSocketClient) GetSocketID() string           { return c.SocketID }
func (c *WebSocketClient) GetSendChannel() chan<- []byte { return c.Send }

// Run starts the read and write pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close signals the write pump to drain out, which closes the connection.
// Safe against the double-close from unregister racing a read error, and
// safe to call while the read pump is still dispatching: pending writes to
// Send land in the buffer and are discarded with it.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump reads envelopes off the wire and dispatches them. Events for a
// single connection are handled serially; concurrency exists across
// connections only.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.UnregisterCh <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		c.Hub.Presence().Touch(c.UserID)
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Log.Warn("websocket read error",
					zap.Uint("userId", c.UserID),
					zap.Error(err))
			}
			break
		}

		var env models.Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			c.Log.Debug("discarding malformed frame", zap.Uint("userId", c.UserID))
			continue
		}

		c.Hub.Presence().Touch(c.UserID)
		c.Gateway.Dispatch(context.Background(), c, env)
	}
}

// writePump drains the send channel onto the wire and keeps the connection
// alive with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case raw := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
