// Package websocket is the real-time transport for mention notifications.
//
// Each connection is a Client with two goroutines, the usual gorilla
// pairing: readPump handles watch/unwatch requests and registers the client
// in the presence.Registry, writePump drains the client's send buffer and
// keeps the connection alive with pings. When either side fails the client
// is removed from the registry.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sakif/photoshare/internal/metrics"
	"github.com/sakif/photoshare/internal/presence"
	"github.com/sakif/photoshare/internal/validation"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// inbound is a frame sent by the browser.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// watchRequest is the data of watchUserMentions / unwatchUserMentions.
type watchRequest struct {
	UserID string `json:"userId" validate:"required,xid"`
}

type errorData struct {
	Message string `json:"message"`
}

// Client is one open websocket. It implements presence.Subscriber.
type Client struct {
	conn     *websocket.Conn
	registry *presence.Registry
	userID   string
	logger   *slog.Logger

	// send is never closed. Shutdown is signalled by closing done.
	send      chan presence.Message
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, registry *presence.Registry, userID string, sendBuffer int, logger *slog.Logger) *Client {
	return &Client{
		conn:     conn,
		registry: registry,
		userID:   userID,
		logger:   logger,
		send:     make(chan presence.Message, sendBuffer),
		done:     make(chan struct{}),
	}
}

// Send queues msg for the write loop without blocking. It reports false if
// the buffer is full or the connection is closing.
func (c *Client) Send(msg presence.Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		metrics.WSMessagesDropped.Inc()
		c.logger.Warn("websocket send buffer full, message dropped",
			slog.String("userID", c.userID),
			slog.String("type", msg.Type),
		)
		return false
	}
}

// close tears the client down once: registrations first, so no new event
// is routed here, then the connection.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.registry.Remove(c)
		close(c.done)
		_ = c.conn.Close()
		metrics.WSConnectionsActive.Dec()
		c.logger.Debug("websocket closed", slog.String("userID", c.userID))
	})
}

// Start runs the pumps. It returns immediately.
func (c *Client) Start() {
	metrics.WSConnectionsActive.Inc()
	go c.writePump()
	go c.readPump()
}

// readPump is the only caller of Watch and Unwatch. Its final Remove runs
// after the last of them, so a client closed by writePump mid-frame cannot
// stay registered.
func (c *Client) readPump() {
	defer func() {
		c.close()
		c.registry.Remove(c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", slog.String("error", err.Error()))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Warn("unexpected websocket close", slog.String("error", err.Error()))
			}
			return
		}
		c.handle(raw)
	}
}

// handle applies one client frame. Bad frames get an error frame back and
// leave the connection open.
func (c *Client) handle(raw []byte) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		metrics.WSMessagesReceived.WithLabelValues("invalid").Inc()
		c.replyError("malformed message")
		return
	}

	switch msg.Type {
	case presence.TypeWatch, presence.TypeUnwatch:
	default:
		metrics.WSMessagesReceived.WithLabelValues("unknown").Inc()
		c.replyError("unknown message type " + msg.Type)
		return
	}
	metrics.WSMessagesReceived.WithLabelValues(msg.Type).Inc()

	var req watchRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.replyError("malformed data")
			return
		}
	}
	if err := validation.Struct(req); err != nil {
		c.replyError(err.Error())
		return
	}

	select {
	case <-c.done:
		return
	default:
	}

	if msg.Type == presence.TypeWatch {
		c.registry.Watch(c, req.UserID)
	} else {
		c.registry.Unwatch(c, req.UserID)
	}

	c.logger.Debug("websocket subscription changed",
		slog.String("userID", c.userID),
		slog.String("type", msg.Type),
		slog.String("target", req.UserID),
	)
}

func (c *Client) replyError(message string) {
	c.Send(presence.Message{Type: presence.TypeError, Data: errorData{Message: message}})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug("websocket write failed", slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
