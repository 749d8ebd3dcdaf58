package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/BaoTrinh25/Job-BE/internal/domain"
	"github.com/BaoTrinh25/Job-BE/pkg/logger"
	"github.com/BaoTrinh25/Job-BE/service"
)

// Connection is the per-socket session state. It is bound to exactly one
// fanout group for its whole lifetime and is owned by the goroutine pair
// started for it; nothing here is shared across connections except the
// chat service behind it.
type Connection struct {
	ws     *websocket.Conn
	send   chan interface{}
	group  string
	connID string
	chat   service.ChatService
	logger logger.Logger

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

func NewConnection(ws *websocket.Conn, group string, chat service.ChatService, logg logger.Logger) *Connection {
	return &Connection{
		ws:     ws,
		send:   make(chan interface{}, 256),
		group:  group,
		connID: uuid.NewString(),
		chat:   chat,
		logger: logg.WithFields(map[string]interface{}{"group": group}),
	}
}

// ID is the connection's fanout membership key, unique per socket.
func (c *Connection) ID() string {
	return c.connID
}

// Group is the fanout group this connection is bound to.
func (c *Connection) Group() string {
	return c.group
}

// Deliver relays a group broadcast to this connection's socket. Delivery
// to a closed or saturated connection is silently dropped so one stuck
// member never blocks fanout to the rest of the group.
func (c *Connection) Deliver(event domain.ChatBroadcast) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- event:
	default:
		c.logger.Warnf("send buffer full, dropping broadcast for %s", c.connID)
	}
}

// enqueue puts a direct (non-broadcast) response on the send channel.
func (c *Connection) enqueue(v interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- v:
	default:
		c.logger.Warnf("send buffer full, dropping response for %s", c.connID)
	}
}

// ReadPump processes inbound frames strictly in arrival order until the
// socket closes, then tears the session down.
func (c *Connection) ReadPump() {
	defer c.Close()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Errorf("read error on %s: %v", c.connID, err)
			}
			return
		}
		c.dispatch(data)
	}
}

func (c *Connection) dispatch(data []byte) {
	ctx := context.Background()

	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Debugf("ignoring undecodable frame: %v", err)
		return
	}

	switch env.Type {
	case domain.EventChat:
		var event domain.ChatEvent
		if err := json.Unmarshal(data, &event); err != nil {
			c.logger.Debugf("ignoring malformed chat frame: %v", err)
			return
		}
		if err := c.chat.SendMessage(ctx, c.group, event); err != nil {
			// Both validation and storage failures drop only this event;
			// the connection stays open for the next frame.
			if errors.Is(err, domain.ErrValidation) {
				c.logger.Warnf("dropping chat event: %v", err)
			} else {
				c.logger.Errorf("chat event failed: %v", err)
			}
		}

	case domain.EventPreviousMessages:
		var req domain.HistoryRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.logger.Debugf("ignoring malformed history request: %v", err)
			return
		}
		entries, err := c.chat.History(ctx, req)
		if err != nil {
			c.logger.Errorf("history request failed: %v", err)
			return
		}
		// History goes back to the requesting socket only.
		c.enqueue(domain.HistoryResponse{
			Type:     domain.EventPreviousMessages,
			Messages: entries,
		})

	default:
		// Unknown or missing type is a deliberate no-op.
		c.logger.Debugf("ignoring event type %q", env.Type)
	}
}

// WritePump serializes outbound events to the socket until the send
// channel is closed.
func (c *Connection) WritePump() {
	defer c.ws.Close()

	for msg := range c.send {
		if err := c.ws.WriteJSON(msg); err != nil {
			c.logger.Errorf("write error on %s: %v", c.connID, err)
			return
		}
	}
}

// Close leaves the fanout group and releases the socket. Safe to call
// more than once; a double close is a no-op.
func (c *Connection) Close() {
	c.once.Do(func() {
		if err := c.chat.LeaveRoom(context.Background(), c.group, c.connID); err != nil {
			c.logger.Errorf("leave group %s: %v", c.group, err)
		}

		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()

		c.ws.Close()
	})
}
