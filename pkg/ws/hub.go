package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub tracks WebSocket connections and the post each player currently has
// open, for targeted pushes (snapshot refreshes after deck edits).
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection // user id -> connection
	posts       map[string][]string    // post id -> user ids
	logger      zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		posts:       make(map[string][]string),
		logger:      logger,
	}
}

// RegisterConnection adds a connection for a user, closing any previous one.
func (h *Hub) RegisterConnection(userID string, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, exists := h.connections[userID]; exists {
		old.Close()
	}

	h.connections[userID] = conn
	h.logger.Info().Str("user_id", userID).Msg("connection registered")
}

// UnregisterConnection removes a connection and any post membership.
func (h *Hub) UnregisterConnection(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, exists := h.connections[userID]; exists {
		conn.Close()
		delete(h.connections, userID)
		h.logger.Info().Str("user_id", userID).Msg("connection unregistered")
	}

	for postID, users := range h.posts {
		for i, uid := range users {
			if uid == userID {
				h.posts[postID] = append(users[:i], users[i+1:]...)
				break
			}
		}
	}
}

// JoinPost associates a user with a post for targeted broadcasts.
func (h *Hub) JoinPost(postID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	users := h.posts[postID]
	for _, uid := range users {
		if uid == userID {
			return
		}
	}
	h.posts[postID] = append(users, userID)
}

// LeavePost removes a user from a post.
func (h *Hub) LeavePost(postID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	users := h.posts[postID]
	for i, uid := range users {
		if uid == userID {
			h.posts[postID] = append(users[:i], users[i+1:]...)
			break
		}
	}
}

// BroadcastToPost sends a message to every player with the post open.
func (h *Hub) BroadcastToPost(postID string, msg Message) error {
	h.mu.RLock()
	users := append([]string(nil), h.posts[postID]...)
	h.mu.RUnlock()

	var firstErr error
	for _, userID := range users {
		if err := h.SendToUser(userID, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SendToUser delivers a message to a specific user.
func (h *Hub) SendToUser(userID string, msg Message) error {
	h.mu.RLock()
	conn, exists := h.connections[userID]
	h.mu.RUnlock()

	if !exists {
		return ErrConnectionNotFound
	}
	return conn.Send(msg)
}

// Connection wraps a WebSocket connection with a buffered send queue.
type Connection struct {
	conn   *websocket.Conn
	sendCh chan Message
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

// NewConnection wraps a raw WebSocket connection.
func NewConnection(conn *websocket.Conn, logger zerolog.Logger) *Connection {
	return &Connection{
		conn:   conn,
		sendCh: make(chan Message, 64),
		logger: logger,
	}
}

// Send queues a message for delivery.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts down the connection.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.sendCh)
	c.conn.Close()
}

// WritePump drains the send queue onto the wire.
func (c *Connection) WritePump() {
	defer c.conn.Close()

	for msg := range c.sendCh {
		if err := c.conn.WriteJSON(msg); err != nil {
			c.logger.Warn().Err(err).Msg("write error")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ReadPump reads messages and hands each to the handler, in order. One
// reader per connection is what guarantees a player's requests are processed
// in the order they were issued.
func (c *Connection) ReadPump(handler func(Message) error) {
	defer c.conn.Close()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			break
		}

		if err := handler(msg); err != nil {
			c.logger.Warn().Err(err).Str("type", msg.Type).Msg("message handler error")
		}
	}
}

var (
	ErrConnectionNotFound = &Error{Code: "connection_not_found", Message: "User connection not found"}
	ErrConnectionClosed   = &Error{Code: "connection_closed", Message: "Connection is closed"}
	ErrSendQueueFull      = &Error{Code: "send_queue_full", Message: "Send queue is full"}
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
