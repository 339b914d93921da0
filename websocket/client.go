package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

const (
	sendBufferSize = 64
	writeWait      = 10 * time.Second
)

// Client wraps one websocket connection. Outbound writes go through Out, a
// buffered channel drained by a single write loop, so broadcasts never
// block on a slow socket. Enqueue through Send; read Out only from the
// write loop or a test.
type Client struct {
	ID       string
	UserID   uuid.UUID
	Username string
	Avatar   *string
	Out      chan []byte

	conn   *websocket.Conn
	closed chan struct{}
	once   sync.Once
}

func NewClient(userID uuid.UUID, username string, avatar *string, conn *websocket.Conn) *Client {
	return &Client{
		ID:       uuid.NewString(),
		UserID:   userID,
		Username: username,
		Avatar:   avatar,
		Out:      make(chan []byte, sendBufferSize),
		conn:     conn,
		closed:   make(chan struct{}),
	}
}

// Run drains the send buffer onto the socket. It returns when the client is
// closed or a write fails.
func (c *Client) Run() {
	for {
		select {
		case <-c.closed:
			return
		case payload := <-c.Out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.Close()
				return
			}
		}
	}
}

// Send enqueues a frame for delivery. A full buffer means the consumer is
// too slow; the connection is cut so backpressure stays bounded.
func (c *Client) Send(payload []byte) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	case c.Out <- payload:
		return nil
	default:
		c.Close()
		return errors.New("send buffer full")
	}
}

// SendJSON marshals the event and enqueues it.
func (c *Client) SendJSON(event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.Send(payload)
}

// Close terminates the connection. Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.closed)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}
