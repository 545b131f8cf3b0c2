package types

import (
	"encoding/json"
	"errors"

	"github.com/coder/websocket"
)

// SendBufferSize is the outbound queue depth for a single connection.
const SendBufferSize = 256

// ErrSendBufferFull is returned when a connection's outbound queue is full
// and the payload was dropped rather than blocking the caller.
var ErrSendBufferFull = errors.New("send buffer full")

// Message types recorded with persisted chat lines.
const (
	MessageTypeNormal  = "normal"
	MessageTypeCommand = "command"
	MessageTypePrivate = "private"
)

// Conn pairs a live WebSocket with its outbound queue. The accepting handler
// owns the socket and runs the read loop; a per-connection writer goroutine
// drains Send. Fan-out paths enqueue without blocking so one stalled client
// cannot hold up a broadcast.
//
// Tests construct Conn values with a nil Sock and a small buffered Send
// channel to observe exactly what the server queued for delivery.
type Conn struct {
	Sock *websocket.Conn
	ID   string
	Send chan []byte
}

// NewConn wraps an accepted socket with a fresh outbound queue.
func NewConn(sock *websocket.Conn, id string) *Conn {
	return &Conn{
		Sock: sock,
		ID:   id,
		Send: make(chan []byte, SendBufferSize),
	}
}

// Enqueue queues payload for the writer goroutine. It never blocks; a full
// queue returns ErrSendBufferFull and the payload is dropped.
func (c *Conn) Enqueue(payload []byte) error {
	select {
	case c.Send <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// EnqueueJSON marshals v and queues the result.
func (c *Conn) EnqueueJSON(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Enqueue(payload)
}
