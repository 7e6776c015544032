package core

import "errors"

var (
	// ErrBackpressure means the connection's send buffer is full.
	ErrBackpressure = errors.New("backpressure")
	// ErrConnClosed means the connection has already been closed.
	ErrConnClosed = errors.New("connection closed")
)

// Frame is an encoded envelope ready for the wire.
type Frame []byte

// Conn abstracts the outbound half of one live connection.
// Owned by the adapter; the adapter must Close() it.
type Conn interface {
	TrySend(Frame) error
	Close()
}

// PublishResult reports delivery stats and failed recipients to the hub.
type PublishResult struct {
	SentTo  int
	Dropped []*Session
}
