package client

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/avlasov/Parley/internal/protocol"
)

// State is the connection lifecycle state of one logical chat session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosedNormal
	StateClosedAbnormal
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosedNormal:
		return "closed"
	case StateClosedAbnormal:
		return "closed abnormally"
	default:
		return "unknown"
	}
}

// Conn is the subset of *websocket.Conn the session drives. Tests install
// fakes through the Dialer.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Dialer opens one chat connection to the given URL.
type Dialer func(ctx context.Context, url string) (Conn, error)

func gorillaDial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Events are optional callbacks fired by the session. They run on the
// session's read goroutine and must not block or call back into Disconnect.
type Events struct {
	OnState     func(State)
	OnWelcome   func(greeting string, users []string)
	OnMessage   func(msg protocol.Message)
	OnPresence  func(kind, username string, ts time.Time)
	OnTyping    func(users []string)
	OnRateLimit func(remainingSeconds int, restoredText string)
}

// Config describes one logical chat session. Room and Username are fixed
// for the session's lifetime.
type Config struct {
	Addr     string
	Room     string
	Username string

	ReconnectDelay time.Duration
	TypingDebounce time.Duration
	RateWindow     time.Duration

	Dialer Dialer
	Events Events
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.ReconnectDelay == 0 {
		out.ReconnectDelay = 3 * time.Second
	}
	if out.TypingDebounce == 0 {
		out.TypingDebounce = time.Second
	}
	if out.RateWindow == 0 {
		out.RateWindow = 5 * time.Second
	}
	if out.Dialer == nil {
		out.Dialer = gorillaDial
	}
	return out
}
