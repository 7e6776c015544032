// Package client implements the connection lifecycle state machine for one
// logical chat session: connect, receive, reconnect on abnormal closure
// without stacking attempts, deduplicate messages across reconnects and
// locally predict rate-limit state for responsive UIs.
package client

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avlasov/Parley/internal/protocol"
)

var ErrNotConnected = errors.New("not connected")

// Client keeps one logical chat session alive. Message ids already
// delivered are remembered for the session's lifetime, so an envelope
// replayed across a reconnect, or the broadcast echo of the client's own
// post, renders exactly once.
type Client struct {
	cfg Config

	mu             sync.Mutex
	state          State
	conn           Conn
	ctx            context.Context
	seen           map[string]struct{}
	pendingText    string
	rateDeadline   time.Time
	reconnectTimer *time.Timer
	typingTimer    *time.Timer
	userClosed     bool
}

func New(cfg Config) *Client {
	return &Client{
		cfg:  cfg.withDefaults(),
		seen: make(map[string]struct{}),
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Remaining is the locally predicted rate-limit countdown. Advisory only;
// the server's rate_limit envelope is ground truth and resyncs it.
func (c *Client) Remaining(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d := c.rateDeadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

func (c *Client) url() string {
	addr := c.cfg.Addr
	if !strings.Contains(addr, "://") {
		addr = "ws://" + addr
	}
	return addr + "/api/ws/" + url.PathEscape(c.cfg.Username) + "/" + url.PathEscape(c.cfg.Room)
}

// Connect opens the connection and starts the read loop. Called both for
// the initial join and by the reconnect timer; a failed dial counts as an
// abnormal closure and re-arms the timer.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateOpen {
		c.mu.Unlock()
		return nil
	}
	c.userClosed = false
	c.ctx = ctx
	c.setState(StateConnecting)
	c.mu.Unlock()

	conn, err := c.cfg.Dialer(ctx, c.url())

	c.mu.Lock()
	if c.userClosed {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return nil
	}
	if err != nil {
		c.setState(StateClosedAbnormal)
		c.scheduleReconnect()
		c.mu.Unlock()
		return err
	}
	c.conn = conn
	c.setState(StateOpen)
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// Disconnect is the explicit, user-initiated teardown: it cancels pending
// timers, sends a normal closure and leaves the session terminal until a
// new Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.userClosed = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.typingTimer != nil {
		c.typingTimer.Stop()
		c.typingTimer = nil
	}
	conn := c.conn
	c.conn = nil
	c.setState(StateDisconnected)
	c.mu.Unlock()

	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.Close()
	}
}

// Send posts a message. The caller's UI typically clears its input
// optimistically; the text is remembered so a rate-limit rejection can
// hand it back.
func (c *Client) Send(text string) error {
	c.mu.Lock()
	if c.state != StateOpen || c.conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.pendingText = text
	c.rateDeadline = time.Now().Add(c.cfg.RateWindow)
	c.mu.Unlock()

	data, err := protocol.EncodeMessageFrame(text)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// NotifyTyping marks local typing activity: the first call in a burst
// sends typing=true, and a debounce timer sends typing=false once the
// burst goes idle. The timer is replaced, never stacked.
func (c *Client) NotifyTyping() {
	c.mu.Lock()
	if c.state != StateOpen || c.conn == nil {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	first := c.typingTimer == nil
	if !first {
		c.typingTimer.Stop()
	}
	c.typingTimer = time.AfterFunc(c.cfg.TypingDebounce, c.stopTyping)
	c.mu.Unlock()

	if first {
		c.writeTyping(conn, true)
	}
}

func (c *Client) stopTyping() {
	c.mu.Lock()
	c.typingTimer = nil
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()
	if open && conn != nil {
		c.writeTyping(conn, false)
	}
}

func (c *Client) writeTyping(conn Conn, typing bool) {
	data, err := protocol.EncodeTypingFrame(typing)
	if err != nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Debug().Err(err).Str("module", "client").Msg("typing frame write failed")
	}
}

func (c *Client) readLoop(conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClosure(conn, err)
			return
		}
		c.handleEnvelope(data)
	}
}

// handleClosure classifies how the connection ended. A close frame from
// the server (normal, going away or a policy rejection) is terminal; only
// an abnormal closure arms the reconnect timer.
func (c *Client) handleClosure(conn Conn, err error) {
	_ = conn.Close()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		// Stale loop from a connection already replaced or torn down.
		return
	}
	c.conn = nil
	if c.userClosed {
		return
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
		log.Info().Int("code", closeErr.Code).Str("reason", closeErr.Text).Str("module", "client").Msg("server closed connection")
		c.setState(StateClosedNormal)
		return
	}
	log.Warn().Err(err).Str("module", "client").Msg("abnormal closure")
	c.setState(StateClosedAbnormal)
	c.scheduleReconnect()
}

// scheduleReconnect arms the single-flight retry timer. Caller holds mu.
func (c *Client) scheduleReconnect() {
	if c.reconnectTimer != nil || c.userClosed {
		return
	}
	if c.cfg.Room == "" || c.cfg.Username == "" {
		return
	}
	c.reconnectTimer = time.AfterFunc(c.cfg.ReconnectDelay, c.reconnect)
}

func (c *Client) reconnect() {
	c.mu.Lock()
	c.reconnectTimer = nil
	if c.userClosed || c.state != StateClosedAbnormal {
		c.mu.Unlock()
		return
	}
	ctx := c.ctx
	c.mu.Unlock()
	if err := c.Connect(ctx); err != nil {
		log.Warn().Err(err).Str("module", "client").Msg("reconnect attempt failed")
	}
}

func (c *Client) handleEnvelope(data []byte) {
	env, err := protocol.DecodeEnvelope(data)
	if err != nil {
		log.Debug().Err(err).Str("module", "client").Msg("dropping undecodable envelope")
		return
	}
	switch env.Type {
	case protocol.TypeWelcome:
		if c.cfg.Events.OnWelcome != nil {
			c.cfg.Events.OnWelcome(env.Message, env.Users)
		}
	case protocol.TypeMessage:
		c.deliver(protocol.Message{
			MessageID: env.MessageID,
			Username:  env.Username,
			Content:   env.Content,
			Timestamp: env.Timestamp,
		})
	case protocol.TypeMessages:
		for _, m := range env.Messages {
			c.deliver(m)
		}
	case protocol.TypeUserJoined, protocol.TypeUserLeft:
		if c.cfg.Events.OnPresence != nil {
			c.cfg.Events.OnPresence(env.Type, env.Username, env.Timestamp)
		}
	case protocol.TypeRateLimit:
		c.handleRateLimit(env.RemainingSeconds)
	case protocol.TypeTyping:
		c.handleTyping(env.TypingUsers)
	default:
		log.Debug().Str("module", "client").Str("type", env.Type).Msg("unknown envelope")
	}
}

// deliver renders a message exactly once, reconciling the broadcast echo
// of the client's own post with the optimistic local state by id.
func (c *Client) deliver(m protocol.Message) {
	c.mu.Lock()
	if _, dup := c.seen[m.MessageID]; dup {
		c.mu.Unlock()
		return
	}
	c.seen[m.MessageID] = struct{}{}
	if m.Username == c.cfg.Username && m.Content == c.pendingText {
		c.pendingText = ""
	}
	c.mu.Unlock()
	if c.cfg.Events.OnMessage != nil {
		c.cfg.Events.OnMessage(m)
	}
}

// handleRateLimit restores the optimistically cleared input and resyncs
// the local countdown from the server's remaining_seconds.
func (c *Client) handleRateLimit(remaining int) {
	c.mu.Lock()
	restored := c.pendingText
	c.pendingText = ""
	c.rateDeadline = time.Now().Add(time.Duration(remaining) * time.Second)
	c.mu.Unlock()
	if c.cfg.Events.OnRateLimit != nil {
		c.cfg.Events.OnRateLimit(remaining, restored)
	}
}

// handleTyping drops the client's own name from the list; everyone in the
// room receives the same list and filters themselves out.
func (c *Client) handleTyping(users []string) {
	filtered := make([]string, 0, len(users))
	for _, u := range users {
		if u != c.cfg.Username {
			filtered = append(filtered, u)
		}
	}
	if c.cfg.Events.OnTyping != nil {
		c.cfg.Events.OnTyping(filtered)
	}
}

// setState records a transition and fires OnState. Caller holds mu; the
// callback must treat it as a notification, not a place to drive the
// session from.
func (c *Client) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	if c.cfg.Events.OnState != nil {
		c.cfg.Events.OnState(s)
	}
}
