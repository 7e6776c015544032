// Package ws is the WebSocket adapter: it upgrades chat connections,
// enforces connect-time validation and pumps frames between the socket and
// the hub.
package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avlasov/Parley/internal/app"
	"github.com/avlasov/Parley/internal/config"
	"github.com/avlasov/Parley/internal/core"
	"github.com/avlasov/Parley/internal/domain"
)

const writeWait = 5 * time.Second

type Controller struct {
	Hub *app.Hub
	Cfg *config.Config
}

func NewController(hub *app.Hub, cfg *config.Config) *Controller {
	return &Controller{Hub: hub, Cfg: cfg}
}

// connectParams are the path parameters of the chat endpoint. Room id and
// username are fixed for the lifetime of the connection; changing either
// requires reconnecting.
type connectParams struct {
	Username string `uri:"username" binding:"required,max=50"`
	Room     string `uri:"room" binding:"required"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleChat upgrades the connection and joins the room. Validation
// failures close the socket with a policy-violation status and a readable
// reason before any room state is mutated.
func (ctl *Controller) HandleChat(ctx context.Context, c *gin.Context) {
	var params connectParams
	if err := c.ShouldBindUri(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid connect parameters"})
		return
	}

	sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("upgrade failed")
		return
	}
	sock.SetReadLimit(ctl.Cfg.ReadLimit)

	conn := newWSConn(sock, ctl.Cfg.SendBuffer)
	sess, err := ctl.Hub.Join(params.Room, params.Username, conn)
	if err != nil {
		ctl.reject(sock, err)
		return
	}

	log.Info().Str("module", "adapters.ws").Str("room", string(sess.RoomID)).Str("username", sess.Username).Msg("connection open")
	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sess, conn)
}

// reject closes a connection that failed validation, carrying the reason
// in a policy-violation close frame. The server never retries setup errors.
func (ctl *Controller) reject(sock *websocket.Conn, cause error) {
	reason := "connection rejected"
	switch {
	case errors.Is(cause, domain.ErrInvalidRoom):
		reason = "invalid room id: must normalize to exactly 5 alphanumeric characters"
	case errors.Is(cause, domain.ErrUsernameTaken):
		reason = "username already taken in this room"
	case errors.Is(cause, domain.ErrUsernameEmpty), errors.Is(cause, domain.ErrUsernameTooLong):
		reason = "invalid username"
	}
	log.Info().Err(cause).Str("module", "adapters.ws").Msg("rejecting connection")
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = sock.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = sock.Close()
}

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ping := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug().Err(err).Str("module", "adapters.ws").Msg("ping failed")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump feeds inbound frames to the hub. Any exit, graceful or abrupt,
// runs leave exactly once via the hub's idempotent path.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, sess *core.Session, c *wsConn) {
	defer func() {
		log.Info().Str("module", "adapters.ws").Str("username", sess.Username).Msg("connection closed")
		cancel()
		ctl.Hub.Leave(sess)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("module", "adapters.ws").Str("username", sess.Username).Msg("abnormal closure")
				}
				return
			}
			ctl.Hub.HandleFrame(sess, data)
		}
	}
}
