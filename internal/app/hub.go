// Package app wires the room registry, rate limiter, typing aggregator and
// batch dispatcher into the session manager the transport adapters talk to.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avlasov/Parley/internal/core"
	"github.com/avlasov/Parley/internal/domain"
	"github.com/avlasov/Parley/internal/protocol"
)

// Hub is the session manager: it runs join/leave against the registry,
// routes inbound client frames to the rate limiter, typing aggregator or
// broadcast path, and applies the delivery policy to failed recipients.
type Hub struct {
	registry *Registry
	limiter  *core.Limiter
	policy   DeliveryPolicy
	batcher  *Batcher

	now func() time.Time
}

func NewHub(registry *Registry, limiter *core.Limiter, policy DeliveryPolicy, batchInterval time.Duration, batchSize int) *Hub {
	h := &Hub{
		registry: registry,
		limiter:  limiter,
		policy:   policy,
		now:      time.Now,
	}
	h.batcher = NewBatcher(batchInterval, batchSize, h.flushBatch)
	return h
}

func (h *Hub) Registry() *Registry { return h.registry }

// Run drives the batch dispatcher until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.batcher.Run(ctx)
}

// Join validates and registers a new connection. On success the new
// session gets a welcome envelope with the current member list and every
// other member gets user_joined. On failure no room state is mutated and
// the error maps to a connection-setup rejection.
func (h *Hub) Join(rawRoom, username string, conn core.Conn) (*core.Session, error) {
	sess, err := h.registry.Join(rawRoom, username, conn)
	if err != nil {
		return nil, err
	}
	room, ok := h.registry.Room(sess.RoomID)
	if !ok {
		// Leave raced us between insert and lookup; nothing left to greet.
		return sess, nil
	}
	h.broadcast(room, protocol.NewUserJoined(username, h.now()), username)
	h.unicast(sess, protocol.NewWelcome(sess.RoomID, username, room.Members()))
	log.Info().Str("module", "app.hub").Str("room", string(sess.RoomID)).Str("username", username).Msg("joined")
	return sess, nil
}

// Leave removes the session and notifies the remaining members. Idempotent
// regardless of whether the closure was graceful or abrupt.
func (h *Hub) Leave(s *core.Session) {
	room, removed, wasTyping := h.registry.Leave(s)
	if !removed {
		return
	}
	log.Info().Str("module", "app.hub").Str("room", string(s.RoomID)).Str("username", s.Username).Msg("left")
	if room == nil {
		return
	}
	h.broadcast(room, protocol.NewUserLeft(s.Username, h.now()), "")
	if wasTyping {
		h.broadcastTyping(room)
	}
}

// HandleFrame routes one inbound client frame. Malformed or unrecognized
// frames are dropped silently; they must not terminate the connection.
func (h *Hub) HandleFrame(s *core.Session, data []byte) {
	s.Touch(h.now())
	frame, ok := protocol.DecodeClientFrame(data)
	if !ok {
		log.Debug().Str("module", "app.hub").Str("username", s.Username).Msg("dropping unrecognized frame")
		return
	}
	switch {
	case frame.Message != nil:
		h.handleMessage(s, *frame.Message)
	case frame.Typing != nil:
		h.handleTyping(s, *frame.Typing)
	}
}

func (h *Hub) handleMessage(s *core.Session, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if len(text) > domain.MaxMessageLen {
		log.Warn().Str("module", "app.hub").Str("username", s.Username).Int("len", len(text)).Msg("dropping oversized message")
		return
	}
	ok, remaining := h.limiter.TryAccept(s, h.now())
	if !ok {
		h.unicast(s, protocol.RateLimit{Type: protocol.TypeRateLimit, RemainingSeconds: remaining})
		return
	}
	msg, err := domain.NewMessage(s.RoomID, s.Username, text)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.hub").Str("username", s.Username).Msg("rejecting message")
		return
	}
	room, found := h.registry.Room(s.RoomID)
	if !found {
		return
	}
	h.broadcast(room, protocol.NewMessage(msg), "")
	h.batcher.Enqueue(msg)
}

func (h *Hub) handleTyping(s *core.Session, typing bool) {
	room, ok := h.registry.Room(s.RoomID)
	if !ok {
		return
	}
	if room.Typing().Set(s.Username, typing, h.now()) {
		h.broadcastTyping(room)
	}
}

// broadcastTyping sends the current non-expired typer list to the whole
// room, the typer included; clients filter themselves out.
func (h *Hub) broadcastTyping(room *core.Room) {
	env := protocol.Typing{Type: protocol.TypeTyping, TypingUsers: room.Typing().Active(h.now())}
	h.broadcast(room, env, "")
}

func (h *Hub) flushBatch(roomID domain.RoomID, msgs []protocol.Message) {
	room, ok := h.registry.Room(roomID)
	if !ok {
		return
	}
	h.broadcast(room, protocol.Messages{Type: protocol.TypeMessages, Messages: msgs}, "")
}

func (h *Hub) broadcast(room *core.Room, v any, exclude string) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Msg("broadcast marshal")
		return
	}
	res := room.Broadcast(data, exclude)
	for _, dropped := range res.Dropped {
		if h.policy.OnSendFailure(room, dropped) == KickMember {
			h.evict(dropped)
		}
	}
}

func (h *Hub) unicast(s *core.Session, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Msg("unicast marshal")
		return
	}
	if err := s.Conn().TrySend(data); err != nil && !errors.Is(err, core.ErrConnClosed) {
		log.Warn().Err(err).Str("module", "app.hub").Str("username", s.Username).Msg("unicast delivery failed")
		h.evict(s)
	}
}

// evict closes the connection and runs leave. Used for recipients whose
// delivery failed; eviction of one member never aborts delivery to others.
func (h *Hub) evict(s *core.Session) {
	s.Close()
	h.Leave(s)
}
