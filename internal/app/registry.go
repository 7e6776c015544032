package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avlasov/Parley/internal/core"
	"github.com/avlasov/Parley/internal/domain"
)

// Registry owns every room. Rooms are implicitly created on first join and
// reclaimed when the last member leaves; there is no pre-registration. The
// registry lock guards only the rooms map plus the join/leave transitions;
// fan-out takes the per-room lock instead, so rooms stay independent units
// of contention.
type Registry struct {
	typingTTL time.Duration

	mu    sync.RWMutex
	rooms map[domain.RoomID]*core.Room
}

func NewRegistry(typingTTL time.Duration) *Registry {
	return &Registry{
		typingTTL: typingTTL,
		rooms:     make(map[domain.RoomID]*core.Room),
	}
}

// Join validates the raw room id and username, creates the room if absent
// and inserts a new session. No state is mutated on failure.
func (r *Registry) Join(rawRoom, username string, conn core.Conn) (*core.Session, error) {
	roomID, err := domain.NormalizeRoomID(rawRoom)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		room = core.NewRoom(roomID, r.typingTTL)
		r.rooms[roomID] = room
		log.Info().Str("module", "app.registry").Str("room", string(roomID)).Msg("room created")
	}
	sess := core.NewSession(roomID, username, conn)
	if err := room.AddMember(sess); err != nil {
		if !ok {
			delete(r.rooms, roomID)
		}
		return nil, err
	}
	return sess, nil
}

// Leave removes the session from its room, deleting the room once empty.
// Idempotent: a second call for the same session is a no-op. The returned
// room is non-nil only while other members remain.
func (r *Registry) Leave(s *core.Session) (room *core.Room, removed, wasTyping bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[s.RoomID]
	if !ok {
		return nil, false, false
	}
	removed, wasTyping = room.RemoveMember(s)
	if !removed {
		return nil, false, false
	}
	if room.MemberCount() == 0 {
		delete(r.rooms, s.RoomID)
		log.Info().Str("module", "app.registry").Str("room", string(s.RoomID)).Msg("room reclaimed")
		return nil, true, wasTyping
	}
	return room, true, wasTyping
}

// Room looks up a live room by canonical id.
func (r *Registry) Room(id domain.RoomID) (*core.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	return room, ok
}

// MembersOf returns a sorted membership snapshot, empty when the room does
// not exist.
func (r *Registry) MembersOf(id domain.RoomID) []string {
	r.mu.RLock()
	room, ok := r.rooms[id]
	r.mu.RUnlock()
	if !ok {
		return []string{}
	}
	return room.Members()
}

// RoomCount reports how many rooms are currently live.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
