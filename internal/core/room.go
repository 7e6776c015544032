// Package core holds the room session and broadcast engine: threadsafe
// membership, fan-out, rate limiting and typing state. It never touches
// transport resources beyond the Conn interface.
package core

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avlasov/Parley/internal/domain"
)

// Room is a threadsafe in-memory room. It owns its member sessions, keyed
// by username, and the room's typing set. It never closes adapter-owned
// connections.
type Room struct {
	id     domain.RoomID
	typing *TypingSet

	mu      sync.RWMutex
	members map[string]*Session
}

func NewRoom(id domain.RoomID, typingTTL time.Duration) *Room {
	return &Room{
		id:      id,
		typing:  NewTypingSet(typingTTL),
		members: make(map[string]*Session),
	}
}

func (r *Room) ID() domain.RoomID  { return r.id }
func (r *Room) Typing() *TypingSet { return r.typing }

func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Members returns a sorted snapshot of usernames.
func (r *Room) Members() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.members))
	for u := range r.members {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// AddMember inserts the session, enforcing username uniqueness with a
// case-sensitive exact match.
func (r *Room) AddMember(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.members[s.Username]; taken {
		return domain.ErrUsernameTaken
	}
	r.members[s.Username] = s
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("username", s.Username).Msg("member added")
	return nil
}

// RemoveMember deletes the session from membership and from the typing
// set. Idempotent, and identity-checked: a stale leave for a username that
// has since been re-taken by a new session removes nothing. wasTyping
// reports whether the typing set changed.
func (r *Room) RemoveMember(s *Session) (removed, wasTyping bool) {
	r.mu.Lock()
	if current, ok := r.members[s.Username]; ok && current == s {
		delete(r.members, s.Username)
		removed = true
	}
	r.mu.Unlock()
	if removed {
		wasTyping = r.typing.Remove(s.Username)
		log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("username", s.Username).Msg("member removed")
	}
	return removed, wasTyping
}

// Broadcast delivers data to every current member except exclude (empty
// means no exclusion). Membership is read under the room lock, so a fully
// departed session never receives the frame. A failed send never aborts
// delivery to the rest; failed recipients come back in the result for the
// caller to evict.
func (r *Room) Broadcast(data Frame, exclude string) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for username, s := range r.members {
		if username == exclude {
			continue
		}
		if err := s.Conn().TrySend(data); err != nil {
			log.Warn().Err(err).Str("module", "core.room").Str("room", string(r.id)).Str("username", username).Msg("broadcast delivery failed")
			res.Dropped = append(res.Dropped, s)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
