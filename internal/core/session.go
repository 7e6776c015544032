package core

import (
	"sync"
	"time"

	"github.com/avlasov/Parley/internal/domain"
)

// Session is the server-side record of one live connection: one user in
// one room. It exclusively owns the connection handle and the rate-limit
// timestamp.
type Session struct {
	Username string
	RoomID   domain.RoomID

	conn Conn

	mu           sync.Mutex
	lastAccepted time.Time
	lastActivity time.Time
}

func NewSession(roomID domain.RoomID, username string, conn Conn) *Session {
	return &Session{
		Username:     username,
		RoomID:       roomID,
		conn:         conn,
		lastActivity: time.Now(),
	}
}

func (s *Session) Conn() Conn { return s.conn }

// Close closes the underlying connection. Safe to call more than once;
// the adapter-owned Conn guards itself.
func (s *Session) Close() { s.conn.Close() }

func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastActivity = now
	s.mu.Unlock()
}

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}
