package core

import (
	"math"
	"time"
)

// Limiter enforces the posting cadence: at most one accepted message per
// window for each session. The limiter is server-authoritative; any
// client-side countdown is advisory only.
type Limiter struct {
	window time.Duration
}

func NewLimiter(window time.Duration) *Limiter {
	return &Limiter{window: window}
}

func (l *Limiter) Window() time.Duration { return l.window }

// TryAccept reports whether a post at now is allowed. On acceptance the
// session's last-accepted timestamp advances to now; on rejection it
// returns the whole seconds remaining, rounded up.
func (l *Limiter) TryAccept(s *Session, now time.Time) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	elapsed := now.Sub(s.lastAccepted)
	if s.lastAccepted.IsZero() || elapsed >= l.window {
		s.lastAccepted = now
		return true, 0
	}
	remaining := int(math.Ceil((l.window - elapsed).Seconds()))
	return false, remaining
}
