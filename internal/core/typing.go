package core

import (
	"sort"
	"sync"
	"time"
)

// TypingSet tracks which users of a room are currently typing. Entries are
// advisory and lossy-tolerant: each carries a deadline and expires lazily
// on read, so no external timer is needed even when a peer vanishes.
type TypingSet struct {
	mu        sync.Mutex
	ttl       time.Duration
	deadlines map[string]time.Time
}

func NewTypingSet(ttl time.Duration) *TypingSet {
	return &TypingSet{
		ttl:       ttl,
		deadlines: make(map[string]time.Time),
	}
}

// Set inserts or refreshes the user's deadline when typing, removes the
// entry immediately otherwise. Reports whether the call changed the
// non-expired set.
func (t *TypingSet) Set(username string, typing bool, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	changed := t.expire(now) > 0
	if !typing {
		if _, ok := t.deadlines[username]; !ok {
			return changed
		}
		delete(t.deadlines, username)
		return true
	}
	_, present := t.deadlines[username]
	t.deadlines[username] = now.Add(t.ttl)
	return changed || !present
}

// Remove drops the user unconditionally, reporting whether an entry
// existed. Called on leave.
func (t *TypingSet) Remove(username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.deadlines[username]
	delete(t.deadlines, username)
	return ok
}

// Active returns the sorted non-expired usernames, expiring stale entries
// as a side effect.
func (t *TypingSet) Active(now time.Time) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expire(now)
	out := make([]string, 0, len(t.deadlines))
	for u := range t.deadlines {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

func (t *TypingSet) expire(now time.Time) int {
	n := 0
	for u, deadline := range t.deadlines {
		if !now.Before(deadline) {
			delete(t.deadlines, u)
			n++
		}
	}
	return n
}
