package core_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avlasov/Parley/internal/core"
	"github.com/avlasov/Parley/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	fail   bool
	closed bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return core.ErrBackpressure
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeConn) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func newTestRoom(t *testing.T) *core.Room {
	t.Helper()
	return core.NewRoom("ABC12", 2*time.Second)
}

func TestRoom_AddMemberUniqueness(t *testing.T) {
	room := newTestRoom(t)

	alice := core.NewSession(room.ID(), "alice", &fakeConn{})
	require.NoError(t, room.AddMember(alice))

	impostor := core.NewSession(room.ID(), "alice", &fakeConn{})
	require.ErrorIs(t, room.AddMember(impostor), domain.ErrUsernameTaken)
	require.Equal(t, 1, room.MemberCount())

	// Uniqueness is a case-sensitive exact match.
	require.NoError(t, room.AddMember(core.NewSession(room.ID(), "Alice", &fakeConn{})))
	require.Equal(t, []string{"Alice", "alice"}, room.Members())
}

func TestRoom_RemoveMemberIdentity(t *testing.T) {
	room := newTestRoom(t)
	alice := core.NewSession(room.ID(), "alice", &fakeConn{})
	require.NoError(t, room.AddMember(alice))

	removed, _ := room.RemoveMember(alice)
	require.True(t, removed)
	removed, _ = room.RemoveMember(alice)
	require.False(t, removed)

	// A stale leave must not evict a newer session holding the same name.
	next := core.NewSession(room.ID(), "alice", &fakeConn{})
	require.NoError(t, room.AddMember(next))
	removed, _ = room.RemoveMember(alice)
	require.False(t, removed)
	require.Equal(t, 1, room.MemberCount())
}

func TestRoom_RemoveMemberClearsTyping(t *testing.T) {
	room := newTestRoom(t)
	alice := core.NewSession(room.ID(), "alice", &fakeConn{})
	require.NoError(t, room.AddMember(alice))
	room.Typing().Set("alice", true, time.Now())

	_, wasTyping := room.RemoveMember(alice)
	require.True(t, wasTyping)
	require.Empty(t, room.Typing().Active(time.Now()))
}

func TestRoom_BroadcastExclude(t *testing.T) {
	room := newTestRoom(t)
	aliceConn, bobConn := &fakeConn{}, &fakeConn{}
	require.NoError(t, room.AddMember(core.NewSession(room.ID(), "alice", aliceConn)))
	require.NoError(t, room.AddMember(core.NewSession(room.ID(), "bob", bobConn)))

	res := room.Broadcast([]byte(`{"type":"user_joined"}`), "bob")
	require.Equal(t, 1, res.SentTo)
	require.Empty(t, res.Dropped)
	require.Equal(t, 1, aliceConn.frameCount())
	require.Zero(t, bobConn.frameCount())
}

func TestRoom_BroadcastIsolatesFailures(t *testing.T) {
	room := newTestRoom(t)
	aliceConn := &fakeConn{}
	bobConn := &fakeConn{fail: true}
	carolConn := &fakeConn{}
	require.NoError(t, room.AddMember(core.NewSession(room.ID(), "alice", aliceConn)))
	bob := core.NewSession(room.ID(), "bob", bobConn)
	require.NoError(t, room.AddMember(bob))
	require.NoError(t, room.AddMember(core.NewSession(room.ID(), "carol", carolConn)))

	res := room.Broadcast([]byte(`{"type":"message"}`), "")
	require.Equal(t, 2, res.SentTo)
	require.Len(t, res.Dropped, 1)
	require.Same(t, bob, res.Dropped[0])

	// Once removed, the failed recipient is out of subsequent broadcasts.
	room.RemoveMember(bob)
	res = room.Broadcast([]byte(`{"type":"message"}`), "")
	require.Equal(t, 2, res.SentTo)
	require.Empty(t, res.Dropped)
}

func TestRoom_DepartedMemberNeverReceives(t *testing.T) {
	room := newTestRoom(t)
	aliceConn, bobConn := &fakeConn{}, &fakeConn{}
	require.NoError(t, room.AddMember(core.NewSession(room.ID(), "alice", aliceConn)))
	bob := core.NewSession(room.ID(), "bob", bobConn)
	require.NoError(t, room.AddMember(bob))

	room.RemoveMember(bob)
	room.Broadcast([]byte(`{"type":"message"}`), "")
	require.Zero(t, bobConn.frameCount())
	require.Equal(t, 1, aliceConn.frameCount())
}
