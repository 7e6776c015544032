package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avlasov/Parley/internal/core"
)

func TestTypingSet_TTLExpiry(t *testing.T) {
	ts := core.NewTypingSet(2 * time.Second)
	base := time.Now()

	require.True(t, ts.Set("alice", true, base))
	require.Equal(t, []string{"alice"}, ts.Active(base.Add(time.Second)))

	// Not refreshed for the full TTL: gone from the next read.
	require.Empty(t, ts.Active(base.Add(2*time.Second)))
}

func TestTypingSet_RefreshExtendsDeadline(t *testing.T) {
	ts := core.NewTypingSet(2 * time.Second)
	base := time.Now()

	require.True(t, ts.Set("alice", true, base))
	require.False(t, ts.Set("alice", true, base.Add(time.Second)))
	require.Equal(t, []string{"alice"}, ts.Active(base.Add(2500*time.Millisecond)))
}

func TestTypingSet_ExplicitStop(t *testing.T) {
	ts := core.NewTypingSet(2 * time.Second)
	base := time.Now()

	ts.Set("alice", true, base)
	require.True(t, ts.Set("alice", false, base))
	require.Empty(t, ts.Active(base))

	// Stopping an absent user changes nothing.
	require.False(t, ts.Set("alice", false, base))
}

func TestTypingSet_SetReportsImplicitExpiry(t *testing.T) {
	ts := core.NewTypingSet(2 * time.Second)
	base := time.Now()

	ts.Set("alice", true, base)
	// Refresh for bob after alice expired: the set changed even though bob
	// is a plain insert.
	require.True(t, ts.Set("bob", true, base.Add(3*time.Second)))
	require.Equal(t, []string{"bob"}, ts.Active(base.Add(3*time.Second)))
}

func TestTypingSet_Remove(t *testing.T) {
	ts := core.NewTypingSet(2 * time.Second)
	base := time.Now()

	ts.Set("alice", true, base)
	require.True(t, ts.Remove("alice"))
	require.False(t, ts.Remove("alice"))
	require.Empty(t, ts.Active(base))
}

func TestTypingSet_ActiveSorted(t *testing.T) {
	ts := core.NewTypingSet(2 * time.Second)
	base := time.Now()

	ts.Set("carol", true, base)
	ts.Set("alice", true, base)
	ts.Set("bob", true, base)
	require.Equal(t, []string{"alice", "bob", "carol"}, ts.Active(base))
}
