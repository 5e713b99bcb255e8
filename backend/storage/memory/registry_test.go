package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	require.True(t, r.Register("c1", "alice"))
	require.True(t, r.Register("c2", "bob"))

	// same identity from another connection is a no-op
	require.False(t, r.Register("c3", "alice"))
	// a bound connection cannot take a second identity
	require.False(t, r.Register("c1", "carol"))

	require.Equal(t, []string{"alice", "bob"}, r.Snapshot())

	id, ok := r.IdentityOf("c2")
	require.True(t, ok)
	require.Equal(t, "bob", id)

	_, ok = r.IdentityOf("c3")
	require.False(t, ok)

	conn, ok := r.ConnectionOf("alice")
	require.True(t, ok)
	require.Equal(t, "c1", conn)
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "alice")
	r.Register("c2", "bob")
	r.Register("c3", "carol")

	id, ok := r.Unregister("c2")
	require.True(t, ok)
	require.Equal(t, "bob", id)
	require.Equal(t, []string{"alice", "carol"}, r.Snapshot())

	_, ok = r.Unregister("c2")
	require.False(t, ok)

	// identity can come back from another connection and goes to the end
	require.True(t, r.Register("c4", "bob"))
	require.Equal(t, []string{"alice", "carol", "bob"}, r.Snapshot())
}

func TestRegistry_SnapshotIsCopy(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "alice")

	snap := r.Snapshot()
	snap[0] = "mallory"

	require.Equal(t, []string{"alice"}, r.Snapshot())
}

func TestRegistry_NoDuplicates(t *testing.T) {
	r := NewRegistry()
	ops := []struct {
		register bool
		conn     string
		identity string
	}{
		{true, "c1", "alice"},
		{true, "c2", "alice"},
		{true, "c2", "bob"},
		{false, "c1", ""},
		{true, "c3", "alice"},
		{true, "c1", "alice"},
		{false, "c3", ""},
		{true, "c4", "carol"},
	}
	live := map[string]string{}
	for _, op := range ops {
		if op.register {
			if r.Register(op.conn, op.identity) {
				live[op.conn] = op.identity
			}
		} else {
			r.Unregister(op.conn)
			delete(live, op.conn)
		}

		snap := r.Snapshot()
		seen := map[string]bool{}
		for _, id := range snap {
			require.False(t, seen[id], "duplicate identity %q", id)
			seen[id] = true
		}
		require.Len(t, snap, len(live))
		for _, id := range live {
			require.True(t, seen[id])
		}
	}
}
