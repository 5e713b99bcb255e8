package memory

import (
	"testing"

	"github.com/adwski/groupchat/backend/model"
	"github.com/stretchr/testify/require"
)

func TestReceiptTracker_MarkReadIdempotent(t *testing.T) {
	rt := NewReceiptTracker()

	first := rt.MarkRead(1, "bob")
	second := rt.MarkRead(1, "bob")

	require.Equal(t, model.Receipt{MessageID: 1, ReadBy: []string{"bob"}}, first)
	require.Equal(t, first, second)

	rt.MarkRead(1, "alice")
	require.Equal(t, []string{"alice", "bob"}, rt.Readers(1))
}

func TestReceiptTracker_RemoveIdentity(t *testing.T) {
	rt := NewReceiptTracker()
	rt.MarkRead(3, "bob")
	rt.MarkRead(1, "bob")
	rt.MarkRead(1, "carol")
	rt.MarkRead(2, "carol")

	updated := rt.RemoveIdentity("bob")
	require.Equal(t, []model.Receipt{
		{MessageID: 1, ReadBy: []string{"carol"}},
		{MessageID: 3, ReadBy: []string{}},
	}, updated)

	require.Empty(t, rt.RemoveIdentity("bob"))
	require.Equal(t, []string{"carol"}, rt.Readers(2))
}

func TestReceiptTracker_Forget(t *testing.T) {
	rt := NewReceiptTracker()
	rt.MarkRead(1, "bob")
	rt.Forget(1)

	require.Empty(t, rt.Readers(1))
	require.Empty(t, rt.RemoveIdentity("bob"))
}
