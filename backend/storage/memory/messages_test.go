package memory

import (
	"testing"
	"time"

	"github.com/adwski/groupchat/backend/model"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

func frozenClock() func() time.Time {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestIDGenerator_SameTick(t *testing.T) {
	g := NewIDGenerator(frozenClock())

	seen := make(map[int64]bool)
	var prev int64
	for i := 0; i < 1000; i++ {
		id := g.Next()
		require.False(t, seen[id], "duplicate id %d", id)
		require.Greater(t, id, prev)
		seen[id] = true
		prev = id
	}
}

func TestIDGenerator_FollowsClock(t *testing.T) {
	ts := time.UnixMilli(1_700_000_000_000)
	g := NewIDGenerator(func() time.Time { return ts })

	require.Equal(t, int64(1_700_000_000_000), g.Next())
	require.Equal(t, int64(1_700_000_000_001), g.Next())

	ts = ts.Add(time.Second)
	require.Equal(t, int64(1_700_000_001_000), g.Next())

	// clock going backwards never produces an old id
	ts = ts.Add(-time.Hour)
	require.Equal(t, int64(1_700_000_001_001), g.Next())
}

func TestMessageStore_AppendOrder(t *testing.T) {
	ms := NewMessageStore(frozenClock())

	const n = 50
	for i := 0; i < n; i++ {
		ms.Append("alice", "hi", model.KindText, "")
	}

	all := ms.All()
	require.Len(t, all, n)
	for i := 1; i < n; i++ {
		require.Less(t, all[i-1].ID, all[i].ID, spew.Sdump(all[i-1], all[i]))
	}
}

func TestMessageStore_AppendFields(t *testing.T) {
	ms := NewMessageStore(frozenClock())

	text := ms.Append("alice", "hi", model.KindText, "")
	require.Equal(t, "alice", text.User)
	require.Nil(t, text.Filename)
	require.False(t, text.Timestamp.IsZero())

	img := ms.Append("alice", "/uploads/123.png", model.KindImage, "cat.png")
	all := ms.All()
	require.Equal(t, []model.Message{text, img}, all)
	require.Equal(t, "/uploads/123.png", all[1].Content)
	require.Equal(t, model.KindImage, all[1].Type)
	require.NotNil(t, all[1].Filename)
	require.Equal(t, "cat.png", *all[1].Filename)
}

func TestMessageStore_Delete(t *testing.T) {
	ms := NewMessageStore(frozenClock())
	m1 := ms.Append("alice", "one", model.KindText, "")
	m2 := ms.Append("bob", "two", model.KindText, "")
	m3 := ms.Append("alice", "three", model.KindText, "")

	tests := []struct {
		name     string
		id       int64
		identity string
		want     bool
		left     []model.Message
	}{
		{
			name:     "non-author",
			id:       m1.ID,
			identity: "bob",
			want:     false,
			left:     []model.Message{m1, m2, m3},
		},
		{
			name:     "unknown id",
			id:       42,
			identity: "alice",
			want:     false,
			left:     []model.Message{m1, m2, m3},
		},
		{
			name:     "author",
			id:       m2.ID,
			identity: "bob",
			want:     true,
			left:     []model.Message{m1, m3},
		},
		{
			name:     "already deleted",
			id:       m2.ID,
			identity: "bob",
			want:     false,
			left:     []model.Message{m1, m3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ms.Delete(tt.id, tt.identity))
			require.Equal(t, tt.left, ms.All())
		})
	}
}

func TestMessageStore_Get(t *testing.T) {
	ms := NewMessageStore(frozenClock())
	m := ms.Append("alice", "hi", model.KindText, "")

	got, ok := ms.Get(m.ID)
	require.True(t, ok)
	require.Equal(t, m, got)

	_, ok = ms.Get(m.ID + 1)
	require.False(t, ok)
}
