package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIssuer_RoundTrip(t *testing.T) {
	is, err := NewIssuer(Config{Secret: "s3cret"})
	require.NoError(t, err)

	token, err := is.Issue("alice")
	require.NoError(t, err)

	identity, err := is.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "alice", identity)
}

func TestIssuer_Rejects(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	is, err := NewIssuer(Config{Secret: "s3cret", TTL: time.Hour, Now: clock})
	require.NoError(t, err)
	other, err := NewIssuer(Config{Secret: "other", Now: clock})
	require.NoError(t, err)

	token, err := is.Issue("alice")
	require.NoError(t, err)
	forged, err := other.Issue("alice")
	require.NoError(t, err)
	blank, err := is.Issue("")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		at    time.Time
	}{
		{name: "garbage", token: "not-a-token", at: now},
		{name: "wrong secret", token: forged, at: now},
		{name: "expired", token: token, at: now.Add(2 * time.Hour)},
		{name: "empty identity", token: blank, at: now},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now = tt.at
			_, err := is.Verify(tt.token)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewIssuer_NoSecret(t *testing.T) {
	_, err := NewIssuer(Config{})
	require.ErrorIs(t, err, ErrNoSecret)
}
