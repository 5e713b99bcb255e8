package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CHAT_TOKEN_SECRET", "s3cret")

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.APIListenAddr)
	require.Equal(t, ":8888", cfg.WSListenAddr)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 24*time.Hour, cfg.TokenTTL)
	require.Equal(t, int64(5<<20), cfg.UploadMaxBytes)
	require.Equal(t, 3*time.Second, cfg.TypingWindow)
	require.Equal(t, 64, cfg.SendQueueSize)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("CHAT_TOKEN_SECRET", "s3cret")
	t.Setenv("CHAT_API_LISTEN_ADDR", ":9000")
	t.Setenv("CHAT_LOG_LEVEL", "info")

	cfg, err := Load([]string{"-l", "warn", "--send-queue-size", "8"}, "")
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.APIListenAddr)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, 8, cfg.SendQueueSize)
}

func TestLoad_EnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("CHAT_TOKEN_SECRET=fromfile\nCHAT_WS_LISTEN_ADDR=:7777\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("CHAT_TOKEN_SECRET")
		_ = os.Unsetenv("CHAT_WS_LISTEN_ADDR")
	})

	cfg, err := Load(nil, envFile)
	require.NoError(t, err)
	require.Equal(t, "fromfile", cfg.TokenSecret)
	require.Equal(t, ":7777", cfg.WSListenAddr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{
			name: "missing secret",
			env:  map[string]string{"CHAT_TOKEN_SECRET": ""},
		},
		{
			name: "bad log level",
			env:  map[string]string{"CHAT_TOKEN_SECRET": "x"},
			args: []string{"--log-level", "loud"},
		},
		{
			name: "zero queue",
			env:  map[string]string{"CHAT_TOKEN_SECRET": "x", "CHAT_SEND_QUEUE_SIZE": "0"},
		},
		{
			name: "unknown flag",
			env:  map[string]string{"CHAT_TOKEN_SECRET": "x"},
			args: []string{"--nope"},
		},
		{
			name: "bad duration",
			env:  map[string]string{"CHAT_TOKEN_SECRET": "x", "CHAT_TOKEN_TTL": "forever"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(tt.args, "")
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}
