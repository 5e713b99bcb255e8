// Package config resolves service settings. Environment variables (optionally
// from a .env file) provide defaults which command line flags override.
package config

import (
	"errors"
	"time"

	"github.com/adwski/groupchat/backend/model"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
)

const envPrefix = "CHAT"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	APIListenAddr  string        `envconfig:"API_LISTEN_ADDR" default:":8080" validate:"required"`
	WSListenAddr   string        `envconfig:"WS_LISTEN_ADDR" default:":8888" validate:"required"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"debug" validate:"oneof=trace debug info warn error"`
	TokenSecret    string        `envconfig:"TOKEN_SECRET" validate:"required"`
	TokenTTL       time.Duration `envconfig:"TOKEN_TTL" default:"24h" validate:"gt=0"`
	StaticDir      string        `envconfig:"STATIC_DIR" default:"./public"`
	UploadDir      string        `envconfig:"UPLOAD_DIR" default:"./public/uploads" validate:"required"`
	UploadMaxBytes int64         `envconfig:"UPLOAD_MAX_BYTES" default:"5242880" validate:"gt=0"`
	SendQueueSize  int           `envconfig:"SEND_QUEUE_SIZE" default:"64" validate:"gt=0"`
	TypingWindow   time.Duration `envconfig:"TYPING_WINDOW" default:"3s" validate:"gt=0"`
	AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS"`
}

// Load reads the environment (after an optional envFile) and then parses args.
func Load(args []string, envFile string) (*Config, error) {
	if envFile != "" {
		// a missing .env file is fine
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, errors.Join(ErrInvalid, err)
	}

	fs := pflag.NewFlagSet("main", pflag.ContinueOnError)
	fs.StringVarP(&cfg.APIListenAddr, "api-listen-addr", "a", cfg.APIListenAddr, "api listen address")
	fs.StringVarP(&cfg.WSListenAddr, "ws-listen-addr", "w", cfg.WSListenAddr, "websocket listen address")
	fs.StringVarP(&cfg.LogLevel, "log-level", "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "session token signing secret")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "session token lifetime")
	fs.StringVar(&cfg.StaticDir, "static-dir", cfg.StaticDir, "directory with client assets, empty to disable")
	fs.StringVar(&cfg.UploadDir, "upload-dir", cfg.UploadDir, "directory for uploaded files")
	fs.Int64Var(&cfg.UploadMaxBytes, "upload-max-bytes", cfg.UploadMaxBytes, "upload size limit")
	fs.IntVar(&cfg.SendQueueSize, "send-queue-size", cfg.SendQueueSize, "per-connection outbound queue size")
	fs.DurationVar(&cfg.TypingWindow, "typing-window", cfg.TypingWindow, "typing indicator expiry")
	fs.StringSliceVar(&cfg.AllowedOrigins, "allowed-origin", cfg.AllowedOrigins, "allowed websocket origins, empty allows any")
	if err := fs.Parse(args); err != nil {
		return nil, errors.Join(ErrInvalid, err)
	}

	if err := model.Validate(cfg); err != nil {
		return nil, errors.Join(ErrInvalid, err)
	}
	return cfg, nil
}
