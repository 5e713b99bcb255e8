package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/adwski/groupchat/backend/auth"
	"github.com/adwski/groupchat/backend/config"
	"github.com/adwski/groupchat/backend/metrics"
	httpServer "github.com/adwski/groupchat/backend/server/http"
	websocketServer "github.com/adwski/groupchat/backend/server/websocket"
	"github.com/adwski/groupchat/backend/service"
	sw "github.com/adwski/groupchat/backend/switch"
	"github.com/adwski/groupchat/backend/typing"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(os.Args[1:], ".env")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse loglevel")
	}
	logger = logger.Level(lvl)

	issuer, err := auth.NewIssuer(auth.Config{
		Secret: cfg.TokenSecret,
		TTL:    cfg.TokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create session issuer")
	}

	m := metrics.New()
	notifier := typing.NewNotifier(typing.Config{
		Logger:   &logger,
		Window:   cfg.TypingWindow,
		OnChange: m.SetTyping,
	})
	defer notifier.Stop()

	svc := service.NewService(service.Config{
		Switch: sw.NewSwitch(sw.Config{
			Logger:  &logger,
			Dropped: m,
		}),
		Typing:  notifier,
		Metrics: m,
		Logger:  &logger,
	})
	httpSrv := httpServer.NewServer(httpServer.Config{
		Logger:         &logger,
		Sessions:       issuer,
		ChatService:    svc,
		Metrics:        m.Handler(),
		ListenAddr:     cfg.APIListenAddr,
		StaticDir:      cfg.StaticDir,
		UploadDir:      cfg.UploadDir,
		UploadMaxBytes: cfg.UploadMaxBytes,
	})
	wsSrv := websocketServer.NewServer(websocketServer.Config{
		Logger:         &logger,
		ChatService:    svc,
		Authenticator:  issuer,
		ListenAddr:     cfg.WSListenAddr,
		SendQueueSize:  cfg.SendQueueSize,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		wg   = &sync.WaitGroup{}
		errc = make(chan error, 2)
	)
	wg.Add(2)
	go httpSrv.Run(ctx, wg, errc)
	go wsSrv.Run(ctx, wg, errc)

	select {
	case err = <-errc:
		logger.Error().Err(err).Msg("unexpected server error, shutting down")
	case <-ctx.Done():
		logger.Warn().Msg("interrupted")
	}
	cancel()
	wg.Wait()
}
