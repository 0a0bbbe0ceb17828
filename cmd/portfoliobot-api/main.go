package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bfscompany/portfoliobot/internal/api"
	"github.com/bfscompany/portfoliobot/internal/archive"
	"github.com/bfscompany/portfoliobot/internal/config"
	"github.com/bfscompany/portfoliobot/internal/engine"
	"github.com/bfscompany/portfoliobot/internal/events"
	"github.com/bfscompany/portfoliobot/internal/notify"
	"github.com/bfscompany/portfoliobot/internal/persona"
	"github.com/bfscompany/portfoliobot/internal/ratelimit"
	"github.com/bfscompany/portfoliobot/internal/session"
	"github.com/bfscompany/portfoliobot/internal/tools"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	logger := events.New(cfg.LogLevel)
	logger.EnableForwarding(cfg.LogForwardURL, cfg.LogForwardTimeout)

	// Persona documents are the one hard startup requirement.
	p, err := persona.Load(cfg.PersonaDir, cfg.PersonaName)
	if err != nil {
		logger.Fatal("persona_load_failed", "error", err.Error())
	}

	sessions := session.New(cfg.RedisURL, cfg.SessionTTL, logger)
	arch := archive.New(cfg.DatabaseURL, logger)
	defer arch.Close()

	notifier := notify.NewPushover(cfg.PushoverToken, cfg.PushoverUser, cfg.PushoverTimeout, logger)
	dispatcher := tools.NewDispatcher(notifier, logger)
	eng := engine.New(engine.Options{
		Model:      cfg.OpenAIModel,
		Timeout:    cfg.OpenAITimeout,
		MaxRetries: cfg.OpenAIMaxRetries,
	}, p, dispatcher, logger)
	limiter := ratelimit.New(cfg.RateLimitWindow, cfg.RateLimitMax, logger)

	server := api.NewServer(cfg, logger, p, sessions, arch, limiter, eng)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("api_server_failed", "error", err.Error())
		}
	case sig := <-stop:
		logger.Event("api_server_stopping", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			logger.Event("api_server_shutdown_error", "error", err.Error())
		}
	}
}
