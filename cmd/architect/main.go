// Command architect is the backend for the component architect studio:
// per-user state persistence, session bookkeeping, and the LLM-backed
// extraction/chat proxy.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/p-blackswan/architect-studio/internal/api"
	"github.com/p-blackswan/architect-studio/internal/appstate"
	"github.com/p-blackswan/architect-studio/internal/chat"
	"github.com/p-blackswan/architect-studio/internal/config"
	"github.com/p-blackswan/architect-studio/internal/extract"
	"github.com/p-blackswan/architect-studio/internal/health"
	"github.com/p-blackswan/architect-studio/internal/llm"
	"github.com/p-blackswan/architect-studio/internal/metrics"
	"github.com/p-blackswan/architect-studio/internal/store"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Str("db_path", cfg.DBPath).
		Bool("anthropic_enabled", cfg.AnthropicEnabled()).
		Bool("auth_enabled", cfg.AuthEnabled()).
		Msg("starting architect backend")

	// Durable storage
	st, err := store.New(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	controller := appstate.NewController(st, logger)

	// Health checker
	checker := health.NewChecker(logger)
	checker.Register("store", func(ctx context.Context) health.Status {
		if err := st.DB().PingContext(ctx); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	// Extraction and chat need an LLM; the server runs without them in
	// persistence-only mode.
	var gateway *extract.Gateway
	var chatAgent *chat.Agent
	if cfg.AnthropicEnabled() {
		provider := llm.NewAnthropicProvider(
			cfg.AnthropicAPIKey,
			llm.WithModel(cfg.AnthropicModel),
		)
		gateway = extract.NewGateway(provider, cfg.ExtractCacheSize, logger)
		chatAgent = chat.NewAgent(provider, st, logger)
		logger.Info().Str("model", provider.ModelID()).Msg("LLM provider initialized")
	} else {
		logger.Info().Msg("Anthropic not configured — extraction and chat disabled")
	}

	m := metrics.New()

	authCfg := api.AuthConfig{
		Secret:     cfg.AuthSecret,
		DemoUserID: cfg.DemoUserID,
	}
	handlers := api.NewHandlers(controller, gateway, chatAgent, m, authCfg, logger)
	server := api.NewServer(api.ServerConfig{
		ListenAddr:  cfg.ListenAddr,
		Auth:        authCfg,
		RateLimit:   api.RateLimitConfig{RPS: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
		CORSOrigins: cfg.CORSOrigins,
	}, handlers, checker, m, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
