package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/buzon/internal/api"
	"github.com/eldtechnologies/buzon/internal/api/middleware"
	"github.com/eldtechnologies/buzon/internal/config"
	"github.com/eldtechnologies/buzon/internal/handlers"
	"github.com/eldtechnologies/buzon/internal/mailbox"
	"github.com/eldtechnologies/buzon/internal/models"
	"github.com/eldtechnologies/buzon/internal/presence"
	"github.com/eldtechnologies/buzon/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()
	instance := uuid.NewString()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Str("instance", instance).
			Logger()
	}

	ctx := context.Background()

	pair, err := models.NewPair(cfg.ParticipantA, cfg.ParticipantB)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid participants")
	}
	persistPolicy, err := mailbox.ParsePersistencePolicy(cfg.PersistencePolicy)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid PERSISTENCE_POLICY")
	}
	ackPolicy, err := presence.ParseAckPolicy(cfg.AckPolicy)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid ACK_POLICY")
	}

	checks := make(map[string]handlers.Pinger)

	// Initialize Redis (rate limiting, and the snapshot store when selected)
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		checks["redis"] = redisStore
		logger.Info().Msg("connected to Redis")
	}

	// Initialize snapshot store
	snapshots, err := store.Open(ctx, store.Config{
		Backend:     cfg.StoreBackend,
		StateFile:   cfg.StateFile,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
		Redis:       redisStore,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("snapshot store failed")
	}
	defer snapshots.Close()
	checks["store"] = snapshots
	logger.Info().Str("backend", cfg.StoreBackend).Msg("snapshot store ready")

	mb, err := mailbox.New(ctx, pair, snapshots,
		mailbox.WithPolicy(persistPolicy),
		mailbox.WithLogger(logger.With().Str("component", "mailbox").Logger()),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("mailbox restore failed")
	}

	tracker := presence.New(pair, mb,
		presence.WithLivenessWindow(cfg.LivenessWindow),
		presence.WithAckPolicy(ackPolicy),
		presence.WithSeedFromSlots(cfg.SeedWatermarks),
		presence.WithLogger(logger.With().Str("component", "presence").Logger()),
	)

	var limiter *middleware.RateLimiter
	if redisStore != nil {
		limiter = middleware.NewRateLimiter(redisStore.Client(), logger, middleware.RateLimiterConfig{
			Whitelist:        cfg.RateLimitWhitelist,
			AutoBlockEnabled: cfg.RateLimitAutoBlock,
		})
	} else {
		logger.Warn().Msg("REDIS_URL not set, rate limiting disabled")
	}

	// Create router
	h := handlers.NewHandler(mb, tracker, checks, logger, instance)
	router := api.NewRouter(logger, h, limiter)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("participants", string(pair.A)+","+string(pair.B)).
			Int64("next_message_id", mb.NextMessageID()).
			Dur("liveness_window", cfg.LivenessWindow).
			Str("persistence", persistPolicy.String()).
			Str("ack_policy", ackPolicy.String()).
			Msg("starting buzon server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
