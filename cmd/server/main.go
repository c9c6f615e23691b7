package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/brojonat/blinks/service/auth"
	"github.com/brojonat/blinks/service/config"
	"github.com/brojonat/blinks/service/db"
	"github.com/brojonat/blinks/service/events"
	"github.com/brojonat/blinks/service/metrics"
	"github.com/brojonat/blinks/service/server"
	"github.com/brojonat/blinks/service/solana"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"cluster", cfg.SolanaCluster,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DBAutoMigrate {
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("database migrations applied")
	}

	dbPool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("connected to database")

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)
	store := db.NewStore(dbPool).WithMetrics(m)

	// Nonce replay guard (optional)
	var nonces auth.NonceGuard
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("failed to ping redis", "error", err)
			os.Exit(1)
		}
		nonces = auth.NewRedisNonceGuard(rdb, cfg.NonceTTL)
		logger.Info("nonce replay guard enabled", "ttl", cfg.NonceTTL)
	} else {
		logger.Warn("REDIS_URL not set, signed challenges may be replayed")
	}

	// Event publishing (optional)
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATSURL != "" {
		p, err := events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		publisher = p
		logger.Info("publishing events to NATS", "url", cfg.NATSURL)
	}
	defer publisher.Close()

	// Note: For premium RPC endpoints, include API key in the URL
	solanaClient := solana.NewClient(solana.NewRPCClient(cfg.SolanaRPCURL), cfg.SolanaCluster, m, logger)
	logger.Info("initialized solana RPC client", "url", cfg.SolanaRPCURL)

	tokens := auth.NewTokenIssuer([]byte(cfg.SessionSecret), cfg.SessionTTL)
	authn := auth.NewAuthenticator(store, tokens, nonces, publisher, m, logger)

	httpServer, err := server.New(cfg, store, authn, solanaClient, publisher, m, logger)
	if err != nil {
		logger.Error("failed to initialize server", "error", err)
		os.Exit(1)
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level and format.
func setupLogger(levelStr, format string) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
