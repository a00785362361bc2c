// Package main is the entry point for the peer-help marketplace API server.
//
// The server owns the authoritative in-memory ledger and exposes it over a
// REST API. Postgres keeps durable projections and the append-only event
// log; Redis keeps the hot profile cache and bridges events across
// instances. Both backends are optional in development.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/suilotion/peerhelp-hub/config"
	"github.com/suilotion/peerhelp-hub/internal/application/command"
	"github.com/suilotion/peerhelp-hub/internal/application/eventhandler"
	"github.com/suilotion/peerhelp-hub/internal/application/query"
	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
	"github.com/suilotion/peerhelp-hub/internal/infrastructure/external/intra"
	"github.com/suilotion/peerhelp-hub/internal/infrastructure/messaging"
	"github.com/suilotion/peerhelp-hub/internal/infrastructure/persistence/postgres"
	"github.com/suilotion/peerhelp-hub/internal/infrastructure/persistence/redis"
	httpserver "github.com/suilotion/peerhelp-hub/internal/interface/http"
	"github.com/suilotion/peerhelp-hub/internal/ledger"
	"github.com/suilotion/peerhelp-hub/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting peer-help hub server",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// The application command layer logs through pkg/logger.
	appLog := logger.Default()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. LEDGER
	// ─────────────────────────────────────────────────────────────────────────
	marketLedger := ledger.New()
	log.Info("ledger initialized")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. POSTGRES (projections + event log, optional)
	// ─────────────────────────────────────────────────────────────────────────
	var dbConn *postgres.Connection
	var eventStore *postgres.EventStore

	if !cfg.Database.Disabled && cfg.Database.URL != "" {
		log.Info("connecting to database...")
		dbConn, err = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			log.Info("closing database connection...")
			dbConn.Close()
		}()

		if err := dbConn.Ping(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		log.Info("database connection established")

		if cfg.Database.MigrateOnStart {
			log.Info("running database migrations...")
			migrator := postgres.NewMigrator(dbConn)
			if err := migrator.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info("database schema is up to date")
		}

		eventStore = postgres.NewEventStore(dbConn)
	} else {
		log.Warn("postgres disabled, running ledger-only (no durable projections)")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (profile cache + pub/sub, optional)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var profileCache *redis.ProfileCache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			profileCache = redis.NewProfileCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")

	localBusConfig := messaging.DefaultInMemoryEventBusConfig()
	localBusConfig.Logger = log
	localBusConfig.AsyncMode = cfg.EventBus.AsyncMode
	localBusConfig.WorkerPoolSize = cfg.EventBus.WorkerPoolSize

	var eventBus messaging.EventBus

	if cfg.EventBus.Distributed && redisCache != nil {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redis.NewPubSub(redisCache),
			ChannelName:    cfg.EventBus.ChannelName,
			LocalBusConfig: localBusConfig,
			Logger:         log,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis event bus: %w", err)
		}
		eventBus = redisBus
		log.Info("distributed event bus active", "channel", cfg.EventBus.ChannelName)
	} else {
		eventBus = messaging.NewInMemoryEventBus(localBusConfig)
	}
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("registering event handlers...")

	dispatcherConfig := messaging.DefaultDispatcherConfig(eventBus)
	dispatcherConfig.Logger = log
	dispatcher := messaging.NewDispatcher(dispatcherConfig)

	if dbConn != nil {
		projector := eventhandler.NewProjectionHandler(
			marketLedger,
			eventStore,
			postgres.NewProfileRepository(dbConn),
			postgres.NewBadgeRepository(dbConn),
			postgres.NewRequestRepository(dbConn),
			postgres.NewOfferRepository(dbConn),
			postgres.NewMatchRepository(dbConn),
			log,
		)
		if err := dispatcher.RegisterAll("projector", projector.Handle); err != nil {
			return fmt.Errorf("failed to register projector: %w", err)
		}
	}

	if profileCache != nil {
		rewardHandler := eventhandler.NewOnRewardClaimedHandler(
			marketLedger,
			profileCache,
			log,
			eventhandler.DefaultRewardClaimedConfig(),
		)
		if err := dispatcher.Register(shared.EventRewardClaimed, "reward-cache", rewardHandler.Handle); err != nil {
			return fmt.Errorf("failed to register reward handler: %w", err)
		}
		if err := dispatcher.Register(shared.EventBadgeMinted, "badge-cache", rewardHandler.Handle); err != nil {
			return fmt.Errorf("failed to register badge handler: %w", err)
		}
	}

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. EXTERNAL CLIENTS
	// ─────────────────────────────────────────────────────────────────────────
	var loginVerifier httpserver.LoginVerifier

	if cfg.Intra.VerifyLogins {
		log.Info("initializing Intra API client...")
		intraConfig := intra.DefaultClientConfig(cfg.Intra.ClientID, cfg.Intra.ClientSecret)
		intraConfig.BaseURL = cfg.Intra.BaseURL
		intraConfig.Timeout = cfg.Intra.RequestTimeout
		intraConfig.Logger = log
		loginVerifier = intra.NewClient(intraConfig)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	httpDeps := httpserver.Dependencies{
		CreateProfile:  command.NewCreateProfileHandler(marketLedger, eventBus, appLog),
		CreateRequest:  command.NewCreateRequestHandler(marketLedger, eventBus, appLog),
		VoteDifficulty: command.NewVoteDifficultyHandler(marketLedger, eventBus, appLog),
		CreateOffer:    command.NewCreateOfferHandler(marketLedger, eventBus, appLog),
		AcceptOffer:    command.NewAcceptOfferHandler(marketLedger, eventBus, appLog),
		CompleteHelp:   command.NewCompleteHelpHandler(marketLedger, eventBus, appLog),
		ClaimReward:    command.NewClaimRewardHandler(marketLedger, eventBus, appLog),

		GetProfile:       query.NewGetProfileHandler(marketLedger),
		GetRequest:       query.NewGetRequestHandler(marketLedger),
		ListOpenRequests: query.NewListOpenRequestsHandler(marketLedger),
		GetRegistryStats: query.NewGetRegistryStatsHandler(marketLedger),

		LoginVerifier: loginVerifier,
		HealthCheck:   healthCheck(dbConn, redisCache),
		Logger:        appLog,
	}

	if eventStore != nil {
		httpDeps.GetEventsSince = query.NewGetEventsSinceHandler(eventStore)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Addr = cfg.HTTP.Addr
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.AdminTokenHash = cfg.HTTP.AdminTokenHash

	server := httpserver.NewServer(httpConfig, httpDeps)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 11. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("peer-help hub server is running", "address", server.Address())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", "error", err)
		return err
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		return err
	}

	// Event bus, Redis, and postgres close via defers.

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger configures structured logging per the observability config.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Observability.LogLevel),
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

// parseLogLevel maps the configured level string to a slog level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// healthCheck builds the readiness probe over the wired backends.
func healthCheck(db *postgres.Connection, cache *redis.Cache) httpserver.HealthChecker {
	return func(ctx context.Context) error {
		if db != nil {
			if err := db.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
		}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}
}
