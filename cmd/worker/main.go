// Package main is the entry point for the peer-help marketplace background
// worker.
//
// The worker owns the periodic jobs that keep the read side fresh:
//   - refreshing aggregate marketplace stats from postgres into Redis
//   - tailing the append-only event log and advancing the replay cursor
//
// It runs beside the API server against the same postgres and Redis
// instances and holds no ledger of its own.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/suilotion/peerhelp-hub/config"
	"github.com/suilotion/peerhelp-hub/internal/domain/help"
	"github.com/suilotion/peerhelp-hub/internal/infrastructure/persistence/postgres"
	"github.com/suilotion/peerhelp-hub/internal/infrastructure/persistence/redis"
)

// replayCursorKey stores the worker's event log position in Redis.
const replayCursorKey = redis.PrefixStats + "replay_cursor"

// statsKey stores the aggregated marketplace stats in Redis.
const statsKey = redis.PrefixStats + "registry"

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

	if cfg.Database.Disabled || cfg.Database.URL == "" {
		return errors.New("worker requires postgres; set DATABASE_URL")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting peer-help hub worker",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRES
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
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

	// The worker also migrates so it can start before the API server.
	if cfg.Database.MigrateOnStart {
		log.Info("checking database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	eventStore := postgres.NewEventStore(dbConn)
	profileRepo := postgres.NewProfileRepository(dbConn)
	requestRepo := postgres.NewRequestRepository(dbConn)
	matchRepo := postgres.NewMatchRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional; stats refresh is skipped without it)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, stats refresh disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. WORKER LOOPS
	// ─────────────────────────────────────────────────────────────────────────
	if !cfg.Worker.Enabled {
		log.Warn("worker loops disabled by config, idling")
	}

	loopCtx, stopLoops := context.WithCancel(ctx)
	defer stopLoops()

	doneCh := make(chan struct{}, 2)

	if cfg.Worker.Enabled {
		w := &worker{
			cfg:         cfg.Worker,
			log:         log,
			eventStore:  eventStore,
			profileRepo: profileRepo,
			requestRepo: requestRepo,
			matchRepo:   matchRepo,
			cache:       redisCache,
		}

		go func() {
			defer func() { doneCh <- struct{}{} }()
			w.statsLoop(loopCtx)
		}()
		go func() {
			defer func() { doneCh <- struct{}{} }()
			w.replayLoop(loopCtx)
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("peer-help hub worker is running",
		"stats_interval", cfg.Worker.StatsRefreshInterval.String(),
		"replay_poll_interval", cfg.Worker.ReplayPollInterval.String(),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	stopLoops()

	if cfg.Worker.Enabled {
		shutdownTimer := time.NewTimer(cfg.App.ShutdownTimeout)
		defer shutdownTimer.Stop()
		for i := 0; i < 2; i++ {
			select {
			case <-doneCh:
			case <-shutdownTimer.C:
				log.Warn("worker loops did not stop in time")
				return nil
			}
		}
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// WORKER
// ══════════════════════════════════════════════════════════════════════════════

// worker bundles the periodic jobs and their dependencies.
type worker struct {
	cfg         config.WorkerConfig
	log         *slog.Logger
	eventStore  *postgres.EventStore
	profileRepo *postgres.ProfileRepository
	requestRepo *postgres.RequestRepository
	matchRepo   *postgres.MatchRepository
	cache       *redis.Cache
}

// registryStats is the aggregate snapshot cached for the stats endpoint.
type registryStats struct {
	TotalProfiles   int       `json:"total_profiles"`
	OpenRequests    int       `json:"open_requests"`
	MatchedRequests int       `json:"matched_requests"`
	TotalRequests   int       `json:"total_requests"`
	ConfirmedHelps  int       `json:"confirmed_helps"`
	RejectedHelps   int       `json:"rejected_helps"`
	RefreshedAt     time.Time `json:"refreshed_at"`
}

// statsLoop periodically aggregates marketplace stats from postgres into the
// Redis stats key.
func (w *worker) statsLoop(ctx context.Context) {
	if w.cache == nil {
		w.log.Info("stats loop disabled, no Redis")
		return
	}

	ticker := time.NewTicker(w.cfg.StatsRefreshInterval)
	defer ticker.Stop()

	// Refresh once at startup so the cache is warm immediately.
	w.refreshStats(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.refreshStats(ctx)
		}
	}
}

// refreshStats performs one stats aggregation pass.
func (w *worker) refreshStats(ctx context.Context) {
	stats := registryStats{RefreshedAt: time.Now().UTC()}

	profiles, err := w.profileRepo.Count(ctx)
	if err != nil {
		w.log.Warn("failed to count profiles", "error", err)
		return
	}
	stats.TotalProfiles = profiles

	byStatus, err := w.requestRepo.CountByStatus(ctx)
	if err != nil {
		w.log.Warn("failed to count requests", "error", err)
		return
	}
	stats.OpenRequests = byStatus[help.RequestStatusOpen]
	stats.MatchedRequests = byStatus[help.RequestStatusMatched]
	for _, n := range byStatus {
		stats.TotalRequests += n
	}

	confirmed, rejected, err := w.matchRepo.CountCompleted(ctx)
	if err != nil {
		w.log.Warn("failed to count completions", "error", err)
		return
	}
	stats.ConfirmedHelps = confirmed
	stats.RejectedHelps = rejected

	if err := w.cache.Set(ctx, statsKey, stats, redis.TTLStatsCache); err != nil {
		w.log.Warn("failed to cache stats", "error", err)
		return
	}

	w.log.Debug("registry stats refreshed",
		"profiles", stats.TotalProfiles,
		"open_requests", stats.OpenRequests,
		"confirmed_helps", stats.ConfirmedHelps,
	)
}

// replayLoop tails the append-only event log and advances the replay cursor.
// The cursor survives restarts in Redis; without Redis it starts from the
// log's tail so old events are not reprocessed on every boot.
func (w *worker) replayLoop(ctx context.Context) {
	cursor := w.loadCursor(ctx)

	ticker := time.NewTicker(w.cfg.ReplayPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		envelopes, err := w.eventStore.LoadSince(ctx, cursor, w.cfg.ReplayBatchSize)
		if err != nil {
			w.log.Warn("failed to load events", "error", err, "cursor", cursor)
			continue
		}
		if len(envelopes) == 0 {
			continue
		}

		for _, env := range envelopes {
			w.log.Debug("event replayed",
				"sequence", env.Sequence,
				"type", string(env.Type),
				"aggregate_id", env.AggregateID,
			)
			cursor = env.Sequence
		}

		w.log.Info("event log advanced",
			"events", len(envelopes),
			"cursor", cursor,
		)

		w.saveCursor(ctx, cursor)
	}
}

// loadCursor restores the replay cursor, falling back to the log tail.
func (w *worker) loadCursor(ctx context.Context) int64 {
	if w.cache != nil {
		var cursor int64
		if err := w.cache.Get(ctx, replayCursorKey, &cursor); err == nil {
			w.log.Info("replay cursor restored", "cursor", cursor)
			return cursor
		}
	}

	last, err := w.eventStore.LastSequence(ctx)
	if err != nil {
		w.log.Warn("failed to read last sequence, starting from zero", "error", err)
		return 0
	}

	w.log.Info("replay cursor initialized from log tail", "cursor", last)
	return last
}

// saveCursor persists the replay cursor, best effort.
func (w *worker) saveCursor(ctx context.Context, cursor int64) {
	if w.cache == nil {
		return
	}
	if err := w.cache.Set(ctx, replayCursorKey, cursor, 0); err != nil {
		w.log.Warn("failed to persist replay cursor", "error", err)
	}
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
