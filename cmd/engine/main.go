// Package main is the entry point of the LearnHub enrollment engine.
//
// The process loads the course catalog and the signed-in learner's records,
// serves the HTTP API and runs periodic catalog refreshes until it receives
// SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/learnhub/learnhub-engine/config"
	"github.com/learnhub/learnhub-engine/internal/application/engine"
	"github.com/learnhub/learnhub-engine/internal/application/eventhandler"
	"github.com/learnhub/learnhub-engine/internal/domain/shared"
	"github.com/learnhub/learnhub-engine/internal/infrastructure/external/directory"
	"github.com/learnhub/learnhub-engine/internal/infrastructure/messaging"
	"github.com/learnhub/learnhub-engine/internal/infrastructure/persistence/postgres"
	"github.com/learnhub/learnhub-engine/internal/infrastructure/persistence/redis"
	"github.com/learnhub/learnhub-engine/internal/infrastructure/scheduler"
	"github.com/learnhub/learnhub-engine/internal/infrastructure/scheduler/jobs"
	httpapi "github.com/learnhub/learnhub-engine/internal/interface/http"
	"github.com/learnhub/learnhub-engine/internal/interface/http/handlers"
	"github.com/learnhub/learnhub-engine/pkg/logger"
	"github.com/learnhub/learnhub-engine/pkg/retry"
)

// eventBus is what both bus implementations offer.
type eventBus interface {
	shared.EventBus
	Metrics() *messaging.EventBusMetrics
	Drain()
	Close() error
}

// staticIdentity pins the learner when no session store is configured.
type staticIdentity string

func (s staticIdentity) CurrentUser(context.Context) (string, bool, error) {
	return string(s), s != "", nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("failed to read .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	flags := cfg.Features

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting LearnHub engine",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"directory", cfg.Directory.Source,
		"events", cfg.Events.Backend,
	)

	onRetry := func(attempt int, err error, delay time.Duration) {
		log.Warn("dependency not ready, retrying", "attempt", attempt, "delay", delay, "error", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRESQL
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = int32(cfg.Database.MaxConns)
	pgCfg.MinConns = int32(cfg.Database.MinConns)
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	pgCfg.ConnectTimeout = cfg.Database.ConnectTimeout

	dbConn, err := retry.DoWithData(ctx, retry.StartupRetrier(onRetry), func(ctx context.Context) (*postgres.Connection, error) {
		return postgres.NewConnection(ctx, pgCfg, log)
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()
	log.Info("database connection established")

	enrollmentRepo := postgres.NewEnrollmentRepository(dbConn)
	paymentRepo := postgres.NewPaymentRepository(dbConn)
	certificateRepo := postgres.NewCertificateRepository(dbConn)
	achievementRepo := postgres.NewAchievementRepository(dbConn)
	courseRepo := postgres.NewCourseRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var cache *redis.Cache
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

		cache, err = retry.DoWithData(ctx, retry.StartupRetrier(onRetry), func(context.Context) (*redis.Cache, error) {
			return redis.NewCache(redisCfg)
		})
		if err != nil {
			if cfg.Events.Backend == config.EventBusRedis {
				return fmt.Errorf("failed to connect to Redis: %w", err)
			}
			log.Warn("failed to connect to Redis, running without it", "error", err)
		} else {
			defer func() {
				log.Info("closing Redis connection...")
				_ = cache.Close()
			}()
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. COURSE DIRECTORY
	// ─────────────────────────────────────────────────────────────────────────
	var (
		dir          engine.CourseDirectory = courseRepo
		dirClient    *directory.Client
		cachedDir    *redis.CachedDirectory
		cacheInvalid jobs.CacheInvalidator
	)
	if cfg.Directory.Source == config.DirectorySourceHTTP {
		clientCfg := directory.DefaultClientConfig(cfg.Directory.BaseURL)
		clientCfg.APIKey = cfg.Directory.APIKey
		clientCfg.Timeout = cfg.Directory.Timeout
		clientCfg.PageSize = cfg.Directory.PageSize
		clientCfg.MaxPages = cfg.Directory.MaxPages
		clientCfg.Logger = log
		dirClient = directory.NewClient(clientCfg)
		dir = dirClient
	}
	if cache != nil && flags.Enabled(config.FeatureDirectoryCache) {
		cachedDir = redis.NewCachedDirectory(dir, cache, cfg.Directory.CacheTTL, cfg.Directory.StaleCacheTTL, log)
		dir = cachedDir
		cacheInvalid = cachedDir
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.WorkerPoolSize = cfg.Events.Workers
	busCfg.Logger = log
	busCfg.Middlewares = []messaging.Middleware{
		messaging.LoggingMiddleware(log),
		messaging.TimeoutMiddleware(cfg.Engine.AchievementTimeout + time.Second),
	}

	var bus eventBus
	useRedisBus := cfg.Events.Backend == config.EventBusRedis || flags.Enabled(config.FeatureRedisEvents)
	if useRedisBus && cache != nil {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         messaging.NewGoRedisClient(cache.Client()),
			ChannelName:    cfg.Events.Channel,
			LocalBusConfig: busCfg,
			Logger:         log,
		})
		if err != nil {
			return fmt.Errorf("failed to start Redis event bus: %w", err)
		}
		bus = redisBus
	} else {
		if useRedisBus {
			log.Warn("Redis events requested without Redis, using in-memory bus")
		}
		bus = messaging.NewInMemoryEventBus(busCfg)
	}
	defer func() {
		log.Info("closing event bus...")
		_ = bus.Close()
	}()

	if flags.Enabled(config.FeatureAchievements) {
		milestones := eventhandler.NewOnLearningMilestoneHandler(achievementRepo, log, eventhandler.MilestoneConfig{
			RecordTimeout: cfg.Engine.AchievementTimeout,
			Allow:         flags.Gate(config.FeatureAchievements),
		})
		if err := milestones.Register(bus); err != nil {
			return fmt.Errorf("failed to register milestone handler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ENGINE
	// ─────────────────────────────────────────────────────────────────────────
	deps := engine.Deps{
		Directory:    dir,
		Enrollments:  enrollmentRepo,
		Payments:     paymentRepo,
		Certificates: certificateRepo,
		Moderation:   courseRepo,
		Events:       bus,
		Logger:       log,
	}

	var withSession func(ctx context.Context, sessionID string) context.Context
	switch {
	case cache != nil && flags.Enabled(config.FeatureSessionIdentity):
		deps.Identity = redis.NewSessionIdentity(cache)
		withSession = redis.WithSessionID
	case cfg.Identity.UserID != "":
		deps.Identity = staticIdentity(cfg.Identity.UserID)
	}
	if cache != nil && flags.Enabled(config.FeatureSharedSequence) {
		deps.Sequence = redis.NewCertificateSequence(cache, cfg.Engine.SequenceName)
	}

	eng, err := engine.New(engine.Config{
		CertificatePrefix: cfg.Engine.CertificatePrefix,
		CertificateGrade:  cfg.Engine.CertificateGrade,
		BackgroundTimeout: cfg.Engine.BackgroundTimeout,
	}, deps)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer func() {
		log.Info("waiting for background writes...")
		eng.Close()
	}()

	startupSession := func(ctx context.Context) context.Context {
		if withSession == nil {
			return ctx
		}
		return withSession(ctx, cfg.Identity.SessionID)
	}

	eng.Load(startupSession(ctx))
	log.Info("engine loaded",
		"courses", len(eng.Courses()),
		"user_id", eng.CurrentUserID(),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		schedCfg := scheduler.DefaultSchedulerConfig()
		schedCfg.Logger = log
		schedCfg.JobTimeout = cfg.Scheduler.JobTimeout
		sched = scheduler.NewScheduler(schedCfg)

		var refreshSchedule scheduler.Schedule = scheduler.Every(cfg.Scheduler.CatalogRefreshInterval)
		if spec := cfg.Scheduler.CatalogRefreshCron; spec != "" {
			if refreshSchedule, err = scheduler.Cron(spec); err != nil {
				return err
			}
		}
		refresh := jobs.NewCatalogRefreshJob(eng, cacheInvalid, startupSession, log)
		if err := sched.Register(refresh, refreshSchedule); err != nil {
			return fmt.Errorf("failed to register %s: %w", refresh.Name(), err)
		}
		report := jobs.NewBusMetricsReportJob(bus, log)
		if err := sched.Register(report, scheduler.Every(cfg.Scheduler.MetricsReportInterval)); err != nil {
			return fmt.Errorf("failed to register %s: %w", report.Name(), err)
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			log.Info("stopping scheduler...")
			_ = sched.Stop()
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP API
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("postgres", handlers.NewPingCheck(dbConn))
	health.AddCheck("engine", handlers.NewReadyCheck(eng))
	if cache != nil {
		health.AddCheck("redis", handlers.NewPingCheck(cache))
	}
	if dirClient != nil {
		health.AddCheck("directory", handlers.NewProbeCheck(dirClient))
	}

	httpCfg := httpapi.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpCfg.SessionHeader = cfg.HTTP.SessionHeader
	httpCfg.DisableCheckout = !flags.Enabled(config.FeatureCheckoutEndpoint)
	if flags.Enabled(config.FeatureModerationAPI) {
		httpCfg.AdminAPIKeys = cfg.HTTP.AdminAPIKeys
	}
	if cfg.HTTP.RateLimitPerMinute > 0 {
		rl := handlers.DefaultRateLimitConfig()
		rl.RequestsPerMinute = cfg.HTTP.RateLimitPerMinute
		rl.BurstSize = cfg.HTTP.RateLimitBurst
		httpCfg.RateLimit = &rl
	}

	server := httpapi.NewServer(httpCfg, httpapi.Dependencies{
		Engine:        eng,
		Achievements:  achievementRepo,
		EventBus:      bus,
		HealthChecker: health,
		Logger: logger.New(logger.Options{
			Output:    os.Stdout,
			Level:     logger.ParseLevel(cfg.Observability.LogLevel),
			AddCaller: cfg.App.Debug,
		}),
		WithSession: withSession,
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", httpCfg.Address())
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("LearnHub engine is running")

	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	}
	bus.Drain()

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger configures slog from the observability settings.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseSlogLevel(cfg.Observability.LogLevel)}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Observability.LogFormat, "json") || cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler).With("service", cfg.App.Name)
	slog.SetDefault(log)
	return log
}

func parseSlogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
