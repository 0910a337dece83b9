package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"cashup/internal/audit"
	"cashup/internal/auth"
	"cashup/internal/notify"
	"cashup/internal/observability/logging"
	"cashup/internal/observability/metrics"
	"cashup/internal/reconciliation/application"
	"cashup/internal/reconciliation/infrastructure/memory"
	"cashup/internal/reconciliation/infrastructure/postgres"
	"cashup/internal/reconciliation/infrastructure/redisstore"
	reconciliationhttp "cashup/internal/reconciliation/interfaces/http"
	"cashup/internal/reconciliation/interfaces/scheduler"
	siteconfigfile "cashup/internal/siteconfig/infrastructure/file"
	siteconfigpostgres "cashup/internal/siteconfig/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		logger.Fatal("AUTH_JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	var provider application.ConfigProvider
	if cfg.SiteConfigFile != "" {
		fileProvider, err := siteconfigfile.NewProvider(cfg.SiteConfigFile, logger)
		if err != nil {
			logger.Fatalf("site config file error: %v", err)
		}
		provider = fileProvider
	} else {
		pgProvider, err := siteconfigpostgres.NewProvider(db, cfg.TenantID)
		if err != nil {
			logger.Fatalf("site config provider error: %v", err)
		}
		if err := pgProvider.EnsureDefault(ctx); err != nil {
			logger.Fatalf("site config seed error: %v", err)
		}
		provider = pgProvider
	}
	configService, err := application.NewSiteConfigService(provider)
	if err != nil {
		logger.Fatalf("site config service error: %v", err)
	}
	siteCfg, err := configService.Current(ctx)
	if err != nil {
		logger.Fatalf("site config load error: %v", err)
	}
	loc, err := time.LoadLocation(siteCfg.Tenant.Timezone)
	if err != nil {
		logger.WithError(err).Warn("unknown tenant timezone; using UTC")
		loc = time.UTC
	}

	recordRepo, err := postgres.NewRecordRepository(db, cfg.TenantID)
	if err != nil {
		logger.Fatalf("record repository error: %v", err)
	}
	outboxStore, err := postgres.NewOutboxStore(db, cfg.TenantID)
	if err != nil {
		logger.Fatalf("outbox store error: %v", err)
	}

	var drafts application.Autosave = memory.NewAutosave()
	schedulerOpts := []scheduler.Option{scheduler.WithLogger(logger.WithField("component", "scheduler"))}
	var notifier notify.Notifier
	if cfg.AlertWebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.AlertWebhookURL, &http.Client{Timeout: cfg.AlertTimeout})
		schedulerOpts = append(schedulerOpts, scheduler.WithNotifier(notifier, cfg.TenantID))
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatalf("redis ping error: %v", err)
		}
		redisDrafts, err := redisstore.NewAutosave(rdb, redisstore.WithTTL(cfg.DraftTTL))
		if err != nil {
			logger.Fatalf("draft store error: %v", err)
		}
		drafts = redisDrafts
		locker, err := redisstore.NewLocker(rdb, cfg.SyncLockTTL)
		if err != nil {
			logger.Fatalf("redis lock error: %v", err)
		}
		schedulerOpts = append(schedulerOpts, scheduler.WithLocker(locker))
	} else {
		logger.Warn("REDIS_ADDRESS not set; drafts kept in memory and sync runs unlocked")
	}

	clock := application.SystemClock{}
	reviewService, err := application.NewReviewService(recordRepo, clock, logger)
	if err != nil {
		logger.Fatalf("review service error: %v", err)
	}
	submitter, err := application.NewSubmitter(recordRepo, outboxStore, clock, logger)
	if err != nil {
		logger.Fatalf("submitter error: %v", err)
	}
	syncService, err := application.NewSyncService(outboxStore, recordRepo, clock, logger, cfg.SyncBatch)
	if err != nil {
		logger.Fatalf("sync service error: %v", err)
	}

	jobs, err := scheduler.New(syncService, loc, schedulerOpts...)
	if err != nil {
		logger.Fatalf("scheduler error: %v", err)
	}
	if err := jobs.ScheduleSync(ctx, cfg.SyncInterval); err != nil {
		logger.Fatalf("schedule sync error: %v", err)
	}
	if err := jobs.ScheduleDeadlineCheck(ctx, siteCfg.Reconciliation.DailyDeadline, recordRepo); err != nil {
		logger.Fatalf("schedule deadline error: %v", err)
	}
	jobs.Start()
	defer jobs.Stop()

	handler, err := reconciliationhttp.NewHandler(reconciliationhttp.Deps{
		Config:    configService,
		Review:    reviewService,
		Submitter: submitter,
		Sync:      syncService,
		Drafts:    drafts,
		Notifier:  notifier,
		Audit:     auditRepo,
		Clock:     clock,
		Logger:    logger.WithField("component", "http"),
	})
	if err != nil {
		logger.Fatalf("reconciliation handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	authMiddleware.Tenant = cfg.TenantID

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(authMiddleware.Wrap(mux), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("http shutdown")
		}
	}()

	logger.WithFields(logrus.Fields{
		"addr":   cfg.HTTPAddr,
		"tenant": cfg.TenantID,
	}).Info("http listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal(err)
	}
}

type config struct {
	DatabaseURL     string
	HTTPAddr        string
	TenantID        string
	JWTSecret       string
	LogLevel        string
	LogFormat       string
	SiteConfigFile  string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	DraftTTL        time.Duration
	SyncInterval    time.Duration
	SyncLockTTL     time.Duration
	SyncBatch       int
	AlertWebhookURL string
	AlertTimeout    time.Duration
}

func loadConfig() config {
	return config{
		DatabaseURL:     getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:        getenvDefault("HTTP_ADDR", ":8080"),
		TenantID:        getenvDefault("TENANT_ID", "tenant-demo"),
		JWTSecret:       getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		LogLevel:        getenvDefault("LOG_LEVEL", "info"),
		LogFormat:       getenvDefault("LOG_FORMAT", "json"),
		SiteConfigFile:  getenvDefault("SITE_CONFIG_FILE", ""),
		RedisAddr:       getenvDefault("REDIS_ADDRESS", ""),
		RedisPassword:   getenvDefault("REDIS_PASSWORD", ""),
		RedisDB:         getenvIntDefault("REDIS_DB", 0),
		DraftTTL:        getenvDuration("DRAFT_TTL", 72*time.Hour),
		SyncInterval:    getenvDuration("SYNC_INTERVAL", time.Minute),
		SyncLockTTL:     getenvDuration("SYNC_LOCK_TTL", 30*time.Second),
		SyncBatch:       getenvIntDefault("SYNC_BATCH", 50),
		AlertWebhookURL: getenvDefault("ALERT_WEBHOOK_URL", ""),
		AlertTimeout:    getenvDuration("ALERT_TIMEOUT", 5*time.Second),
	}
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger logrus.FieldLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   resp.status,
			"duration": time.Since(start).String(),
		}).Info("http request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
