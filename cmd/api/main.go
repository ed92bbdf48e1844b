package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/laundry-desk/backend/internal/config"
	"github.com/laundry-desk/backend/internal/db"
	"github.com/laundry-desk/backend/internal/events"
	apphttp "github.com/laundry-desk/backend/internal/http"
	"github.com/laundry-desk/backend/internal/http/handlers"
	"github.com/laundry-desk/backend/internal/metrics"
	"github.com/laundry-desk/backend/internal/repositories"
	"github.com/laundry-desk/backend/internal/services"
	"github.com/laundry-desk/backend/internal/session"
	"github.com/laundry-desk/backend/migrations"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	log := newLogger(cfg.LogLevel)
	defer log.Sync()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// MIGRATIONS_DIR overrides the embedded schema, e.g. to test a migration before release.
	var schema fs.FS = migrations.FS
	if cfg.MigrationsDir != "" {
		schema = os.DirFS(cfg.MigrationsDir)
	}
	if err := db.RunMigrations(ctx, pool, schema, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	pendingRepo := repositories.NewPendingUpdateRepo(pool)
	notificationRepo := repositories.NewNotificationRepo(pool)
	activityRepo := repositories.NewActivityLogRepo(pool)
	profileRepo := repositories.NewProfileRepo(pool)
	recordRepo := repositories.NewRecordRepo(pool)
	retryQueue := repositories.NewNotificationRetryQueue(rdb, "")
	tx := db.NewTxRunner(pool, cfg.StoreTimeout)

	// Events: publish through redis so every API instance sees them,
	// then fan into the local hub for websocket clients.
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)
	hub := events.NewHub(64, log)
	if err := hub.Bridge(ctx, subscriber, events.StreamNotifications, events.StreamPendingUpdates); err != nil {
		log.Fatal("failed to subscribe to event streams", zap.Error(err))
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Services
	notifications := services.NewNotificationService(notificationRepo, profileRepo, retryQueue, publisher, hub,
		services.NotificationConfig{
			Timeout:           cfg.NotifyTimeout,
			FanOutConcurrency: cfg.FanOutConcurrency,
			ListLimit:         cfg.NotificationListLimit,
			RetryMaxAttempts:  cfg.NotificationRetryMax,
		}, m, log)
	audit := services.NewAuditWriter(activityRepo, cfg.AuditTimeout, m, log)
	updates := services.NewPendingUpdateService(pendingRepo, recordRepo, profileRepo, notifications, publisher, m, log)
	approvals := services.NewApprovalService(tx, updates, recordRepo, audit, notifications, publisher,
		services.ApprovalConfig{ConflictCheck: cfg.ConflictCheck, Timeout: cfg.StoreTimeout}, m, log)
	records := services.NewRecordService(tx, recordRepo, updates, audit, cfg.StoreTimeout, log)
	activity := services.NewActivityService(activityRepo, log)
	monitor := session.NewMonitor(session.NewRedisTracker(rdb, cfg.SessionLogoutAfter, cfg.JWTExpiration),
		cfg.SessionWarnAfter, cfg.SessionLogoutAfter, m, log)

	// Fiber app
	app := apphttp.NewApp()
	apphttp.SetupRouter(app, cfg, log, rdb, profileRepo, monitor, promhttp.Handler(), apphttp.Handlers{
		Auth:          handlers.NewAuthHandler(cfg, monitor, log),
		Meta:          handlers.NewMetaHandler(),
		User:          handlers.NewUserHandler(profileRepo, monitor, log),
		PendingUpdate: handlers.NewPendingUpdateHandler(updates, approvals, log),
		Record:        handlers.NewRecordHandler(records, updates, log),
		Notification:  handlers.NewNotificationHandler(notifications, log),
		Activity:      handlers.NewActivityHandler(activity, log),
		WS:            handlers.NewWSHandler(notifications, hub, log),
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func newLogger(level string) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		zcfg.Level = lvl
	}
	log, err := zcfg.Build()
	if err != nil {
		log = zap.NewNop()
	}
	return log
}
