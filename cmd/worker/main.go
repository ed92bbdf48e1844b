package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/laundry-desk/backend/internal/config"
	"github.com/laundry-desk/backend/internal/db"
	"github.com/laundry-desk/backend/internal/events"
	"github.com/laundry-desk/backend/internal/metrics"
	"github.com/laundry-desk/backend/internal/repositories"
	"github.com/laundry-desk/backend/internal/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const redeliverBatch = 100

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	notifications := services.NewNotificationService(
		repositories.NewNotificationRepo(pool),
		repositories.NewProfileRepo(pool),
		repositories.NewNotificationRetryQueue(rdb, ""),
		events.NewRedisPublisher(rdb, log),
		nil,
		services.NotificationConfig{
			Timeout:           cfg.NotifyTimeout,
			FanOutConcurrency: cfg.FanOutConcurrency,
			RetryMaxAttempts:  cfg.NotificationRetryMax,
		},
		metrics.New(prometheus.DefaultRegisterer),
		log,
	)

	metricsApp := newMetricsApp(promhttp.Handler())
	go func() {
		if err := metricsApp.Listen(cfg.WorkerMetricsAddr); err != nil {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	defer metricsApp.Shutdown()

	log.Info("worker started",
		zap.Duration("retry_every", cfg.NotificationRetryEvery),
		zap.Duration("retention", cfg.NotificationRetention),
		zap.String("metrics_addr", cfg.WorkerMetricsAddr),
	)

	retryTicker := time.NewTicker(cfg.NotificationRetryEvery)
	pruneTicker := time.NewTicker(time.Hour)
	defer retryTicker.Stop()
	defer pruneTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-retryTicker.C:
			runRedelivery(ctx, notifications, log)
		case <-pruneTicker.C:
			runPrune(ctx, notifications, cfg.NotificationRetention, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		}
	}
}

// runRedelivery drains the retry queue until it is empty or a batch makes no progress.
func runRedelivery(ctx context.Context, notifications *services.NotificationService, log *zap.Logger) {
	for {
		delivered, dropped, err := notifications.Redeliver(ctx, redeliverBatch)
		if err != nil {
			log.Error("notification redelivery failed", zap.Error(err))
			return
		}
		if delivered > 0 || dropped > 0 {
			log.Info("notification redelivery", zap.Int("delivered", delivered), zap.Int("dropped", dropped))
		}
		if delivered+dropped < redeliverBatch {
			return
		}
	}
}

func runPrune(ctx context.Context, notifications *services.NotificationService, retention time.Duration, log *zap.Logger) {
	n, err := notifications.PruneRead(ctx, retention)
	if err != nil {
		log.Error("failed to prune read notifications", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("pruned read notifications", zap.Int64("deleted", n))
	}
}
