package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lensbook/lensbook-backend/internal/app"
	"github.com/lensbook/lensbook-backend/internal/cron"
	"github.com/lensbook/lensbook-backend/pkg/config"
	"github.com/lensbook/lensbook-backend/pkg/db"
	"github.com/lensbook/lensbook-backend/pkg/instance"
	"github.com/lensbook/lensbook-backend/pkg/logger"
	"github.com/lensbook/lensbook-backend/pkg/metrics"
	"github.com/lensbook/lensbook-backend/pkg/migrate"
	"github.com/lensbook/lensbook-backend/pkg/redis"
)

const lockKeyFormat = "lb:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	svcs, err := app.BuildServices(context.Background(), cfg, logg, dbClient, prometheus.DefaultRegisterer)
	if err != nil {
		logg.Error(context.Background(), "failed to wire domain services", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	registry, err := buildRegistry(cfg, logg, dbClient, svcs, metricsCollector)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 2*cfg.Cron.Interval)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:      logg,
		Registry:    registry,
		Lock:        lock,
		Metrics:     metricsCollector,
		Interval:    cfg.Cron.Interval,
		LockRefresh: lock.TTL() / 3,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"service_kind": cfg.Service.Kind,
		"instance":     instance.GetID(),
		"jobs":         registry.Names(),
	})
	logg.Info(ctx, "starting cron worker")

	go func() {
		if err := metrics.Serve(ctx, ":"+cfg.App.Port, nil, logg); err != nil {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, svcs *app.Services, collector *metrics.CronJobMetrics) (*cron.Registry, error) {
	autoComplete, err := cron.NewOrderAutoCompleteJob(cron.OrderAutoCompleteJobParams{
		Logger:     logg,
		DB:         dbClient,
		Reader:     svcs.OrdersRepo,
		Complaints: cron.ComplaintChecker{Repo: svcs.ComplaintsRepo},
		Orders:     svcs.Orders,
		Metrics:    collector,
		After:      cfg.Booking.AutoCompleteAfter,
	})
	if err != nil {
		return nil, fmt.Errorf("order auto-complete job: %w", err)
	}
	expiry, err := cron.NewPendingPaymentExpiryJob(cron.PendingPaymentExpiryJobParams{
		Logger:  logg,
		DB:      dbClient,
		Reader:  svcs.OrdersRepo,
		Orders:  svcs.Orders,
		Metrics: collector,
		TTL:     cfg.Booking.PendingPaymentTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("pending payment expiry job: %w", err)
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: svcs.Outbox,
		Metrics:    collector,
		Retention:  cfg.Outbox.RetentionDays,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}
	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: svcs.NotifyRepo,
		Metrics:    collector,
	})
	if err != nil {
		return nil, fmt.Errorf("notification cleanup job: %w", err)
	}
	return cron.NewRegistry(autoComplete, expiry, retention, cleanup), nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
