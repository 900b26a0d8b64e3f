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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront-backend/internal/cron"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const lockKeyFormat = "sf:cron-worker:lock:%s"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	outboxRepo := outbox.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(ordersRepo, dbClient, outbox.NewService(outboxRepo, logg), logg)
	requireResource(ctx, logg, "orders service", err)

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionParams{
		Logger:         logg,
		DB:             dbClient,
		Outbox:         outboxRepo,
		Retention:      cfg.Maintenance.OutboxRetention,
		ParkedAttempts: cfg.Outbox.MaxAttempts,
	})
	requireResource(ctx, logg, "outbox retention job", err)

	staleOrders, err := cron.NewStaleOrdersJob(cron.StaleOrdersParams{
		Logger:  logg,
		Pending: ordersRepo,
		Orders:  ordersService,
		TTL:     cfg.Maintenance.PendingOrderTTL,
	})
	requireResource(ctx, logg, "stale orders job", err)

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Maintenance.Interval)
	requireResource(ctx, logg, "cron lock", err)

	scheduler, err := cron.NewScheduler(cron.SchedulerParams{
		Logger:   logg,
		Lock:     lock,
		Metrics:  metrics.NewMaintenanceMetrics(reg),
		Interval: cfg.Maintenance.Interval,
		Jobs:     []cron.Job{staleOrders, retention},
	})
	requireResource(ctx, logg, "scheduler", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(),
		"interval":    cfg.Maintenance.Interval.String(),
	})
	logg.Info(runCtx, "starting cron worker")

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		return metrics.Serve(groupCtx, cfg.Service.MetricsAddr, reg, logg)
	})
	group.Go(func() error {
		return scheduler.Run(groupCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
