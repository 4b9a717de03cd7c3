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

	"github.com/angelmondragon/ttml-backend/internal/audit"
	"github.com/angelmondragon/ttml-backend/internal/commissions"
	"github.com/angelmondragon/ttml-backend/internal/coupons"
	"github.com/angelmondragon/ttml-backend/internal/cron"
	"github.com/angelmondragon/ttml-backend/internal/letters"
	"github.com/angelmondragon/ttml-backend/internal/payments"
	"github.com/angelmondragon/ttml-backend/internal/purchases"
	"github.com/angelmondragon/ttml-backend/internal/subscriptions"
	"github.com/angelmondragon/ttml-backend/internal/users"
	"github.com/angelmondragon/ttml-backend/pkg/config"
	"github.com/angelmondragon/ttml-backend/pkg/db"
	"github.com/angelmondragon/ttml-backend/pkg/env"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
	"github.com/angelmondragon/ttml-backend/pkg/metrics"
	"github.com/angelmondragon/ttml-backend/pkg/migrate"
	"github.com/angelmondragon/ttml-backend/pkg/outbox"
	"github.com/angelmondragon/ttml-backend/pkg/redis"
)

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

	logg = logger.ForService("cron-worker", cfg.App)

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
	if err := dbClient.RegisterPoolMetrics(prometheus.DefaultRegisterer); err != nil {
		logg.Error(context.Background(), "failed to register db pool metrics", err)
		os.Exit(1)
	}

	if err := migrate.ApplyOnBoot(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to check migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry, err := buildRegistry(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron"), env.InstanceID(), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Cron.Interval.String(),
	})
	go func() {
		if err := metrics.Serve(ctx, cfg.Service.MetricsAddr, prometheus.DefaultGatherer, logg); err != nil {
			logg.Error(ctx, "metrics server failed", err)
		}
	}()
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// buildRegistry wires the quota refill, subscription expiry, stuck letter and outbox retention jobs.
// The subscription service never charges from here, so it gets the stub processor.
func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	conn := dbClient.DB()
	auditService := audit.NewService(audit.NewRepository(conn), logg)
	outboxRepo := outbox.NewRepository(conn)
	outboxService := outbox.NewService(outboxRepo, logg)

	commissionService, err := commissions.NewService(commissions.ServiceParams{
		Repository:        commissions.NewRepository(conn),
		Outbox:            outboxService,
		TransactionRunner: dbClient,
		Audit:             auditService,
	})
	if err != nil {
		return nil, fmt.Errorf("commission service: %w", err)
	}
	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repository:        subscriptions.NewRepository(conn),
		Coupons:           coupons.NewRepository(conn),
		Commissions:       commissionService,
		Users:             users.NewRepository(conn),
		Purchases:         purchases.NewRepository(conn),
		Payments:          payments.NewStubProcessor(logg),
		Outbox:            outboxService,
		TransactionRunner: dbClient,
		Audit:             auditService,
		Metrics:           metrics.NewDomainMetrics(prometheus.DefaultRegisterer),
		Logger:            logg,
	})
	if err != nil {
		return nil, fmt.Errorf("subscription service: %w", err)
	}

	refill, err := cron.NewQuotaRefillJob(cron.QuotaRefillJobParams{
		Logger:        logg,
		Subscriptions: subscriptionService,
	})
	if err != nil {
		return nil, fmt.Errorf("quota refill job: %w", err)
	}
	expiry, err := cron.NewSubscriptionExpiryJob(cron.SubscriptionExpiryJobParams{
		Logger:        logg,
		Subscriptions: subscriptionService,
	})
	if err != nil {
		return nil, fmt.Errorf("subscription expiry job: %w", err)
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		Retention:  cfg.Outbox.RetentionDays,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}
	sweeper, err := letters.NewSweeper(letters.SweeperParams{
		Repository:        letters.NewRepository(conn),
		Outbox:            outboxService,
		TransactionRunner: dbClient,
	})
	if err != nil {
		return nil, fmt.Errorf("letter sweeper: %w", err)
	}
	stuck, err := cron.NewStuckLetterJob(cron.StuckLetterJobParams{
		Logger:  logg,
		Letters: sweeper,
		After:   cfg.Cron.StuckLetterAfter,
	})
	if err != nil {
		return nil, fmt.Errorf("stuck letter job: %w", err)
	}

	registry := cron.NewRegistry()
	if err := registry.Register(refill); err != nil {
		return nil, err
	}
	if err := registry.Register(expiry); err != nil {
		return nil, err
	}
	if err := registry.Register(stuck); err != nil {
		return nil, err
	}
	if err := registry.RegisterEvery(retention, cfg.Cron.RetentionEvery); err != nil {
		return nil, err
	}
	return registry, nil
}
