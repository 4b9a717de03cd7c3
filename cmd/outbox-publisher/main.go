package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/ttml-backend/pkg/config"
	"github.com/angelmondragon/ttml-backend/pkg/db"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
	"github.com/angelmondragon/ttml-backend/pkg/metrics"
	"github.com/angelmondragon/ttml-backend/pkg/migrate"
	"github.com/angelmondragon/ttml-backend/pkg/outbox"
	"github.com/angelmondragon/ttml-backend/pkg/pubsub"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: "outbox-publisher"}).Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "outbox-publisher"
	logg := logger.ForService(cfg.Service.Kind, cfg.App)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher shut down")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer dbClient.Close()

	if err := migrate.ApplyOnBoot(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return err
	}
	defer psClient.Close()

	domain := psClient.DomainPublisher()
	if domain == nil {
		return errors.New("domain topic publisher is not configured")
	}
	defer domain.Stop()

	relay, err := NewRelay(RelayParams{
		Config:    cfg.Outbox,
		Topic:     cfg.PubSub.DomainTopic,
		Logger:    logg,
		Store:     outbox.NewRepository(dbClient.DB()),
		Publisher: pubsubPublisher{p: domain},
		Metrics:   metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
		Readiness: map[string]pinger{"database": dbClient, "pubsub": psClient},
	})
	if err != nil {
		return err
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.Service.MetricsAddr, prometheus.DefaultGatherer, logg); err != nil {
			logg.Error(ctx, "metrics server failed", err)
		}
	}()

	logg.Info(logg.WithField(ctx, "topic", cfg.PubSub.DomainTopic), "starting outbox publisher")
	return relay.Run(ctx)
}
