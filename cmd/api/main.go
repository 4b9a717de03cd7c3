package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/ttml-backend/api/routes"
	"github.com/angelmondragon/ttml-backend/pkg/auth/session"
	"github.com/angelmondragon/ttml-backend/pkg/config"
	"github.com/angelmondragon/ttml-backend/pkg/db"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
	"github.com/angelmondragon/ttml-backend/pkg/migrate"
	"github.com/angelmondragon/ttml-backend/pkg/redis"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 2 * time.Minute
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.New(logger.Options{ServiceName: "api"}).Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: "api"}).Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg := logger.ForService("api", cfg.App)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

// run owns every client the api needs and blocks until ctx ends or the
// listener fails.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeLogged(logg, "database", dbClient.Close)
	if err := dbClient.RegisterPoolMetrics(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("db pool metrics: %w", err)
	}

	if err := migrate.ApplyOnBoot(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("check migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeLogged(logg, "redis", redisClient.Close)
	if err := redisClient.RegisterPoolMetrics(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("redis pool metrics: %w", err)
	}

	sessions, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}

	params, err := buildRouterParams(ctx, cfg, logg, dbClient, redisClient, sessions)
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}

	addr := listenAddr(cfg.App)
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(params),
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	ctx = logg.WithField(ctx, "addr", addr)
	logg.Info(ctx, "starting api server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// listenAddr prefers the platform-provided PORT over the configured one.
func listenAddr(app config.AppConfig) string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":" + app.Port
}

func closeLogged(logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(context.Background(), "error closing "+name, err)
	}
}
