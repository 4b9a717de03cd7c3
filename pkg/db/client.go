// Package db owns the shared Postgres connection and its transaction helper.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/angelmondragon/ttml-backend/pkg/config"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

type Client struct {
	conn *gorm.DB
}

// Pinger is what health checks depend on.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New opens the pool and fails fast when Postgres is unreachable.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}

	conn, err := gorm.Open(
		postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true}),
		&gorm.Config{
			Logger:                 newQueryLogger(logg, cfg.SlowQuery),
			SkipDefaultTransaction: true,
			NowFunc:                func() time.Time { return time.Now().UTC() },
		},
	)
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	client := &Client{conn: conn}
	if err := client.configurePool(cfg); err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"max_open_conns": cfg.MaxOpenConns,
			"max_idle_conns": cfg.MaxIdleConns,
		}), "database connection established")
	}
	return client, nil
}

func (c *Client) configurePool(cfg config.DBConfig) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return fmt.Errorf("getting sql db handle: %w", err)
	}
	// Zero leaves database/sql's own default in place.
	setIf(cfg.MaxOpenConns, sqlDB.SetMaxOpenConns)
	setIf(cfg.MaxIdleConns, sqlDB.SetMaxIdleConns)
	setIf(cfg.ConnMaxLifetime, sqlDB.SetConnMaxLifetime)
	setIf(cfg.ConnMaxIdleTime, sqlDB.SetConnMaxIdleTime)
	return nil
}

func setIf[T int | time.Duration](v T, set func(T)) {
	if v > 0 {
		set(v)
	}
}

// RegisterPoolMetrics exports database/sql pool statistics under
// go_sql_* with db_name="ttml".
func (c *Client) RegisterPoolMetrics(reg prometheus.Registerer) error {
	if reg == nil {
		return nil
	}
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return reg.Register(collectors.NewDBStatsCollector(sqlDB, "ttml"))
}

// Wrap adopts an already opened connection. Tests use it with sqlite.
func Wrap(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pingTimeout)
		defer cancel()
	}
	return sqlDB.PingContext(ctx)
}

func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx runs fn in a transaction that commits only when fn returns nil.
// A panic inside fn rolls back and is re-raised. Nested calls on the tx
// handle become savepoints.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
