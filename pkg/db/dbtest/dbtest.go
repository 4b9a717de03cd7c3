// Package dbtest opens an in-memory sqlite database carrying the service schema.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/ttml-backend/pkg/db"
)

// schema mirrors pkg/migrate/migrations with sqlite column types.
var schema = []string{
	`CREATE TABLE profiles (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		subscription_tier TEXT,
		subscription_status TEXT,
		subscription_expires_at DATETIME,
		referral_count INTEGER NOT NULL DEFAULT 0,
		total_earnings TEXT NOT NULL DEFAULT '0',
		last_login_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE user_roles (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL DEFAULT 'user',
		updated_by TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE employee_coupons (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		employee_id TEXT,
		discount_percent INTEGER NOT NULL CHECK (discount_percent BETWEEN 1 AND 100),
		usage_count INTEGER NOT NULL DEFAULT 0,
		max_usage INTEGER,
		expires_at DATETIME,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		CHECK (max_usage IS NULL OR usage_count <= max_usage)
	)`,
	`CREATE TABLE subscriptions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		plan TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		base_price TEXT NOT NULL,
		price TEXT NOT NULL,
		discount_percent INTEGER NOT NULL DEFAULT 0,
		coupon_code TEXT,
		employee_id TEXT,
		letters_remaining INTEGER NOT NULL CHECK (letters_remaining >= 0),
		monthly_allocation INTEGER NOT NULL,
		next_refill_date DATETIME,
		expires_at DATETIME NOT NULL,
		canceled_at DATETIME,
		payment_id TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE commissions (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		subscription_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		paid_at DATETIME,
		created_at DATETIME
	)`,
	`CREATE TABLE purchases (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		subscription_id TEXT NOT NULL,
		plan TEXT NOT NULL,
		amount TEXT NOT NULL,
		discount_percent INTEGER NOT NULL DEFAULT 0,
		coupon_code TEXT,
		payment_provider TEXT NOT NULL,
		payment_id TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE refill_history (
		id TEXT PRIMARY KEY,
		subscription_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		letters_before INTEGER NOT NULL,
		letters_after INTEGER NOT NULL,
		refilled_at DATETIME NOT NULL,
		next_refill_date DATETIME NOT NULL
	)`,
	`CREATE TABLE letters (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		subscription_id TEXT,
		letter_type TEXT NOT NULL,
		urgency_level TEXT NOT NULL DEFAULT 'standard',
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		recipient_name TEXT NOT NULL DEFAULT '',
		recipient_address TEXT NOT NULL DEFAULT '',
		form_data BLOB NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		failure_reason TEXT,
		attorney_email TEXT,
		sent_at DATETIME,
		completed_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE audit_logs (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		event_type TEXT NOT NULL,
		action TEXT NOT NULL,
		resource_type TEXT,
		resource_id TEXT,
		ip_address TEXT,
		user_agent TEXT,
		metadata BLOB,
		created_at DATETIME
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		failed_at DATETIME
	)`,
}

// Open returns a fresh database isolated to the calling test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// One connection keeps transactions serialized like row locks would.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return conn
}

// Client wraps Open in a db.Client so services can run transactions.
func Client(t testing.TB) *db.Client {
	t.Helper()
	return db.Wrap(Open(t))
}
