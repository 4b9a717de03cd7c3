package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	RateLimit     RateLimitConfig
	Idempotency   IdempotencyConfig
	Admin         AdminConfig
	LLM           LLMConfig
	SMTP          SMTPConfig
	Stripe        StripeConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Redis.ensureTarget(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TTML_APP_ENV" required:"true"`
	Port         string `envconfig:"TTML_APP_PORT" required:"true"`
	Name         string `envconfig:"TTML_APP_NAME" default:"Talk To My Lawyer"`
	PublicURL    string `envconfig:"TTML_APP_PUBLIC_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"TTML_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"TTML_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"TTML_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// BaseURL returns the public URL without a trailing slash.
func (a AppConfig) BaseURL() string {
	return strings.TrimRight(strings.TrimSpace(a.PublicURL), "/")
}

type ServiceConfig struct {
	Kind string `envconfig:"TTML_SERVICE_KIND" default:"api"`

	// MetricsAddr is where the background workers expose /metrics. Empty disables it.
	MetricsAddr string `envconfig:"TTML_WORKER_METRICS_ADDR" default:":9091"`
}

type DBConfig struct {
	DSN         string `envconfig:"TTML_DB_DSN"`
	AutoMigrate bool   `envconfig:"TTML_DB_AUTO_MIGRATE" default:"false"`

	LegacyHost     string `envconfig:"TTML_DB_HOST"`
	LegacyPort     int    `envconfig:"TTML_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TTML_DB_USER"`
	LegacyPassword string `envconfig:"TTML_DB_PASSWORD"`
	LegacyName     string `envconfig:"TTML_DB_NAME"`
	LegacySSLMode  string `envconfig:"TTML_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TTML_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TTML_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TTML_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TTML_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"TTML_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TTML_REDIS_URL"`
	Address      string        `envconfig:"TTML_REDIS_ADDR"`
	Password     string        `envconfig:"TTML_REDIS_PASSWORD"`
	DB           int           `envconfig:"TTML_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TTML_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TTML_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TTML_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TTML_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TTML_REDIS_WRITE_TIMEOUT" default:"5s"`
	// KeyPrefix lets several environments share one Redis instance.
	KeyPrefix string `envconfig:"TTML_REDIS_KEY_PREFIX" default:"ttml"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"TTML_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"TTML_JWT_ISSUER" required:"true"`
	Audience               string `envconfig:"TTML_JWT_AUDIENCE" default:"ttml-api"`
	ExpirationMinutes      int    `envconfig:"TTML_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"TTML_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// AccessTokenTTL returns the access token lifetime configured in minutes.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TTML_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TTML_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TTML_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TTML_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TTML_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"TTML_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"TTML_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"TTML_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"TTML_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"TTML_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"TTML_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// RateLimitConfig holds the fixed windows applied to the quota-spending endpoints.
type RateLimitConfig struct {
	Window         time.Duration `envconfig:"TTML_RATE_LIMIT_WINDOW" default:"1m"`
	CheckoutLimit  int           `envconfig:"TTML_RATE_LIMIT_CHECKOUT" default:"5"`
	GenerateLimit  int           `envconfig:"TTML_RATE_LIMIT_GENERATE" default:"5"`
	SendEmailLimit int           `envconfig:"TTML_RATE_LIMIT_SEND_EMAIL" default:"10"`
	CouponLimit    int           `envconfig:"TTML_RATE_LIMIT_COUPON" default:"20"`
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"TTML_IDEMPOTENCY_TTL" default:"24h"`
	// InFlightTTL bounds how long a crashed request can hold its key.
	InFlightTTL time.Duration `envconfig:"TTML_IDEMPOTENCY_IN_FLIGHT_TTL" default:"2m"`
}

type AdminConfig struct {
	SignupSecret string `envconfig:"TTML_ADMIN_SIGNUP_SECRET"`
}

type LLMConfig struct {
	APIKey      string        `envconfig:"TTML_LLM_API_KEY"`
	BaseURL     string        `envconfig:"TTML_LLM_BASE_URL" default:"https://api.openai.com/v1"`
	Model       string        `envconfig:"TTML_LLM_MODEL" default:"gpt-4o-mini"`
	Timeout     time.Duration `envconfig:"TTML_LLM_TIMEOUT" default:"60s"`
	MaxTokens   int           `envconfig:"TTML_LLM_MAX_TOKENS" default:"2048"`
	Temperature float64       `envconfig:"TTML_LLM_TEMPERATURE" default:"0.7"`
}

func (l LLMConfig) Enabled() bool {
	return strings.TrimSpace(l.APIKey) != ""
}

type SMTPConfig struct {
	Host      string `envconfig:"TTML_SMTP_HOST"`
	Port      int    `envconfig:"TTML_SMTP_PORT" default:"587"`
	User      string `envconfig:"TTML_SMTP_USER"`
	Password  string `envconfig:"TTML_SMTP_PASSWORD"`
	FromEmail string `envconfig:"TTML_SMTP_FROM_EMAIL"`
	FromName  string `envconfig:"TTML_SMTP_FROM_NAME" default:"Talk To My Lawyer"`
}

func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Host) != "" && strings.TrimSpace(s.FromEmail) != ""
}

// Address returns host:port for dialing the relay.
func (s SMTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", strings.TrimSpace(s.Host), s.Port)
}

type StripeConfig struct {
	Enabled bool   `envconfig:"TTML_STRIPE_ENABLED" default:"false"`
	APIKey  string `envconfig:"TTML_STRIPE_API_KEY"`
	Secret  string `envconfig:"TTML_STRIPE_SECRET"`
	Env     string `envconfig:"TTML_STRIPE_ENV" default:"test"`

	// Currency is the ISO code used for every payment intent.
	Currency   string `envconfig:"TTML_STRIPE_CURRENCY" default:"usd"`
	MaxRetries int64  `envconfig:"TTML_STRIPE_MAX_RETRIES" default:"2"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type GCPConfig struct {
	ProjectID string `envconfig:"TTML_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"TTML_PUBSUB_DOMAIN_TOPIC" default:"ttml-domain-events"`

	// Publisher batching; a message is sent when either threshold is hit.
	PublishDelay time.Duration `envconfig:"TTML_PUBSUB_PUBLISH_DELAY" default:"10ms"`
	PublishCount int           `envconfig:"TTML_PUBSUB_PUBLISH_COUNT" default:"100"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TTML_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TTML_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TTML_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"TTML_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"TTML_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"TTML_CRON_LOCK_TTL" default:"10m"`
	// RetentionEvery spaces out outbox pruning; refill and expiry run every cycle.
	RetentionEvery time.Duration `envconfig:"TTML_CRON_RETENTION_EVERY" default:"24h"`
	// StuckLetterAfter is when a letter still generating is given up on.
	StuckLetterAfter time.Duration `envconfig:"TTML_CRON_STUCK_LETTER_AFTER" default:"15m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

func (r *RedisConfig) ensureTarget() error {
	if strings.TrimSpace(r.URL) == "" && strings.TrimSpace(r.Address) == "" {
		return fmt.Errorf("either %s or %s is required", EnvRedisURL, EnvRedisAddr)
	}
	return nil
}
