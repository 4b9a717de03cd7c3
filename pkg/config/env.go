package config

const (
	EnvPrefix = "TTML"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "TTML_APP_ENV"
	EnvPort         = "TTML_APP_PORT"
	EnvAppPublicURL = "TTML_APP_PUBLIC_URL"
	EnvLogLevel     = "TTML_LOG_LEVEL"

	EnvDBDSN  = "TTML_DB_DSN"
	EnvDBHost = "TTML_DB_HOST"
	EnvDBPort = "TTML_DB_PORT"
	EnvDBUser = "TTML_DB_USER"
	EnvDBPass = "TTML_DB_PASSWORD"
	EnvDBName = "TTML_DB_NAME"

	EnvRedisURL  = "TTML_REDIS_URL"
	EnvRedisAddr = "TTML_REDIS_ADDR"

	EnvJWTSecret               = "TTML_JWT_SECRET"
	EnvJWTIssuer               = "TTML_JWT_ISSUER"
	EnvJWTExpMins              = "TTML_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "TTML_REFRESH_TOKEN_TTL_MINUTES"
	EnvAdminSignupSecret       = "TTML_ADMIN_SIGNUP_SECRET"
	EnvLLMAPIKey               = "TTML_LLM_API_KEY"
	EnvSMTPHost                = "TTML_SMTP_HOST"
	EnvSMTPFromEmail           = "TTML_SMTP_FROM_EMAIL"
	EnvStripeEnv               = "TTML_STRIPE_ENV"
	EnvRateLimitGenerate       = "TTML_RATE_LIMIT_GENERATE"
	EnvOutboxRetentionDays     = "TTML_OUTBOX_RETENTION_DAYS"
	EnvPubSubDomainTopic       = "TTML_PUBSUB_DOMAIN_TOPIC"
	EnvCronInterval            = "TTML_CRON_INTERVAL"
	EnvAuthRateLimitLoginLimit = "TTML_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
