package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/ttml-backend/pkg/config"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"

	defaultCurrency = "usd"
)

var (
	ErrAPIKeyRequired = errors.New("stripe api key is required")
	ErrEnvMismatch    = errors.New("stripe api key does not match environment")
	ErrInvalidEnv     = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Key is a parsed Stripe secret or restricted key.
type Key struct {
	Kind string // "sk" or "rk"
	Mode string // testEnv or liveEnv
}

// ParseKey splits a key of the form <kind>_<mode>_<token>.
func ParseKey(raw string) (Key, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), "_", 3)
	if len(parts) != 3 || parts[2] == "" {
		return Key{}, fmt.Errorf("stripe api key is malformed")
	}
	key := Key{Kind: parts[0], Mode: parts[1]}
	if key.Kind != "sk" && key.Kind != "rk" {
		return Key{}, fmt.Errorf("stripe api key must be a secret or restricted key, got %q", key.Kind)
	}
	if key.Mode != testEnv && key.Mode != liveEnv {
		return Key{}, fmt.Errorf("stripe api key has unknown mode %q", key.Mode)
	}
	return key, nil
}

// Client carries the configured Stripe API client and the account settings
// payment code needs.
type Client struct {
	api           *stripe.Client
	key           Key
	currency      string
	signingSecret string
}

// NewClient validates the key against the configured environment and installs
// a backend that logs through logg and retries transient failures.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env := cfg.Environment()
	if env != testEnv && env != liveEnv {
		return nil, ErrInvalidEnv
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	key, err := ParseKey(apiKey)
	if err != nil {
		return nil, err
	}
	if key.Mode != env {
		return nil, fmt.Errorf("%w: %s key in %s environment", ErrEnvMismatch, key.Mode, env)
	}

	currency, err := normalizeCurrency(cfg.Currency)
	if err != nil {
		return nil, err
	}

	backendCfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(cfg.MaxRetries),
		LeveledLogger:     newLeveledLogger(logg),
	}
	backends := stripe.NewBackendsWithConfig(backendCfg)
	stripe.Key = apiKey
	stripe.SetBackend(stripe.APIBackend, backends.API)

	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{"stripe_env": env, "stripe_key_kind": key.Kind})
		logg.Info(ctx, "stripe client initialized")
	}

	return &Client{
		api:           stripe.NewClient(apiKey, stripe.WithBackends(backends)),
		key:           key,
		currency:      currency,
		signingSecret: strings.TrimSpace(cfg.Secret),
	}, nil
}

func (c *Client) API() *stripe.Client {
	if c == nil {
		return nil
	}
	return c.api
}

// Environment reports the mode of the configured key.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.key.Mode
}

// Currency is the ISO currency code charged for every checkout.
func (c *Client) Currency() string {
	if c == nil || c.currency == "" {
		return defaultCurrency
	}
	return c.currency
}

func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

func normalizeCurrency(raw string) (string, error) {
	currency := strings.ToLower(strings.TrimSpace(raw))
	if currency == "" {
		return defaultCurrency, nil
	}
	if len(currency) != 3 {
		return "", fmt.Errorf("stripe currency %q is not an ISO 4217 code", raw)
	}
	for _, r := range currency {
		if r < 'a' || r > 'z' {
			return "", fmt.Errorf("stripe currency %q is not an ISO 4217 code", raw)
		}
	}
	return currency, nil
}
