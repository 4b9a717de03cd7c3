package redis

import "strings"

const defaultNamespace = "ttml"

const (
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	sessionPrefix     = "session"
	lockPrefix        = "lock"
)

// IdempotencyKey scopes a client-supplied Idempotency-Key to user and endpoint.
func (c *Client) IdempotencyKey(scope, id string) string {
	return c.buildKey(idempotencyPrefix, scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return c.buildKey(rateLimitPrefix, scope)
}

// AccessSessionKey holds the live session for an access token's jti.
func (c *Client) AccessSessionKey(accessID string) string {
	return c.buildKey(sessionPrefix, "access", accessID)
}

func (c *Client) LockKey(name string) string {
	return c.buildKey(lockPrefix, name)
}

func (c *Client) prefix() string {
	if c.namespace == "" {
		return defaultNamespace
	}
	return c.namespace
}

// buildKey joins non-empty parts with ':' under the client namespace.
func (c *Client) buildKey(parts ...string) string {
	clean := []string{c.prefix()}
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			clean = append(clean, part)
		}
	}
	return strings.Join(clean, ":")
}
