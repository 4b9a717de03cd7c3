package redis

import (
	"context"
	"time"
)

// IncrWithTTL increments key and makes sure it carries a TTL. EXPIRE NX runs on
// every hit, so a counter whose first expire was lost still ends up expiring,
// while later hits never extend the original window.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s, err := c.cmd()
	if err != nil {
		return 0, err
	}
	count, err := s.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if ttl > 0 {
		if err := s.ExpireNX(ctx, key, ttl).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

// FixedWindowAllow counts a hit against scope and reports whether it is within
// limit for the current window, along with the hits seen so far.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	count, err := c.IncrWithTTL(ctx, c.RateLimitKey(scope), window)
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}
