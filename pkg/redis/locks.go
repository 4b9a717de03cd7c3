package redis

import "context"

// compareAndDelete removes KEYS[1] only while it still holds ARGV[1].
const compareAndDelete = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// DeleteIfValue deletes key when its current value equals value, atomically.
// It reports whether the key was removed.
func (c *Client) DeleteIfValue(ctx context.Context, key, value string) (bool, error) {
	s, err := c.cmd()
	if err != nil {
		return false, err
	}
	n, err := s.Eval(ctx, compareAndDelete, []string{key}, value).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
