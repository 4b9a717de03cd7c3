package cron

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRedis struct {
	values map[string]string
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryRedis) DeleteIfValue(_ context.Context, key, value string) (bool, error) {
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockIsExclusiveAndOwnerChecked(t *testing.T) {
	store := &memoryRedis{values: map[string]string{}}
	first, err := NewRedisLock(store, "ttml:lock:cron", "worker-a", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "ttml:lock:cron", "worker-b", time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(store.values["ttml:lock:cron"], "worker-a/"))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, second.Release(ctx), "a non-owner release is a no-op")
	assert.Contains(t, store.values, "ttml:lock:cron")

	require.NoError(t, first.Release(ctx))
	assert.NotContains(t, store.values, "ttml:lock:cron")

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockReleaseAfterExpiryKeepsNewOwner(t *testing.T) {
	store := &memoryRedis{values: map[string]string{}}
	first, err := NewRedisLock(store, "ttml:lock:cron", "worker-a", time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// TTL lapsed and another worker took over.
	store.values["ttml:lock:cron"] = "worker-b/other"

	require.NoError(t, first.Release(ctx))
	assert.Equal(t, "worker-b/other", store.values["ttml:lock:cron"])
}

func TestNewRedisLockDefaults(t *testing.T) {
	_, err := NewRedisLock(nil, "k", "w", time.Minute)
	require.Error(t, err)
	_, err = NewRedisLock(&memoryRedis{}, "", "w", time.Minute)
	require.Error(t, err)

	lock, err := NewRedisLock(&memoryRedis{values: map[string]string{}}, "k", "", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, lock.TTL())
}
