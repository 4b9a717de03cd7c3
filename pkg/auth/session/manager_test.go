package session

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	data map[string]string
	ttl  map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.data[key] = fmt.Sprint(value)
	m.ttl[key] = ttl
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *memoryStore) GetDel(ctx context.Context, key string) (string, error) {
	v, err := m.Get(ctx, key)
	delete(m.data, key)
	return v, err
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) AccessSessionKey(accessID string) string {
	return "sess:" + accessID
}

func newTestManager() (*Manager, *memoryStore) {
	store := newMemoryStore()
	m := newManager(store, time.Hour)
	m.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return m, store
}

func TestGenerateStoresDigestOnly(t *testing.T) {
	manager, store := newTestManager()
	userID := uuid.New()

	token, err := manager.Generate(context.Background(), userID, "access-1")
	require.NoError(t, err)
	assert.NotContains(t, store.data["sess:access-1"], token)
	assert.Equal(t, time.Hour, store.ttl["sess:access-1"])

	var rec record
	require.NoError(t, json.Unmarshal([]byte(store.data["sess:access-1"]), &rec))
	assert.Equal(t, userID, rec.UserID)
	assert.Equal(t, digest(token), rec.Digest)
	assert.True(t, manager.now().Equal(rec.IssuedAt))
}

func TestGenerateRequiresIdentity(t *testing.T) {
	manager, _ := newTestManager()
	_, err := manager.Generate(context.Background(), uuid.Nil, "access-1")
	assert.Error(t, err)
	_, err = manager.Generate(context.Background(), uuid.New(), " ")
	assert.ErrorIs(t, err, errAccessIDRequired)
}

func TestRotateIsSingleUse(t *testing.T) {
	manager, store := newTestManager()
	ctx := context.Background()
	userID := uuid.New()

	token, err := manager.Generate(ctx, userID, "access-1")
	require.NoError(t, err)

	rotated, err := manager.Rotate(ctx, "access-1", token)
	require.NoError(t, err)
	assert.Equal(t, userID, rotated.UserID)
	assert.NotEqual(t, token, rotated.RefreshToken)
	assert.NotContains(t, store.data, "sess:access-1")

	_, err = manager.Rotate(ctx, "access-1", token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "replay")

	ok, err := manager.HasSession(ctx, rotated.AccessID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRotateWithWrongTokenEndsSession(t *testing.T) {
	manager, _ := newTestManager()
	ctx := context.Background()

	token, err := manager.Generate(ctx, uuid.New(), "access-1")
	require.NoError(t, err)

	_, err = manager.Rotate(ctx, "access-1", "guess")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, err = manager.Rotate(ctx, "access-1", token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRotateRejectsGarbage(t *testing.T) {
	manager, store := newTestManager()
	ctx := context.Background()
	store.data["sess:legacy"] = "not-json"

	for _, tc := range []struct{ access, token string }{
		{"", "x"},
		{"access-1", ""},
		{"missing", "x"},
		{"legacy", "x"},
	} {
		_, err := manager.Rotate(ctx, tc.access, tc.token)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken, tc.access)
	}
}

func TestRevoke(t *testing.T) {
	manager, _ := newTestManager()
	ctx := context.Background()

	_, err := manager.Generate(ctx, uuid.New(), "access-2")
	require.NoError(t, err)
	require.NoError(t, manager.Revoke(ctx, "access-2"))

	ok, err := manager.HasSession(ctx, "access-2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, manager.Revoke(ctx, ""), errAccessIDRequired)
}
