// Package session keeps refresh sessions in redis, one per issued access token.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/ttml-backend/pkg/config"
	redisclient "github.com/angelmondragon/ttml-backend/pkg/redis"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errAccessIDRequired    = errors.New("access id is required")
)

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// record is the stored value. Only the SHA-256 of the refresh token is kept.
type record struct {
	UserID   uuid.UUID `json:"uid"`
	Digest   string    `json:"digest"`
	IssuedAt time.Time `json:"iat"`
}

// Rotated is the result of a successful refresh.
type Rotated struct {
	UserID       uuid.UUID
	AccessID     string
	RefreshToken string
}

// Manager issues, rotates and revokes refresh sessions keyed by access token jti.
type Manager struct {
	store sessionStore
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return nil, errors.New("refresh token ttl must be positive")
	}
	if accessTTL := cfg.AccessTokenTTL(); ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return newManager(client, ttl), nil
}

func newManager(store sessionStore, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl, now: time.Now}
}

// Generate creates a refresh token bound to userID and the access id.
func (m *Manager) Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	if strings.TrimSpace(accessID) == "" {
		return "", errAccessIDRequired
	}
	token, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(record{UserID: userID, Digest: digest(token), IssuedAt: m.now().UTC()})
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), string(raw), m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Rotate consumes the session for oldAccessID and issues a new one. The old
// session is removed before the token is compared, so a refresh token works
// at most once and a wrong guess ends the session.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (*Rotated, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return nil, ErrInvalidRefreshToken
	}

	stored, err := m.store.GetDel(ctx, m.store.AccessSessionKey(oldAccessID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	var rec record
	if err := json.Unmarshal([]byte(stored), &rec); err != nil || rec.UserID == uuid.Nil {
		return nil, ErrInvalidRefreshToken
	}
	if subtle.ConstantTimeCompare([]byte(rec.Digest), []byte(digest(provided))) != 1 {
		return nil, ErrInvalidRefreshToken
	}

	accessID := NewAccessID()
	token, err := m.Generate(ctx, rec.UserID, accessID)
	if err != nil {
		return nil, err
	}
	return &Rotated{UserID: rec.UserID, AccessID: accessID, RefreshToken: token}, nil
}

// Revoke deletes the session tied to the access identifier.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errAccessIDRequired
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

// HasSession reports whether the access id still has a live refresh session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errAccessIDRequired
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redislib.Nil):
		return false, nil
	default:
		return false, err
	}
}

// NewAccessID produces the identifier used as JWT jti and redis key.
func NewAccessID() string {
	return uuid.NewString()
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
