package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ttml-backend/pkg/config"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
)

func testJWTConfig(minutes int) config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "ttml",
		Audience:          "ttml-api",
		ExpirationMinutes: minutes,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig(30)
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: userID, Role: enums.RoleEmployee, JTI: "jti-1"})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, enums.RoleEmployee, claims.Role)
	assert.Equal(t, "jti-1", claims.ID)
	assert.Equal(t, "ttml", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"ttml-api"}, claims.Audience)
	assert.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)

	actor := claims.Actor()
	assert.True(t, actor.IsStaff())
	assert.False(t, actor.IsAdmin())
	assert.True(t, actor.Owns(userID))
}

func TestMintAssignsJTIWhenMissing(t *testing.T) {
	cfg := testJWTConfig(5)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleUser})
	require.NoError(t, err)
	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	_, err = uuid.Parse(claims.ID)
	assert.NoError(t, err)
}

func TestParseAccessTokenRejectsTampering(t *testing.T) {
	cfg := testJWTConfig(10)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleUser})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token+"x")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	other := cfg
	other.Audience = "ttml-admin"
	_, err = ParseAccessToken(other, token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	other = cfg
	other.Issuer = "someone-else"
	_, err = ParseAccessToken(other, token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseAccessTokenRejectsOtherAlgorithms(t *testing.T) {
	cfg := testJWTConfig(10)
	claims := &AccessTokenClaims{
		UserID: uuid.New(),
		Role:   enums.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			ID:        "jti",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig(15)
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleAdmin})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	assert.ErrorIs(t, err, ErrTokenExpired)

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleAdmin, claims.Role)
}

func TestParseAccessTokenToleratesClockSkew(t *testing.T) {
	cfg := testJWTConfig(1)
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Minute-10*time.Second), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleUser})
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, token)
	assert.NoError(t, err)
}

func TestMintAccessTokenRejectsBadInput(t *testing.T) {
	cfg := testJWTConfig(5)
	_, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: "owner"})
	assert.Error(t, err)

	_, err = MintAccessToken(cfg, time.Now(), AccessTokenPayload{Role: enums.RoleUser})
	assert.Error(t, err)

	_, err = MintAccessToken(testJWTConfig(0), time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleUser})
	assert.Error(t, err)

	_, err = MintAccessToken(config.JWTConfig{Issuer: "ttml", ExpirationMinutes: 5}, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleUser})
	assert.Error(t, err)
}
