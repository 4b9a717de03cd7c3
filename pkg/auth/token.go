package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/ttml-backend/pkg/config"
)

var (
	ErrTokenExpired = errors.New("access token expired")
	ErrTokenInvalid = errors.New("access token invalid")
)

const clockSkew = 30 * time.Second

var signingMethod = jwt.SigningMethodHS256

// MintAccessToken signs an HS256 access token that expires after cfg.AccessTokenTTL.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if err := checkSigningConfig(cfg); err != nil {
		return "", err
	}
	ttl := cfg.AccessTokenTTL()
	if ttl <= 0 {
		return "", errors.New("jwt expiration minutes must be positive")
	}

	claims := &AccessTokenClaims{
		UserID: payload.UserID,
		Role:   payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        strings.TrimSpace(payload.JTI),
		},
	}
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}
	if err := claims.Validate(); err != nil {
		return "", fmt.Errorf("mint access token: %w", err)
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer, audience and lifetime.
// Failures wrap ErrTokenExpired or ErrTokenInvalid.
func ParseAccessToken(cfg config.JWTConfig, token string) (*AccessTokenClaims, error) {
	return parse(cfg, token, jwt.WithExpirationRequired(), jwt.WithLeeway(clockSkew))
}

// ParseAccessTokenAllowExpired skips the lifetime checks so a refresh can still
// read the jti of a token that has just lapsed. The signature is still verified.
func ParseAccessTokenAllowExpired(cfg config.JWTConfig, token string) (*AccessTokenClaims, error) {
	return parse(cfg, token, jwt.WithoutClaimsValidation())
}

func parse(cfg config.JWTConfig, token string, extra ...jwt.ParserOption) (*AccessTokenClaims, error) {
	if err := checkSigningConfig(cfg); err != nil {
		return nil, err
	}
	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	}, extra...)
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	claims := &AccessTokenClaims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	})
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}

func checkSigningConfig(cfg config.JWTConfig) error {
	switch {
	case cfg.Secret == "":
		return errors.New("jwt secret is required")
	case cfg.Issuer == "":
		return errors.New("jwt issuer is required")
	}
	return nil
}
