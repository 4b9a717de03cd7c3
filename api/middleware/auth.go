package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/ttml-backend/api/responses"
	pkgAuth "github.com/angelmondragon/ttml-backend/pkg/auth"
	"github.com/angelmondragon/ttml-backend/pkg/auth/session"
	"github.com/angelmondragon/ttml-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

// Auth admits requests carrying a valid access token whose session is still
// live, and puts the actor and session id on the request context.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(r, cfg, verifier)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := context.WithValue(WithActor(r.Context(), claims.Actor()), ctxAccessID, claims.ID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
				ctx = logg.WithRole(ctx, string(claims.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, verifier session.AccessSessionChecker) (*pkgAuth.AccessTokenClaims, error) {
	token := BearerToken(r)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if errors.Is(err, pkgAuth.ErrTokenExpired) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "token expired")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}

	// A logout or refresh revokes the session before the token itself expires.
	if verifier != nil {
		live, err := verifier.HasSession(r.Context(), claims.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !live {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}
	return claims, nil
}

// BearerToken reads the Authorization header. The "Bearer" scheme is optional.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, token, ok := strings.Cut(raw, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return raw
}
