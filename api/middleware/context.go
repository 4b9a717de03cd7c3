package middleware

import (
	"context"

	pkgAuth "github.com/angelmondragon/ttml-backend/pkg/auth"
)

type contextKey string

const (
	ctxActor    contextKey = "actor"
	ctxAccessID contextKey = "access_id"
)

// WithActor stores the authenticated principal on the context.
func WithActor(ctx context.Context, actor pkgAuth.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// ActorFromContext returns the principal set by Auth.
func ActorFromContext(ctx context.Context) (pkgAuth.Actor, bool) {
	if ctx == nil {
		return pkgAuth.Actor{}, false
	}
	actor, ok := ctx.Value(ctxActor).(pkgAuth.Actor)
	return actor, ok
}

func UserIDFromContext(ctx context.Context) string {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return ""
	}
	return actor.UserID.String()
}

func RoleFromContext(ctx context.Context) string {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return ""
	}
	return string(actor.Role)
}

// AccessIDFromContext returns the jti of the presented access token.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}
