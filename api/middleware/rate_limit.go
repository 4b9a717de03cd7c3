package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/ttml-backend/api/responses"
	"github.com/angelmondragon/ttml-backend/internal/audit"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

type fixedWindowStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy is a fixed window applied per endpoint and caller.
type RateLimitPolicy struct {
	Endpoint string
	Limit    int
	Window   time.Duration
}

func (p RateLimitPolicy) enabled() bool {
	return p.Limit > 0 && p.Window > 0
}

// RateLimit counts requests per endpoint, keyed by the authenticated user or the client ip.
// Blocked requests get RATE_LIMIT_EXCEEDED and an audit row.
func RateLimit(policy RateLimitPolicy, store fixedWindowStore, rec audit.Recorder, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		if rec == nil {
			rec = audit.Nop{}
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			subject := "ip:" + audit.ClientIP(r)
			actor, authenticated := ActorFromContext(ctx)
			if authenticated {
				subject = "user:" + actor.UserID.String()
			}
			scope := fmt.Sprintf("%s:%s", strings.ToLower(policy.Endpoint), subject)

			allowed, count, err := store.FixedWindowAllow(ctx, scope, int64(policy.Limit), policy.Window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !allowed {
				var userID *uuid.UUID
				if authenticated {
					userID = &actor.UserID
				}
				rejectRateLimited(ctx, w, r, rec, logg, rateLimitHit{
					endpoint: policy.Endpoint,
					scope:    "caller",
					window:   policy.Window,
					count:    count,
					limit:    policy.Limit,
					userID:   userID,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type rateLimitHit struct {
	endpoint string
	scope    string
	window   time.Duration
	count    int64
	limit    int
	userID   *uuid.UUID
	extra    map[string]any
}

// rejectRateLimited answers 429 with Retry-After and leaves an audit row.
func rejectRateLimited(ctx context.Context, w http.ResponseWriter, r *http.Request, rec audit.Recorder, logg *logger.Logger, hit rateLimitHit) {
	meta := map[string]any{"attempts": hit.count, "limit": hit.limit, "scope": hit.scope}
	for k, v := range hit.extra {
		meta[k] = v
	}
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"endpoint": hit.endpoint,
			"scope":    hit.scope,
			"attempts": hit.count,
			"limit":    hit.limit,
		}), "rate_limit.blocked")
	}
	rec.Record(ctx, audit.Entry{
		UserID:       hit.userID,
		EventType:    enums.AuditRateLimitExceeded,
		Action:       hit.endpoint,
		ResourceType: "endpoint",
		ResourceID:   r.URL.Path,
		Metadata:     meta,
	})
	w.Header().Set("Retry-After", strconv.Itoa(int(hit.window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}
