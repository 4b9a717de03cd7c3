package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/ttml-backend/api/responses"
	"github.com/angelmondragon/ttml-backend/internal/audit"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

// maxAuthBody bounds how much of a login or register body is buffered to find the email.
const maxAuthBody = 64 << 10

// AuthRateLimitPolicy throttles an unauthenticated auth endpoint twice: by
// client ip, which slows credential stuffing, and by the email in the body,
// which slows guessing one account's password from many addresses.
type AuthRateLimitPolicy struct {
	Endpoint   string
	Window     time.Duration
	IPLimit    int
	EmailLimit int
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.Window > 0 && (p.IPLimit > 0 || p.EmailLimit > 0)
}

func (p AuthRateLimitPolicy) endpoint() string {
	if name := strings.ToLower(strings.TrimSpace(p.Endpoint)); name != "" {
		return name
	}
	return "auth"
}

// AuthRateLimit shares counters and rejection handling with RateLimit. Emails
// are only ever stored and logged as a sha256 digest.
func AuthRateLimit(policy AuthRateLimitPolicy, store fixedWindowStore, rec audit.Recorder, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		if rec == nil {
			rec = audit.Nop{}
		}
		endpoint := policy.endpoint()

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if ip := audit.ClientIP(r); policy.IPLimit > 0 && ip != "" {
				if !checkWindow(ctx, w, r, store, rec, logg, rateLimitHit{
					endpoint: endpoint,
					scope:    "ip",
					window:   policy.Window,
					limit:    policy.IPLimit,
				}, endpoint+":ip:"+ip) {
					return
				}
			}

			if policy.EmailLimit > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxAuthBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				if digest := emailDigest(body); digest != "" {
					if !checkWindow(ctx, w, r, store, rec, logg, rateLimitHit{
						endpoint: endpoint,
						scope:    "email",
						window:   policy.Window,
						limit:    policy.EmailLimit,
						extra:    map[string]any{"email_hash": digest},
					}, endpoint+":email:"+digest) {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// checkWindow counts one hit on scope and writes the rejection itself when over limit.
func checkWindow(ctx context.Context, w http.ResponseWriter, r *http.Request, store fixedWindowStore, rec audit.Recorder, logg *logger.Logger, hit rateLimitHit, scope string) bool {
	allowed, count, err := store.FixedWindowAllow(ctx, scope, int64(hit.limit), hit.window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		return false
	}
	if !allowed {
		hit.count = count
		rejectRateLimited(ctx, w, r, rec, logg, hit)
		return false
	}
	return true
}

func emailDigest(body []byte) string {
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}
