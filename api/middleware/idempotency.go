package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/ttml-backend/api/responses"
	"github.com/angelmondragon/ttml-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/ttml-backend/pkg/redis"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"

	defaultIdempotencyTTL   = 24 * time.Hour
	defaultInFlightTTL      = 2 * time.Minute
	maxIdempotencyKeyLength = 255
)

type recordState string

const (
	statePending recordState = "pending"
	stateDone    recordState = "done"
)

type idempotencyRecord struct {
	State       recordState `json:"state"`
	RequestHash string      `json:"request_hash"`
	Status      int         `json:"status,omitempty"`
	ContentType string      `json:"content_type,omitempty"`
	Body        []byte      `json:"body,omitempty"`
}

// Idempotency guards a mutating endpoint such as checkout or letter generation.
//
// The first request carrying an Idempotency-Key claims it for cfg.InFlightTTL. A
// duplicate that arrives while the claim is held gets 409; once the handler
// finishes, its response is kept for cfg.TTL and replayed verbatim to later
// duplicates. Reusing a key with a different body is rejected. 5xx responses
// release the claim so the client can retry. Requests without the header, or a
// nil store, pass straight through.
func Idempotency(store pkgredis.IdempotencyStore, cfg config.IdempotencyConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	inFlight := cfg.InFlightTTL
	if inFlight <= 0 {
		inFlight = defaultInFlightTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			if len(clientKey) > maxIdempotencyKeyLength {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := hashRequest(body)
			key := store.IdempotencyKey(requestScope(r), clientKey)

			claim, _ := json.Marshal(idempotencyRecord{State: statePending, RequestHash: hash})
			claimed, err := store.SetNX(ctx, key, string(claim), inFlight)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replayOrReject(ctx, w, store, key, hash, logg)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			// The outcome is recorded even if the client already hung up.
			persistCtx := context.WithoutCancel(ctx)
			status := capture.statusCode()
			if !settled(status) {
				logError(persistCtx, logg, "release idempotency key", store.Del(persistCtx, key))
				return
			}
			done, err := json.Marshal(idempotencyRecord{
				State:       stateDone,
				RequestHash: hash,
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err != nil {
				logError(persistCtx, logg, "marshal idempotency record", err)
				return
			}
			logError(persistCtx, logg, "persist idempotency record", store.Set(persistCtx, key, string(done), ttl))
		})
	}
}

func replayOrReject(ctx context.Context, w http.ResponseWriter, store pkgredis.IdempotencyStore, key, hash string, logg *logger.Logger) {
	stored, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// The claim lapsed between SetNX and Get; the client should simply retry.
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency record"))
		return
	}
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case record.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case record.State == statePending:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
	default:
		if record.ContentType != "" {
			w.Header().Set("Content-Type", record.ContentType)
		}
		w.Header().Set(ReplayedHeader, "true")
		w.WriteHeader(record.Status)
		_, _ = w.Write(record.Body)
	}
}

// settled reports whether a response is the request's outcome. Server errors
// and rate-limit rejections are not, so the key is freed for a retry.
func settled(status int) bool {
	return status < http.StatusInternalServerError && status != http.StatusTooManyRequests
}

// requestScope keeps keys from colliding across users and endpoints.
func requestScope(r *http.Request) string {
	return strings.Join([]string{UserIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
}

func hashRequest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
