package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

// quietPrefixes are polled by load balancers; their completions log at debug.
var quietPrefixes = []string{"/health/"}

// Logging writes one line per request once the handler returns. The level
// follows the status: 5xx is an error, 4xx a warning, the rest info.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			r = r.WithContext(ctx)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := map[string]any{
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					fields["route"] = pattern
				}
			}
			ctx = logg.WithFields(ctx, fields)

			switch {
			case status >= http.StatusInternalServerError:
				logg.Error(ctx, "request failed", fmt.Errorf("status %d", status))
			case status >= http.StatusBadRequest:
				logg.Warn(ctx, "request rejected")
			case quiet(r.URL.Path):
				logg.Debug(ctx, "request completed")
			default:
				logg.Info(ctx, "request completed")
			}
		})
	}
}

func quiet(path string) bool {
	for _, prefix := range quietPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
