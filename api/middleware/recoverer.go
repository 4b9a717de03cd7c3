package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/ttml-backend/api/responses"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

// Recoverer turns a handler panic into a 500 envelope and logs the stack.
// http.ErrAbortHandler is re-raised so net/http can drop the connection, and
// nothing is written when the handler already sent a status line.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				err := fmt.Errorf("panic: %v", rec)
				if logg != nil {
					ctx := logg.WithFields(r.Context(), map[string]any{
						"stack":        string(debug.Stack()),
						"method":       r.Method,
						"path":         r.URL.Path,
						"headers_sent": ww.Status() != 0,
						"request_id":   ww.Header().Get(responses.RequestIDHeader),
					})
					logg.Error(ctx, "handler panicked", err)
				}
				if ww.Status() != 0 {
					return
				}
				responses.WriteError(r.Context(), nil, ww, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
