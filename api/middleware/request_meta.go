package middleware

import (
	"net/http"

	"github.com/angelmondragon/ttml-backend/internal/audit"
)

// RequestMeta captures client ip and user agent for audit rows written further down the stack.
func RequestMeta() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := audit.WithRequestMeta(r.Context(), audit.MetaFromRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
