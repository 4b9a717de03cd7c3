package audit

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// RequestMeta is the client fingerprint stamped on audit rows.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type requestMetaKey struct{}

// WithRequestMeta stores the request fingerprint for services deeper in the stack.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if ctx == nil {
		return RequestMeta{}
	}
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}

// MetaFromRequest captures client ip and user agent.
func MetaFromRequest(r *http.Request) RequestMeta {
	if r == nil {
		return RequestMeta{}
	}
	return RequestMeta{IP: ClientIP(r), UserAgent: r.UserAgent()}
}

// ClientIP resolves the caller address, preferring CDN and proxy headers.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
