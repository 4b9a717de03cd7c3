package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ttml-backend/pkg/enums"
)

func loginRequest(email, ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"hunter22"}`))
	req.RemoteAddr = ip + ":5678"
	return req
}

func TestAuthRateLimitAllowsUnderLimitAndKeepsBody(t *testing.T) {
	store := &windowStore{counts: map[string]int64{}}
	policy := AuthRateLimitPolicy{Endpoint: "login", Window: time.Minute, IPLimit: 2, EmailLimit: 2}
	handler := AuthRateLimit(policy, store, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"email":"client@example.com"`)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("client@example.com", "1.2.3.4"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimitEmailLimitIgnoresCaseAndAddress(t *testing.T) {
	store := &windowStore{counts: map[string]int64{}}
	sink := &auditSink{}
	policy := AuthRateLimitPolicy{Endpoint: "login", Window: time.Minute, EmailLimit: 2}
	handler := AuthRateLimit(policy, store, sink, nil)(okHandler())

	attempts := []struct{ email, ip string }{
		{"victim@example.com", "10.0.0.1"},
		{"Victim@Example.com ", "10.0.0.2"},
		{"VICTIM@example.com", "10.0.0.3"},
	}
	var last *httptest.ResponseRecorder
	for i, a := range attempts {
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, loginRequest(a.email, a.ip))
		if i < 2 {
			assert.Equal(t, http.StatusOK, last.Code)
		}
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "60", last.Header().Get("Retry-After"))

	require.Len(t, sink.entries, 1)
	entry := sink.entries[0]
	assert.Equal(t, enums.AuditRateLimitExceeded, entry.EventType)
	assert.Equal(t, "login", entry.Action)
	assert.Equal(t, "email", entry.Metadata["scope"])
	digest, _ := entry.Metadata["email_hash"].(string)
	assert.Len(t, digest, 64)
	assert.NotContains(t, digest, "victim")
}

func TestAuthRateLimitIPLimitTriggers(t *testing.T) {
	store := &windowStore{counts: map[string]int64{}}
	sink := &auditSink{}
	policy := AuthRateLimitPolicy{Endpoint: "register", Window: 5 * time.Minute, IPLimit: 1}
	handler := AuthRateLimit(policy, store, sink, nil)(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, loginRequest("a@example.com", "5.6.7.8"))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, loginRequest("b@example.com", "5.6.7.8"))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "300", second.Header().Get("Retry-After"))
	require.Len(t, sink.entries, 1)
	assert.Equal(t, "ip", sink.entries[0].Metadata["scope"])
	assert.Nil(t, sink.entries[0].UserID)
}

func TestAuthRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := &windowStore{counts: map[string]int64{}}
	handler := AuthRateLimit(AuthRateLimitPolicy{Endpoint: "login"}, store, nil, nil)(okHandler())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("x@example.com", "1.1.1.1"))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Empty(t, store.counts)
}
