package audit

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ttml-backend/pkg/db/dbtest"
	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
)

func TestRecordStampsRequestMeta(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	userID := uuid.New()

	ctx := WithRequestMeta(context.Background(), RequestMeta{IP: "203.0.113.9", UserAgent: "curl/8"})
	svc.Record(ctx, Entry{
		UserID:       &userID,
		EventType:    enums.AuditCouponCreated,
		Action:       "create",
		ResourceType: "coupon",
		ResourceID:   "SAVE20",
		Metadata:     map[string]any{"discount_percent": 20},
	})

	rows, err := svc.List(context.Background(), Query{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "203.0.113.9", *rows[0].IPAddress)
	assert.Equal(t, "curl/8", *rows[0].UserAgent)
	assert.Equal(t, "SAVE20", *rows[0].ResourceID)
	assert.JSONEq(t, `{"discount_percent":20}`, string(rows[0].Metadata))
}

func TestListFiltersAndLimits(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		svc.now = func() time.Time { return at }
		svc.Record(context.Background(), Entry{EventType: enums.AuditRateLimitExceeded, Action: "checkout"})
	}
	svc.Record(context.Background(), Entry{EventType: enums.AuditSecurityEvent, Action: "login_attempt"})

	eventType := enums.AuditRateLimitExceeded
	start := base.Add(30 * time.Minute)
	rows, err := svc.List(context.Background(), Query{EventType: &eventType, Start: &start})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = svc.List(context.Background(), Query{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

type failingRepo struct{ calls int }

func (f *failingRepo) Create(context.Context, *models.AuditLog) error {
	f.calls++
	return errors.New("db down")
}

func (f *failingRepo) List(context.Context, Query) ([]models.AuditLog, error) { return nil, nil }

func TestRecordSwallowsFailures(t *testing.T) {
	repo := &failingRepo{}
	svc := NewService(repo, nil)
	svc.Record(context.Background(), Entry{EventType: enums.AuditUserLogin, Action: "login"})
	assert.Equal(t, 1, repo.calls)

	svc.Record(context.Background(), Entry{EventType: "bogus", Action: "noop"})
	assert.Equal(t, 1, repo.calls, "unknown event types are dropped before the write")
}

func TestClientIPPrecedence(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:4444"
	assert.Equal(t, "10.0.0.1", ClientIP(req))

	req.Header.Set("X-Forwarded-For", " 198.51.100.2, 10.0.0.2")
	assert.Equal(t, "198.51.100.2", ClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.3")
	assert.Equal(t, "198.51.100.3", ClientIP(req))

	req.Header.Set("CF-Connecting-IP", "198.51.100.4")
	assert.Equal(t, "198.51.100.4", ClientIP(req))
}
