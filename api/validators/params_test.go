package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/pagination"
)

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", id.String())
	got, err := ParseUUIDParam(req, "id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	req = withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", "nope")
	_, err = ParseUUIDParam(req, "id")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParsePagination(t *testing.T) {
	cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), ID: uuid.New()})
	params, err := ParsePagination(httptest.NewRequest(http.MethodGet, "/?limit=10&cursor="+cursor, nil))
	require.NoError(t, err)
	assert.Equal(t, pagination.Params{Limit: 10, Cursor: cursor}, params)

	params, err = ParsePagination(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, pagination.DefaultLimit, params.Limit)

	for _, target := range []string{"/?limit=500", "/?limit=0", "/?limit=ten", "/?cursor=abc"} {
		_, err = ParsePagination(httptest.NewRequest(http.MethodGet, target, nil))
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), target)
	}
}

func TestParseOptionalBoolQuery(t *testing.T) {
	got, err := ParseOptionalBoolQuery(httptest.NewRequest(http.MethodGet, "/?active=false", nil), "active")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, *got)

	got, err = ParseOptionalBoolQuery(httptest.NewRequest(http.MethodGet, "/", nil), "active")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseOptionalBoolQuery(httptest.NewRequest(http.MethodGet, "/?active=maybe", nil), "active")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseOptionalQueries(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/?user_id="+id.String()+"&start=2026-01-02&end=2026-01-03T10:00:00Z", nil)

	gotID, err := ParseOptionalUUIDQuery(req, "user_id")
	require.NoError(t, err)
	require.NotNil(t, gotID)
	assert.Equal(t, id, *gotID)

	start, err := ParseOptionalTimeQuery(req, "start")
	require.NoError(t, err)
	assert.Equal(t, 2, start.Day())

	end, err := ParseOptionalTimeQuery(req, "end")
	require.NoError(t, err)
	assert.Equal(t, 10, end.Hour())

	missing, err := ParseOptionalTimeQuery(req, "other")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = ParseOptionalUUIDQuery(httptest.NewRequest(http.MethodGet, "/?user_id=x", nil), "user_id")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
