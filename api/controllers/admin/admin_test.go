package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ttml-backend/api/middleware"
	"github.com/angelmondragon/ttml-backend/internal/audit"
	"github.com/angelmondragon/ttml-backend/internal/commissions"
	"github.com/angelmondragon/ttml-backend/internal/coupons"
	"github.com/angelmondragon/ttml-backend/internal/users"
	"github.com/angelmondragon/ttml-backend/pkg/auth"
	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/pagination"
)

var adminActor = auth.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}

func adminRequest(method, target, body string, id string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := middleware.WithActor(req.Context(), adminActor)
	if id != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

type stubUsers struct {
	query users.ListQuery
	role  enums.Role
	next  *pagination.Cursor
}

func (s *stubUsers) ListUsers(_ context.Context, query users.ListQuery) ([]users.UserDTO, *pagination.Cursor, error) {
	s.query = query
	return []users.UserDTO{{ID: uuid.New(), Email: "emp@example.com"}}, s.next, nil
}

func (s *stubUsers) ChangeRole(_ context.Context, _ auth.Actor, id uuid.UUID, role enums.Role) (*users.UserDTO, error) {
	s.role = role
	return &users.UserDTO{ID: id, Role: role}, nil
}

func TestListUsersFiltersAndPages(t *testing.T) {
	next := &pagination.Cursor{CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), ID: uuid.New()}
	svc := &stubUsers{next: next}
	resp := httptest.NewRecorder()
	ListUsers(svc, nil).ServeHTTP(resp, adminRequest(http.MethodGet, "/api/admin/users?role=employee&search=%20emp%20&limit=10", "", ""))

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, svc.query.Role)
	assert.Equal(t, enums.RoleEmployee, *svc.query.Role)
	assert.Equal(t, "emp", svc.query.Search)
	assert.Equal(t, 10, svc.query.Limit)

	var envelope struct {
		Data struct {
			Items      []users.UserDTO `json:"items"`
			NextCursor string          `json:"next_cursor"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Len(t, envelope.Data.Items, 1)
	assert.Equal(t, pagination.EncodeCursor(*next), envelope.Data.NextCursor)
}

func TestListUsersRejectsUnknownRole(t *testing.T) {
	resp := httptest.NewRecorder()
	ListUsers(&stubUsers{}, nil).ServeHTTP(resp, adminRequest(http.MethodGet, "/api/admin/users?role=owner", "", ""))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestChangeUserRole(t *testing.T) {
	svc := &stubUsers{}
	id := uuid.NewString()

	resp := httptest.NewRecorder()
	ChangeUserRole(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPatch, "/", `{"role":"employee"}`, id))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, enums.RoleEmployee, svc.role)

	resp = httptest.NewRecorder()
	ChangeUserRole(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPatch, "/", `{"role":"superuser"}`, id))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

type stubCoupons struct {
	created coupons.CreateCouponInput
	updated coupons.UpdateCouponInput
	query   coupons.ListQuery
	err     error
}

func (s *stubCoupons) CreateCoupon(_ context.Context, _ auth.Actor, input coupons.CreateCouponInput) (*models.Coupon, error) {
	s.created = input
	if s.err != nil {
		return nil, s.err
	}
	return &models.Coupon{ID: uuid.New(), Code: input.Code}, nil
}

func (s *stubCoupons) UpdateCoupon(_ context.Context, _ auth.Actor, id uuid.UUID, input coupons.UpdateCouponInput) (*models.Coupon, error) {
	s.updated = input
	return &models.Coupon{ID: id}, s.err
}

func (s *stubCoupons) ListCoupons(_ context.Context, query coupons.ListQuery) ([]models.Coupon, *pagination.Cursor, error) {
	s.query = query
	return nil, nil, s.err
}

func TestCreateCoupon(t *testing.T) {
	svc := &stubCoupons{}
	employee := uuid.New()
	body := `{"code":"SAVE10","employee_id":"` + employee.String() + `","discount_percent":10,"max_usage":5}`

	resp := httptest.NewRecorder()
	CreateCoupon(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPost, "/api/admin/coupons", body, ""))
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, employee, svc.created.EmployeeID)
	require.NotNil(t, svc.created.MaxUsage)
	assert.Equal(t, 5, *svc.created.MaxUsage)

	resp = httptest.NewRecorder()
	CreateCoupon(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPost, "/api/admin/coupons", `{"code":"X","employee_id":"`+employee.String()+`","discount_percent":150}`, ""))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	svc.err = pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
	resp = httptest.NewRecorder()
	CreateCoupon(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPost, "/api/admin/coupons", body, ""))
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestUpdateCouponPassesPatch(t *testing.T) {
	svc := &stubCoupons{}
	resp := httptest.NewRecorder()
	UpdateCoupon(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPatch, "/", `{"active":false,"clear_max_usage":true}`, uuid.NewString()))

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, svc.updated.Active)
	assert.False(t, *svc.updated.Active)
	assert.True(t, svc.updated.ClearMaxUsage)
	assert.Nil(t, svc.updated.DiscountPercent)
}

func TestListCouponsFilters(t *testing.T) {
	svc := &stubCoupons{}
	employee := uuid.New()
	resp := httptest.NewRecorder()
	ListCoupons(svc, nil).ServeHTTP(resp, adminRequest(http.MethodGet, "/api/admin/coupons?active=true&employee_id="+employee.String(), "", ""))

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, svc.query.Active)
	assert.True(t, *svc.query.Active)
	assert.Equal(t, employee, *svc.query.EmployeeID)

	resp = httptest.NewRecorder()
	ListCoupons(svc, nil).ServeHTTP(resp, adminRequest(http.MethodGet, "/api/admin/coupons?active=maybe", "", ""))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

type stubCommissions struct {
	paid, cancelled bool
	query           commissions.ListQuery
	err             error
}

func (s *stubCommissions) MarkCommissionPaid(_ context.Context, _ auth.Actor, id uuid.UUID) (*models.Commission, error) {
	s.paid = true
	return &models.Commission{ID: id, Status: enums.CommissionStatusPaid}, s.err
}

func (s *stubCommissions) CancelCommission(_ context.Context, _ auth.Actor, id uuid.UUID) (*models.Commission, error) {
	s.cancelled = true
	return &models.Commission{ID: id, Status: enums.CommissionStatusCancelled}, s.err
}

func (s *stubCommissions) List(_ context.Context, query commissions.ListQuery) ([]models.Commission, *pagination.Cursor, error) {
	s.query = query
	return nil, nil, nil
}

func TestCommissionTransitions(t *testing.T) {
	svc := &stubCommissions{}
	resp := httptest.NewRecorder()
	PayCommission(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPost, "/", "", uuid.NewString()))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, svc.paid)
	assert.False(t, svc.cancelled)

	resp = httptest.NewRecorder()
	CancelCommission(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPost, "/", "", uuid.NewString()))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, svc.cancelled)

	svc.err = pkgerrors.New(pkgerrors.CodeInvalidTransition, "commission already paid")
	resp = httptest.NewRecorder()
	CancelCommission(svc, nil).ServeHTTP(resp, adminRequest(http.MethodPost, "/", "", uuid.NewString()))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestListCommissionsStatusFilter(t *testing.T) {
	svc := &stubCommissions{}
	resp := httptest.NewRecorder()
	ListCommissions(svc, nil).ServeHTTP(resp, adminRequest(http.MethodGet, "/api/admin/commissions?status=pending", "", ""))
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, svc.query.Status)
	assert.Equal(t, enums.CommissionStatusPending, *svc.query.Status)
}

type stubAudit struct{ query audit.Query }

func (s *stubAudit) List(_ context.Context, query audit.Query) ([]models.AuditLog, error) {
	s.query = query
	return []models.AuditLog{}, nil
}

func TestListAuditLogs(t *testing.T) {
	svc := &stubAudit{}
	user := uuid.New()
	target := "/api/admin/audit-logs?user_id=" + user.String() + "&event_type=user_login&start=2026-01-01&end=2026-02-01"
	resp := httptest.NewRecorder()
	ListAuditLogs(svc, nil).ServeHTTP(resp, adminRequest(http.MethodGet, target, "", ""))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, audit.DefaultQueryLimit, svc.query.Limit)
	assert.Equal(t, user, *svc.query.UserID)
	assert.Equal(t, enums.AuditUserLogin, *svc.query.EventType)
	assert.Equal(t, time.January, svc.query.Start.Month())

	for _, bad := range []string{"?event_type=nope", "?start=2026-02-01&end=2026-01-01", "?limit=0"} {
		resp = httptest.NewRecorder()
		ListAuditLogs(svc, nil).ServeHTTP(resp, adminRequest(http.MethodGet, "/api/admin/audit-logs"+bad, "", ""))
		assert.Equal(t, http.StatusBadRequest, resp.Code, bad)
	}
}
