package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/ttml-backend/internal/audit"
	"github.com/angelmondragon/ttml-backend/pkg/auth"
	"github.com/angelmondragon/ttml-backend/pkg/db/dbtest"
	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
)

var fixedNow = time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

type stubRoles map[uuid.UUID]enums.Role

func (s stubRoles) GetRole(_ context.Context, id uuid.UUID) (enums.Role, error) {
	if role, ok := s[id]; ok {
		return role, nil
	}
	return enums.RoleUser, nil
}

type recordedAudit struct{ entries []audit.Entry }

func (r *recordedAudit) Record(_ context.Context, e audit.Entry) { r.entries = append(r.entries, e) }

func intPtr(v int) *int { return &v }

func seedCoupon(t *testing.T, conn *gorm.DB, c models.Coupon) *models.Coupon {
	t.Helper()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = fixedNow
	c.UpdatedAt = fixedNow
	require.NoError(t, conn.Create(&c).Error)
	return &c
}

func newTestService(t *testing.T, conn *gorm.DB, roles stubRoles, rec audit.Recorder) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		Roles:      roles,
		Audit:      rec,
		Now:        func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return svc
}

func TestValidateCouponIsCaseInsensitive(t *testing.T) {
	conn := dbtest.Open(t)
	seedCoupon(t, conn, models.Coupon{Code: "SAVE10", DiscountPercent: 10, Active: true})
	svc := newTestService(t, conn, stubRoles{}, nil)

	lower, err := svc.ValidateCoupon(context.Background(), "save10")
	require.NoError(t, err)
	upper, err := svc.ValidateCoupon(context.Background(), "SAVE10")
	require.NoError(t, err)

	assert.True(t, lower.Valid)
	assert.Equal(t, upper.Valid, lower.Valid)
	assert.Equal(t, upper.Code, lower.Code)
	assert.Equal(t, upper.DiscountPercent, lower.DiscountPercent)
	assert.Equal(t, 10, lower.DiscountPercent)
}

func TestValidateCouponReasons(t *testing.T) {
	conn := dbtest.Open(t)
	past := fixedNow.Add(-time.Hour)
	seedCoupon(t, conn, models.Coupon{Code: "OFF", DiscountPercent: 5, Active: false})
	seedCoupon(t, conn, models.Coupon{Code: "OLD", DiscountPercent: 5, Active: true, ExpiresAt: &past})
	seedCoupon(t, conn, models.Coupon{Code: "FULL", DiscountPercent: 5, Active: false, UsageCount: 3, MaxUsage: intPtr(3)})
	svc := newTestService(t, conn, stubRoles{}, nil)

	cases := map[string]enums.CouponInvalidReason{
		"missing": enums.CouponNotFound,
		"off":     enums.CouponInactive,
		"old":     enums.CouponExpired,
		"full":    enums.CouponLimitReached,
	}
	for code, want := range cases {
		res, err := svc.ValidateCoupon(context.Background(), code)
		require.NoError(t, err)
		assert.False(t, res.Valid, code)
		require.NotNil(t, res.Reason, code)
		assert.Equal(t, want, *res.Reason, code)
	}
}

func TestReasonErrorTaxonomy(t *testing.T) {
	assert.True(t, pkgerrors.IsCode(ReasonError(enums.CouponLimitReached), pkgerrors.CodeCouponExhausted))
	assert.True(t, pkgerrors.IsCode(ReasonError(enums.CouponInactive), pkgerrors.CodeInvalidCoupon))
	assert.True(t, pkgerrors.IsCode(ReasonError(enums.CouponNotFound), pkgerrors.CodeInvalidCoupon))
}

func TestCheckCodeFormat(t *testing.T) {
	assert.NoError(t, CheckCodeFormat("SAVE_20-x"))
	assert.Error(t, CheckCodeFormat(""))
	assert.Error(t, CheckCodeFormat("has space"))
	assert.Error(t, CheckCodeFormat("bad!"))
	long := make([]byte, MaxCodeLength+1)
	for i := range long {
		long[i] = 'A'
	}
	assert.Error(t, CheckCodeFormat(string(long)))
}

func TestIncrementUsageDeactivatesAtCap(t *testing.T) {
	conn := dbtest.Open(t)
	coupon := seedCoupon(t, conn, models.Coupon{Code: "TWICE", DiscountPercent: 10, Active: true, MaxUsage: intPtr(2)})
	repo := NewRepository(conn)
	ctx := context.Background()

	ok, err := repo.IncrementUsage(ctx, coupon.ID, fixedNow)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IncrementUsage(ctx, coupon.ID, fixedNow)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IncrementUsage(ctx, coupon.ID, fixedNow)
	require.NoError(t, err)
	assert.False(t, ok, "third redemption must be refused")

	stored, err := repo.FindByID(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.UsageCount)
	assert.False(t, stored.Active)
}

func TestIncrementUsageUnlimited(t *testing.T) {
	conn := dbtest.Open(t)
	coupon := seedCoupon(t, conn, models.Coupon{Code: "FOREVER", DiscountPercent: 10, Active: true})
	repo := NewRepository(conn)

	for i := 0; i < 5; i++ {
		ok, err := repo.IncrementUsage(context.Background(), coupon.ID, fixedNow)
		require.NoError(t, err)
		require.True(t, ok)
	}
	stored, err := repo.FindByID(context.Background(), coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.UsageCount)
	assert.True(t, stored.Active)
}

func TestCreateCoupon(t *testing.T) {
	conn := dbtest.Open(t)
	employeeID := uuid.New()
	adminID := uuid.New()
	rec := &recordedAudit{}
	svc := newTestService(t, conn, stubRoles{employeeID: enums.RoleEmployee}, rec)
	admin := auth.Actor{UserID: adminID, Role: enums.RoleAdmin}

	coupon, err := svc.CreateCoupon(context.Background(), admin, CreateCouponInput{
		Code:            "spring25",
		EmployeeID:      employeeID,
		DiscountPercent: 25,
	})
	require.NoError(t, err)
	assert.Equal(t, "SPRING25", coupon.Code)
	assert.True(t, coupon.Active)
	require.Len(t, rec.entries, 1)
	assert.Equal(t, enums.AuditCouponCreated, rec.entries[0].EventType)

	_, err = svc.CreateCoupon(context.Background(), admin, CreateCouponInput{Code: "SPRING25", EmployeeID: employeeID, DiscountPercent: 10})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "duplicate code: %v", err)

	_, err = svc.CreateCoupon(context.Background(), admin, CreateCouponInput{Code: "X1", EmployeeID: uuid.New(), DiscountPercent: 10})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "non-employee owner: %v", err)

	_, err = svc.CreateCoupon(context.Background(), admin, CreateCouponInput{Code: "X2", EmployeeID: employeeID, DiscountPercent: 0})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "zero discount: %v", err)

	_, err = svc.CreateCoupon(context.Background(), auth.Actor{UserID: employeeID, Role: enums.RoleEmployee}, CreateCouponInput{Code: "X3", EmployeeID: employeeID, DiscountPercent: 10})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "non-admin: %v", err)
}

func TestUpdateCoupon(t *testing.T) {
	conn := dbtest.Open(t)
	coupon := seedCoupon(t, conn, models.Coupon{Code: "EDIT", DiscountPercent: 10, Active: true, UsageCount: 4})
	rec := &recordedAudit{}
	svc := newTestService(t, conn, stubRoles{}, rec)
	admin := auth.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}

	updated, err := svc.UpdateCoupon(context.Background(), admin, coupon.ID, UpdateCouponInput{DiscountPercent: intPtr(30)})
	require.NoError(t, err)
	assert.Equal(t, 30, updated.DiscountPercent)

	_, err = svc.UpdateCoupon(context.Background(), admin, coupon.ID, UpdateCouponInput{MaxUsage: intPtr(2)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	disabled, err := svc.SetCouponActive(context.Background(), admin, coupon.ID, false)
	require.NoError(t, err)
	assert.False(t, disabled.Active)

	_, err = svc.SetCouponActive(context.Background(), admin, uuid.New(), true)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	assert.Len(t, rec.entries, 2)
}

// redeemAfterRead lets one checkout redeem the coupon between the admin's read
// and write.
type redeemAfterRead struct {
	Repository
	redeemed bool
}

func (r *redeemAfterRead) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	coupon, err := r.Repository.FindByID(ctx, id)
	if err != nil || r.redeemed {
		return coupon, err
	}
	r.redeemed = true
	if _, err := r.Repository.IncrementUsage(ctx, id, fixedNow); err != nil {
		return nil, err
	}
	return coupon, nil
}

func TestUpdateCouponKeepsConcurrentRedemptions(t *testing.T) {
	conn := dbtest.Open(t)
	admin := auth.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}

	newSvc := func() Service {
		svc, err := NewService(ServiceParams{
			Repository: &redeemAfterRead{Repository: NewRepository(conn)},
			Roles:      stubRoles{},
			Now:        func() time.Time { return fixedNow },
		})
		require.NoError(t, err)
		return svc
	}

	t.Run("discount edit", func(t *testing.T) {
		coupon := seedCoupon(t, conn, models.Coupon{Code: "RACE1", DiscountPercent: 20, Active: true})

		updated, err := newSvc().UpdateCoupon(context.Background(), admin, coupon.ID, UpdateCouponInput{DiscountPercent: intPtr(25)})
		require.NoError(t, err)
		assert.Equal(t, 25, updated.DiscountPercent)
		assert.Equal(t, 1, updated.UsageCount)

		var stored models.Coupon
		require.NoError(t, conn.First(&stored, "id = ?", coupon.ID).Error)
		assert.Equal(t, 1, stored.UsageCount)
		assert.Equal(t, 25, stored.DiscountPercent)
	})

	t.Run("edit does not revive a coupon that hit its cap", func(t *testing.T) {
		coupon := seedCoupon(t, conn, models.Coupon{Code: "RACE2", DiscountPercent: 20, Active: true, MaxUsage: intPtr(3), UsageCount: 2})
		expires := fixedNow.Add(48 * time.Hour)

		updated, err := newSvc().UpdateCoupon(context.Background(), admin, coupon.ID, UpdateCouponInput{ExpiresAt: &expires})
		require.NoError(t, err)
		assert.Equal(t, 3, updated.UsageCount)
		assert.False(t, updated.Active)
	})

	t.Run("cap below usage reached since the read", func(t *testing.T) {
		coupon := seedCoupon(t, conn, models.Coupon{Code: "RACE3", DiscountPercent: 20, Active: true, UsageCount: 2})

		_, err := newSvc().UpdateCoupon(context.Background(), admin, coupon.ID, UpdateCouponInput{MaxUsage: intPtr(2)})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

		var stored models.Coupon
		require.NoError(t, conn.First(&stored, "id = ?", coupon.ID).Error)
		assert.Equal(t, 3, stored.UsageCount)
		assert.Nil(t, stored.MaxUsage)
	})
}

func TestListCouponsByEmployee(t *testing.T) {
	conn := dbtest.Open(t)
	employeeID := uuid.New()
	seedCoupon(t, conn, models.Coupon{Code: "MINE1", DiscountPercent: 10, Active: true, EmployeeID: &employeeID})
	seedCoupon(t, conn, models.Coupon{Code: "MINE2", DiscountPercent: 10, Active: false, EmployeeID: &employeeID})
	seedCoupon(t, conn, models.Coupon{Code: "OTHER", DiscountPercent: 10, Active: true})
	svc := newTestService(t, conn, stubRoles{}, nil)

	rows, next, err := svc.ListCoupons(context.Background(), ListQuery{EmployeeID: &employeeID})
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Len(t, rows, 2)

	active := true
	rows, _, err = svc.ListCoupons(context.Background(), ListQuery{EmployeeID: &employeeID, Active: &active})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "MINE1", rows[0].Code)
}
