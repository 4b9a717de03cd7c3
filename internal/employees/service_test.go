package employees

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ttml-backend/internal/commissions"
	"github.com/angelmondragon/ttml-backend/internal/users"
	"github.com/angelmondragon/ttml-backend/pkg/db/dbtest"
	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
)

func TestStatsAggregatesProfileCommissionsAndCoupons(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	userRepo := users.NewRepository(conn)
	commissionRepo := commissions.NewRepository(conn)

	employee, err := userRepo.Create(ctx, users.CreateUserDTO{Email: "emp@example.com", PasswordHash: "x", FullName: "Emp", Role: enums.RoleEmployee})
	require.NoError(t, err)
	other, err := userRepo.Create(ctx, users.CreateUserDTO{Email: "other@example.com", PasswordHash: "x", FullName: "Other", Role: enums.RoleEmployee})
	require.NoError(t, err)

	require.NoError(t, userRepo.AddReferral(ctx, employee.ID, decimal.RequireFromString("95.52")))
	require.NoError(t, userRepo.AddReferral(ctx, employee.ID, decimal.RequireFromString("14.95")))

	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	coupons := []models.Coupon{
		{ID: uuid.New(), Code: "SAVE20", EmployeeID: &employee.ID, DiscountPercent: 20, UsageCount: 2, Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New(), Code: "OLD10", EmployeeID: &employee.ID, DiscountPercent: 10, UsageCount: 5, Active: false, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New(), Code: "THEIRS", EmployeeID: &other.ID, DiscountPercent: 10, UsageCount: 9, Active: true, CreatedAt: now, UpdatedAt: now},
	}
	require.NoError(t, conn.Create(&coupons).Error)

	paidAt := now.Add(time.Hour)
	for _, c := range []models.Commission{
		{ID: uuid.New(), EmployeeID: employee.ID, SubscriptionID: uuid.New(), Amount: decimal.RequireFromString("95.52"), Status: enums.CommissionStatusPaid, PaidAt: &paidAt, CreatedAt: now},
		{ID: uuid.New(), EmployeeID: employee.ID, SubscriptionID: uuid.New(), Amount: decimal.RequireFromString("14.95"), Status: enums.CommissionStatusPending, CreatedAt: now},
		{ID: uuid.New(), EmployeeID: other.ID, SubscriptionID: uuid.New(), Amount: decimal.RequireFromString("50.00"), Status: enums.CommissionStatusPending, CreatedAt: now},
	} {
		c := c
		require.NoError(t, commissionRepo.Create(ctx, &c))
	}

	svc, err := NewService(ServiceParams{
		Repository:  NewRepository(conn),
		Profiles:    userRepo,
		Commissions: commissionRepo,
	})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, employee.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ReferralCount)
	assert.Equal(t, "110.47", stats.TotalEarnings.StringFixed(2))
	assert.Equal(t, "14.95", stats.PendingEarnings.StringFixed(2))
	assert.Equal(t, "95.52", stats.PaidEarnings.StringFixed(2))
	assert.Equal(t, 2, stats.Commissions)
	assert.Equal(t, CouponUsage{Coupons: 2, ActiveCoupons: 1, Redemptions: 7}, stats.CouponUsage)
}

func TestStatsUnknownEmployee(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(ServiceParams{
		Repository:  NewRepository(conn),
		Profiles:    users.NewRepository(conn),
		Commissions: commissions.NewRepository(conn),
	})
	require.NoError(t, err)

	_, err = svc.Stats(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestStatsWithoutActivity(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	userRepo := users.NewRepository(conn)
	employee, err := userRepo.Create(ctx, users.CreateUserDTO{Email: "new@example.com", PasswordHash: "x", FullName: "New", Role: enums.RoleEmployee})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repository:  NewRepository(conn),
		Profiles:    userRepo,
		Commissions: commissions.NewRepository(conn),
	})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, employee.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Commissions)
	assert.True(t, stats.PendingEarnings.IsZero())
	assert.Equal(t, CouponUsage{}, stats.CouponUsage)
}
