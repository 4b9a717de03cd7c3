package employees

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ttml-backend/pkg/db/models"
)

// CouponUsage summarises the coupons owned by one employee.
type CouponUsage struct {
	Coupons       int `json:"coupons"`
	ActiveCoupons int `json:"active_coupons"`
	Redemptions   int `json:"redemptions"`
}

// Repository runs the read-only aggregates behind employee stats.
type Repository interface {
	CouponUsage(ctx context.Context, employeeID uuid.UUID) (CouponUsage, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CouponUsage(ctx context.Context, employeeID uuid.UUID) (CouponUsage, error) {
	var usage CouponUsage
	err := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Select(`COUNT(*) AS coupons,
			COALESCE(SUM(CASE WHEN active THEN 1 ELSE 0 END), 0) AS active_coupons,
			COALESCE(SUM(usage_count), 0) AS redemptions`).
		Where("employee_id = ?", employeeID).
		Scan(&usage).Error
	return usage, err
}
