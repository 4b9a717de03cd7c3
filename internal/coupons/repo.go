package coupons

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/pagination"
)

// Repository persists employee coupons.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, coupon *models.Coupon) error
	UpdateTerms(ctx context.Context, id uuid.UUID, columns map[string]any) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	IncrementUsage(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	List(ctx context.Context, query ListQuery) ([]models.Coupon, *pagination.Cursor, error)
}

// ListQuery filters coupon listings.
type ListQuery struct {
	EmployeeID *uuid.UUID
	Active     *bool
	pagination.Params
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

// UpdateTerms writes only the given columns, so usage recorded by concurrent
// redemptions survives. A new max_usage only applies while usage_count is
// still within it. It reports whether a row changed.
func (r *repository) UpdateTerms(ctx context.Context, id uuid.UUID, columns map[string]any) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.Coupon{}).Where("id = ?", id)
	if limit, ok := columns["max_usage"].(int); ok {
		q = q.Where("usage_count <= ?", limit)
	}
	res := q.Updates(columns)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).First(&coupon, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

// FindByCode matches the normalized code and returns nil when it does not exist.
func (r *repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).Where("code = ?", NormalizeCode(code)).First(&coupon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// IncrementUsage redeems one use when the coupon is active and under its cap,
// deactivating it when the redemption reaches the cap. It reports whether a row changed.
func (r *repository) IncrementUsage(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE employee_coupons
		SET usage_count = usage_count + 1,
			active = CASE WHEN max_usage IS NOT NULL AND usage_count + 1 >= max_usage THEN ? ELSE active END,
			updated_at = ?
		WHERE id = ? AND active = ? AND (max_usage IS NULL OR usage_count < max_usage)`,
		false, at, id, true,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Coupon, *pagination.Cursor, error) {
	q := r.db.WithContext(ctx).Model(&models.Coupon{})
	if query.EmployeeID != nil {
		q = q.Where("employee_id = ?", *query.EmployeeID)
	}
	if query.Active != nil {
		q = q.Where("active = ?", *query.Active)
	}
	q, limit, err := pagination.Scope(q, query.Params, "")
	if err != nil {
		return nil, nil, err
	}

	var rows []models.Coupon
	if err := q.Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	rows, next := pagination.Trim(rows, limit, func(row models.Coupon) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return rows, next, nil
}

// NormalizeCode upper-cases and trims a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
