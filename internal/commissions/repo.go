package commissions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	"github.com/angelmondragon/ttml-backend/pkg/pagination"
)

// Repository persists commissions. Amounts are written once and never recomputed.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, commission *models.Commission) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Commission, error)
	Transition(ctx context.Context, id uuid.UUID, from, to enums.CommissionStatus, paidAt *time.Time) (bool, error)
	List(ctx context.Context, query ListQuery) ([]models.Commission, *pagination.Cursor, error)
	Totals(ctx context.Context, employeeID uuid.UUID) (Totals, error)
}

// ListQuery filters commission listings.
type ListQuery struct {
	EmployeeID *uuid.UUID
	Status     *enums.CommissionStatus
	pagination.Params
}

// Totals aggregates an employee's commissions by status.
type Totals struct {
	Count     int             `json:"count"`
	Pending   decimal.Decimal `json:"pending"`
	Paid      decimal.Decimal `json:"paid"`
	Cancelled decimal.Decimal `json:"cancelled"`
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

func (r *repository) Create(ctx context.Context, commission *models.Commission) error {
	return r.db.WithContext(ctx).Create(commission).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Commission, error) {
	var commission models.Commission
	if err := r.db.WithContext(ctx).First(&commission, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &commission, nil
}

// Transition moves a commission between statuses only when it is still in from.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to enums.CommissionStatus, paidAt *time.Time) (bool, error) {
	updates := map[string]any{"status": to}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}
	res := r.db.WithContext(ctx).Model(&models.Commission{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Commission, *pagination.Cursor, error) {
	q := r.db.WithContext(ctx).Model(&models.Commission{})
	if query.EmployeeID != nil {
		q = q.Where("employee_id = ?", *query.EmployeeID)
	}
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	q, limit, err := pagination.Scope(q, query.Params, "")
	if err != nil {
		return nil, nil, err
	}

	var rows []models.Commission
	if err := q.Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	rows, next := pagination.Trim(rows, limit, func(row models.Commission) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return rows, next, nil
}

// Totals sums amounts in Go so decimal precision is kept on every driver.
func (r *repository) Totals(ctx context.Context, employeeID uuid.UUID) (Totals, error) {
	var rows []models.Commission
	if err := r.db.WithContext(ctx).
		Select("status", "amount").
		Where("employee_id = ?", employeeID).
		Find(&rows).Error; err != nil {
		return Totals{}, err
	}
	totals := Totals{Pending: decimal.Zero, Paid: decimal.Zero, Cancelled: decimal.Zero}
	for _, row := range rows {
		totals.Count++
		switch row.Status {
		case enums.CommissionStatusPending:
			totals.Pending = totals.Pending.Add(row.Amount)
		case enums.CommissionStatusPaid:
			totals.Paid = totals.Paid.Add(row.Amount)
		case enums.CommissionStatusCancelled:
			totals.Cancelled = totals.Cancelled.Add(row.Amount)
		}
	}
	return totals, nil
}
