package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	"github.com/angelmondragon/ttml-backend/pkg/pagination"
)

// Repository persists subscriptions and their refill history.
// Quota mutations are conditional updates; callers check the returned flag.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sub *models.Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	SetPaymentID(ctx context.Context, id uuid.UUID, paymentID string) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error)
	ListUsable(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.Subscription, error)
	ListDueForRefill(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error)
	ListLapsed(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error)
	List(ctx context.Context, query ListQuery) ([]models.Subscription, *pagination.Cursor, error)
	DecrementRemaining(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	ApplyRefill(ctx context.Context, id uuid.UUID, observed time.Time, update RefillUpdate) (bool, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.SubscriptionStatus, at time.Time) (bool, error)
	CreateRefillHistory(ctx context.Context, row *models.RefillHistory) error
	CountRefills(ctx context.Context, subscriptionID uuid.UUID) (int64, error)
}

// ListQuery filters the admin subscription listing.
type ListQuery struct {
	UserID *uuid.UUID
	Status *enums.SubscriptionStatus
	pagination.Params
}

// RefillUpdate is the state written by a successful refill.
type RefillUpdate struct {
	LettersRemaining int
	NextRefillDate   time.Time
	At               time.Time
}

var usableStatuses = []enums.SubscriptionStatus{
	enums.SubscriptionStatusActive,
	enums.SubscriptionStatusCanceled,
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

func (r *repository) Create(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) SetPaymentID(ctx context.Context, id uuid.UUID, paymentID string) error {
	return r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ?", id).
		UpdateColumn("payment_id", paymentID).Error
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	var rows []models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// ListUsable returns unexpired active or canceled subscriptions, soonest expiry first.
func (r *repository) ListUsable(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.Subscription, error) {
	var rows []models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ? AND expires_at > ?", userID, usableStatuses, now).
		Order("expires_at ASC").
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListDueForRefill(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error) {
	var rows []models.Subscription
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_refill_date IS NOT NULL AND next_refill_date <= ? AND expires_at > ?",
			enums.SubscriptionStatusActive, now, now).
		Order("next_refill_date ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListLapsed(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error) {
	var rows []models.Subscription
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", enums.SubscriptionStatusActive, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Subscription, *pagination.Cursor, error) {
	q := r.db.WithContext(ctx).Model(&models.Subscription{})
	if query.UserID != nil {
		q = q.Where("user_id = ?", *query.UserID)
	}
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	q, limit, err := pagination.Scope(q, query.Params, "")
	if err != nil {
		return nil, nil, err
	}

	var rows []models.Subscription
	if err := q.Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	rows, next := pagination.Trim(rows, limit, func(row models.Subscription) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return rows, next, nil
}

// DecrementRemaining spends one letter when the subscription is usable and has quota left.
func (r *repository) DecrementRemaining(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE subscriptions
		SET letters_remaining = letters_remaining - 1, updated_at = ?
		WHERE id = ? AND status IN ? AND expires_at > ? AND letters_remaining > 0`,
		now, id, usableStatuses, now,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ApplyRefill resets the quota only when next_refill_date still equals observed,
// so a refill that raced with another one is a no-op.
func (r *repository) ApplyRefill(ctx context.Context, id uuid.UUID, observed time.Time, update RefillUpdate) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE subscriptions
		SET letters_remaining = ?, next_refill_date = ?, updated_at = ?
		WHERE id = ? AND status = ? AND next_refill_date = ?`,
		update.LettersRemaining, update.NextRefillDate, update.At,
		id, enums.SubscriptionStatusActive, observed,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.SubscriptionStatus, at time.Time) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": at}
	if to == enums.SubscriptionStatusCanceled {
		updates["canceled_at"] = at
	}
	res := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateRefillHistory(ctx context.Context, row *models.RefillHistory) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) CountRefills(ctx context.Context, subscriptionID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.RefillHistory{}).
		Where("subscription_id = ?", subscriptionID).
		Count(&n).Error
	return n, err
}
