package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ttml-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return tx.Create(&event).Error
}

// FetchUnpublished returns pending rows oldest first, skipping terminally failed ones.
func (r *Repository) FetchUnpublished(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	var rows []models.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("published_at IS NULL AND failed_at IS NULL").
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"published_at": time.Now().UTC(),
		}).Error
}

// MarkFailed records the attempt and, once maxAttempts is reached, parks the row.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, cause error, maxAttempts int) error {
	updates := map[string]any{
		"last_error":    models.OutboxErrorText(cause),
		"attempt_count": gorm.Expr("attempt_count + 1"),
	}
	if maxAttempts > 0 {
		updates["failed_at"] = gorm.Expr("CASE WHEN attempt_count + 1 >= ? THEN ? ELSE NULL END", maxAttempts, time.Now().UTC())
	}
	return r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeletePublishedBefore removes at most limit delivered rows published before
// cutoff and reports how many went. Parked rows are never touched.
func (r *Repository) DeletePublishedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	ids := r.db.Model(&models.OutboxEvent{}).
		Select("id").
		Where("published_at IS NOT NULL AND published_at < ?", cutoff).
		Order("published_at ASC").
		Limit(limit)
	res := r.db.WithContext(ctx).Where("id IN (?)", ids).Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}

// CountParked reports rows that exhausted their attempts and wait for an operator.
func (r *Repository) CountParked(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("failed_at IS NOT NULL AND published_at IS NULL").
		Count(&n).Error
	return n, err
}
