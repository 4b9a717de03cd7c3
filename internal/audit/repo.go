package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
)

const (
	DefaultQueryLimit = 100
	MaxQueryLimit     = 500
)

// Repository appends and queries audit rows.
type Repository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, query Query) ([]models.AuditLog, error)
}

// Query filters the admin audit listing.
type Query struct {
	UserID    *uuid.UUID
	EventType *enums.AuditEventType
	Start     *time.Time
	End       *time.Time
	Limit     int
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) List(ctx context.Context, query Query) ([]models.AuditLog, error) {
	q := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if query.UserID != nil {
		q = q.Where("user_id = ?", *query.UserID)
	}
	if query.EventType != nil {
		q = q.Where("event_type = ?", *query.EventType)
	}
	if query.Start != nil {
		q = q.Where("created_at >= ?", query.Start.UTC())
	}
	if query.End != nil {
		q = q.Where("created_at <= ?", query.End.UTC())
	}

	var rows []models.AuditLog
	err := q.Order("created_at DESC").Order("id DESC").Limit(normalizeLimit(query.Limit)).Find(&rows).Error
	return rows, err
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return limit
}
