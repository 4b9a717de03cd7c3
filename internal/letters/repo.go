package letters

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	"github.com/angelmondragon/ttml-backend/pkg/pagination"
)

// Repository persists letters. Status changes are guarded by the expected current status.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, letter *models.Letter) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Letter, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Letter, error)
	List(ctx context.Context, query ListQuery) ([]models.Letter, *pagination.Cursor, error)
	ListStuck(ctx context.Context, status enums.LetterStatus, before time.Time, limit int) ([]models.Letter, error)
	Transition(ctx context.Context, id uuid.UUID, from, to enums.LetterStatus, fields map[string]any) (bool, error)
	MarkSent(ctx context.Context, id uuid.UUID, attorneyEmail string, at time.Time) (bool, error)
}

// ListQuery filters the admin letter listing.
type ListQuery struct {
	UserID *uuid.UUID
	Status *enums.LetterStatus
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

func (r *repository) Create(ctx context.Context, letter *models.Letter) error {
	return r.db.WithContext(ctx).Create(letter).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Letter, error) {
	var letter models.Letter
	if err := r.db.WithContext(ctx).First(&letter, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &letter, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Letter, error) {
	var rows []models.Letter
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Letter, *pagination.Cursor, error) {
	q := r.db.WithContext(ctx).Model(&models.Letter{})
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

	var rows []models.Letter
	if err := q.Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	rows, next := pagination.Trim(rows, limit, func(row models.Letter) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return rows, next, nil
}

// ListStuck returns letters that have sat in status since before, oldest first.
func (r *repository) ListStuck(ctx context.Context, status enums.LetterStatus, before time.Time, limit int) ([]models.Letter, error) {
	var rows []models.Letter
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", status, before).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Transition moves a letter from one status to another and writes fields in the same update.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to enums.LetterStatus, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := r.db.WithContext(ctx).Model(&models.Letter{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkSent stamps delivery metadata on a completed letter without touching its status.
func (r *repository) MarkSent(ctx context.Context, id uuid.UUID, attorneyEmail string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Letter{}).
		Where("id = ? AND status = ?", id, enums.LetterStatusCompleted).
		UpdateColumns(map[string]any{
			"attorney_email": attorneyEmail,
			"sent_at":        at,
			"updated_at":     at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
