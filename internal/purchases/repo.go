package purchases

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ttml-backend/pkg/db/models"
)

// Repository stores the append-only purchase ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, purchase *models.Purchase) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error)
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

func (r *repository) Create(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Create(purchase).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := r.db.WithContext(ctx).First(&purchase, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error) {
	var rows []models.Purchase
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
