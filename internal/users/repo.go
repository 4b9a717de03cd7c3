package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	"github.com/angelmondragon/ttml-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository exposes profile and role persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, dto CreateUserDTO) (*models.Profile, error)
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	GetRole(ctx context.Context, userID uuid.UUID) (enums.Role, error)
	SetRole(ctx context.Context, userID uuid.UUID, role enums.Role, updatedBy uuid.UUID) error
	List(ctx context.Context, query ListQuery) ([]UserWithRole, *pagination.Cursor, error)
	AddReferral(ctx context.Context, employeeID uuid.UUID, earnings decimal.Decimal) error
	UpdateSubscriptionMirror(ctx context.Context, userID uuid.UUID, mirror SubscriptionMirror) error
}

// ListQuery filters the admin user listing.
type ListQuery struct {
	Role   *enums.Role
	Search string
	pagination.Params
}

// UserWithRole joins a profile with its role row.
type UserWithRole struct {
	models.Profile
	Role enums.Role `gorm:"column:role"`
}

// SubscriptionMirror is the denormalized subscription summary kept on profiles.
type SubscriptionMirror struct {
	Tier      *string
	Status    string
	ExpiresAt *time.Time
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the profile and its default role row.
func (r *repository) Create(ctx context.Context, dto CreateUserDTO) (*models.Profile, error) {
	profile := dto.ToModel()
	role := dto.Role
	if role == "" {
		role = enums.RoleUser
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		return tx.Create(&models.UserRole{
			ID:        uuid.New(),
			UserID:    profile.ID,
			Role:      role,
			CreatedAt: profile.CreatedAt,
			UpdatedAt: profile.CreatedAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).
		Where("email = ?", NormalizeEmail(email)).
		First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

func (r *repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		UpdateColumn("password_hash", hash).Error
}

// GetRole returns the stored role, defaulting to user when no row exists.
func (r *repository) GetRole(ctx context.Context, userID uuid.UUID) (enums.Role, error) {
	var row models.UserRole
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return enums.RoleUser, nil
	}
	if err != nil {
		return "", err
	}
	return row.Role, nil
}

func (r *repository) SetRole(ctx context.Context, userID uuid.UUID, role enums.Role, updatedBy uuid.UUID) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Where("user_id = ?", userID).
		UpdateColumns(map[string]any{
			"role":       role,
			"updated_by": updatedBy,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&models.UserRole{
		ID:        uuid.New(),
		UserID:    userID,
		Role:      role,
		UpdatedBy: &updatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]UserWithRole, *pagination.Cursor, error) {
	q := r.db.WithContext(ctx).
		Table("profiles").
		Select("profiles.*, COALESCE(user_roles.role, 'user') AS role").
		Joins("LEFT JOIN user_roles ON user_roles.user_id = profiles.id")
	if query.Role != nil {
		q = q.Where("COALESCE(user_roles.role, 'user') = ?", *query.Role)
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("(LOWER(profiles.email) LIKE ? OR LOWER(profiles.full_name) LIKE ?)", like, like)
	}
	q, limit, err := pagination.Scope(q, query.Params, "profiles")
	if err != nil {
		return nil, nil, err
	}

	var rows []UserWithRole
	if err := q.Scan(&rows).Error; err != nil {
		return nil, nil, err
	}
	rows, next := pagination.Trim(rows, limit, func(row UserWithRole) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return rows, next, nil
}

const referralUpdateAttempts = 3

var errReferralContention = errors.New("referral earnings changed concurrently")

// AddReferral bumps the employee's referral counters. Earnings are swapped
// against the value read so concurrent checkouts never lose an increment.
func (r *repository) AddReferral(ctx context.Context, employeeID uuid.UUID, earnings decimal.Decimal) error {
	for attempt := 0; attempt < referralUpdateAttempts; attempt++ {
		var current string
		if err := r.db.WithContext(ctx).
			Raw("SELECT total_earnings FROM profiles WHERE id = ?", employeeID).
			Scan(&current).Error; err != nil {
			return err
		}
		if current == "" {
			return gorm.ErrRecordNotFound
		}
		base, err := decimal.NewFromString(current)
		if err != nil {
			return err
		}
		res := r.db.WithContext(ctx).
			Model(&models.Profile{}).
			Where("id = ? AND total_earnings = ?", employeeID, current).
			UpdateColumns(map[string]any{
				"referral_count": gorm.Expr("referral_count + 1"),
				"total_earnings": base.Add(earnings).StringFixed(2),
				"updated_at":     time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
	}
	return errReferralContention
}

func (r *repository) UpdateSubscriptionMirror(ctx context.Context, userID uuid.UUID, mirror SubscriptionMirror) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", userID).
		UpdateColumns(map[string]any{
			"subscription_tier":       mirror.Tier,
			"subscription_status":     mirror.Status,
			"subscription_expires_at": mirror.ExpiresAt,
			"updated_at":              time.Now().UTC(),
		}).Error
}

// NormalizeEmail lower-cases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
