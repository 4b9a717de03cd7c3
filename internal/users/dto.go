package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID                    uuid.UUID       `json:"id"`
	Email                 string          `json:"email"`
	FullName              string          `json:"full_name"`
	Role                  enums.Role      `json:"role"`
	IsActive              bool            `json:"is_active"`
	SubscriptionTier      *string         `json:"subscription_tier,omitempty"`
	SubscriptionStatus    *string         `json:"subscription_status,omitempty"`
	SubscriptionExpiresAt *time.Time      `json:"subscription_expires_at,omitempty"`
	ReferralCount         int             `json:"referral_count"`
	TotalEarnings         decimal.Decimal `json:"total_earnings"`
	LastLoginAt           *time.Time      `json:"last_login_at,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FullName     string
	Role         enums.Role
}

func FromModel(p *models.Profile, role enums.Role) *UserDTO {
	if p == nil {
		return nil
	}
	return &UserDTO{
		ID:                    p.ID,
		Email:                 p.Email,
		FullName:              p.FullName,
		Role:                  role,
		IsActive:              p.IsActive,
		SubscriptionTier:      p.SubscriptionTier,
		SubscriptionStatus:    p.SubscriptionStatus,
		SubscriptionExpiresAt: p.SubscriptionExpiresAt,
		ReferralCount:         p.ReferralCount,
		TotalEarnings:         p.TotalEarnings,
		LastLoginAt:           p.LastLoginAt,
		CreatedAt:             p.CreatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.Profile {
	now := time.Now().UTC()
	return &models.Profile{
		ID:            uuid.New(),
		Email:         NormalizeEmail(c.Email),
		FullName:      c.FullName,
		PasswordHash:  c.PasswordHash,
		IsActive:      true,
		TotalEarnings: decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
