package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Profile is the canonical identity record. Profiles are deactivated, never deleted.
type Profile struct {
	ID                    uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Email                 string          `gorm:"column:email;type:text;not null;uniqueIndex"`
	FullName              string          `gorm:"column:full_name;not null"`
	PasswordHash          string          `gorm:"column:password_hash;not null"`
	IsActive              bool            `gorm:"column:is_active;not null"`
	SubscriptionTier      *string         `gorm:"column:subscription_tier"`
	SubscriptionStatus    *string         `gorm:"column:subscription_status"`
	SubscriptionExpiresAt *time.Time      `gorm:"column:subscription_expires_at"`
	ReferralCount         int             `gorm:"column:referral_count;not null;default:0"`
	TotalEarnings         decimal.Decimal `gorm:"column:total_earnings;type:numeric(12,2);not null;default:0"`
	LastLoginAt           *time.Time      `gorm:"column:last_login_at"`
	CreatedAt             time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Profile) TableName() string { return "profiles" }
