package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/ttml-backend/pkg/enums"
)

// Subscription is a purchased plan carrying the owner's letter quota.
type Subscription struct {
	ID                uuid.UUID                `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Plan              string                   `gorm:"column:plan;not null" json:"plan"`
	Status            enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'active'" json:"status"`
	BasePrice         decimal.Decimal          `gorm:"column:base_price;type:numeric(12,2);not null" json:"base_price"`
	Price             decimal.Decimal          `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	DiscountPercent   int                      `gorm:"column:discount_percent;not null;default:0" json:"discount_percent"`
	CouponCode        *string                  `gorm:"column:coupon_code" json:"coupon_code,omitempty"`
	EmployeeID        *uuid.UUID               `gorm:"column:employee_id;type:uuid" json:"employee_id,omitempty"`
	LettersRemaining  int                      `gorm:"column:letters_remaining;not null" json:"letters_remaining"`
	MonthlyAllocation int                      `gorm:"column:monthly_allocation;not null" json:"monthly_allocation"`
	NextRefillDate    *time.Time               `gorm:"column:next_refill_date" json:"next_refill_date,omitempty"`
	ExpiresAt         time.Time                `gorm:"column:expires_at;not null" json:"expires_at"`
	CanceledAt        *time.Time               `gorm:"column:canceled_at" json:"canceled_at,omitempty"`
	PaymentID         string                   `gorm:"column:payment_id;not null" json:"payment_id"`
	CreatedAt         time.Time                `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time                `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

// IsUsable reports whether the subscription may still spend quota at now.
// Canceled subscriptions keep their remaining letters until expiry.
func (s Subscription) IsUsable(now time.Time) bool {
	if !s.ExpiresAt.After(now) {
		return false
	}
	return s.Status == enums.SubscriptionStatusActive || s.Status == enums.SubscriptionStatusCanceled
}

// RefillDue reports whether a monthly refill should be applied at now.
func (s Subscription) RefillDue(now time.Time) bool {
	return s.Status == enums.SubscriptionStatusActive &&
		s.ExpiresAt.After(now) &&
		s.NextRefillDate != nil &&
		!now.Before(*s.NextRefillDate)
}
