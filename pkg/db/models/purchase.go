package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase is the append-only receipt of a checkout.
type Purchase struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	SubscriptionID  uuid.UUID       `gorm:"column:subscription_id;type:uuid;not null" json:"subscription_id"`
	Plan            string          `gorm:"column:plan;not null" json:"plan"`
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	DiscountPercent int             `gorm:"column:discount_percent;not null;default:0" json:"discount_percent"`
	CouponCode      *string         `gorm:"column:coupon_code" json:"coupon_code,omitempty"`
	PaymentProvider string          `gorm:"column:payment_provider;not null" json:"payment_provider"`
	PaymentID       string          `gorm:"column:payment_id;not null" json:"payment_id"`
	PaymentStatus   string          `gorm:"column:payment_status;not null" json:"payment_status"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Purchase) TableName() string { return "purchases" }
