package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/ttml-backend/pkg/enums"
)

// Commission records the employee share of a coupon-driven sale.
type Commission struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	EmployeeID     uuid.UUID              `gorm:"column:employee_id;type:uuid;not null;index" json:"employee_id"`
	SubscriptionID uuid.UUID              `gorm:"column:subscription_id;type:uuid;not null" json:"subscription_id"`
	Amount         decimal.Decimal        `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Status         enums.CommissionStatus `gorm:"column:status;type:commission_status;not null;default:'pending'" json:"status"`
	PaidAt         *time.Time             `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Commission) TableName() string { return "commissions" }
