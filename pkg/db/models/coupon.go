package models

import (
	"time"

	"github.com/google/uuid"
)

// Coupon is an employee-owned discount code.
type Coupon struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Code            string     `gorm:"column:code;not null;uniqueIndex" json:"code"`
	EmployeeID      *uuid.UUID `gorm:"column:employee_id;type:uuid;index" json:"employee_id,omitempty"`
	DiscountPercent int        `gorm:"column:discount_percent;not null" json:"discount_percent"`
	UsageCount      int        `gorm:"column:usage_count;not null;default:0" json:"usage_count"`
	MaxUsage        *int       `gorm:"column:max_usage" json:"max_usage,omitempty"`
	ExpiresAt       *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	Active          bool       `gorm:"column:active;not null" json:"active"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Coupon) TableName() string { return "employee_coupons" }
