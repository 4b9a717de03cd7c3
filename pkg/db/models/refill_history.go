package models

import (
	"time"

	"github.com/google/uuid"
)

type RefillHistory struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SubscriptionID uuid.UUID `gorm:"column:subscription_id;type:uuid;not null;index"`
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	LettersBefore  int       `gorm:"column:letters_before;not null"`
	LettersAfter   int       `gorm:"column:letters_after;not null"`
	RefilledAt     time.Time `gorm:"column:refilled_at;not null"`
	NextRefillDate time.Time `gorm:"column:next_refill_date;not null"`
}

func (RefillHistory) TableName() string { return "refill_history" }
