package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/ttml-backend/pkg/enums"
)

// Letter is a drafted legal letter and its generation state.
type Letter struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	SubscriptionID   *uuid.UUID         `gorm:"column:subscription_id;type:uuid" json:"subscription_id,omitempty"`
	LetterType       string             `gorm:"column:letter_type;not null" json:"letter_type"`
	UrgencyLevel     enums.UrgencyLevel `gorm:"column:urgency_level;not null;default:'standard'" json:"urgency_level"`
	Title            string             `gorm:"column:title;not null" json:"title"`
	Content          string             `gorm:"column:content;not null;default:''" json:"content"`
	RecipientName    string             `gorm:"column:recipient_name;not null;default:''" json:"recipient_name"`
	RecipientAddress string             `gorm:"column:recipient_address;not null;default:''" json:"recipient_address"`
	FormData         json.RawMessage    `gorm:"column:form_data;type:jsonb;not null" json:"form_data"`
	Status           enums.LetterStatus `gorm:"column:status;type:letter_status;not null;default:'draft'" json:"status"`
	FailureReason    *string            `gorm:"column:failure_reason" json:"failure_reason,omitempty"`
	AttorneyEmail    *string            `gorm:"column:attorney_email" json:"attorney_email,omitempty"`
	SentAt           *time.Time         `gorm:"column:sent_at" json:"sent_at,omitempty"`
	CompletedAt      *time.Time         `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Letter) TableName() string { return "letters" }
