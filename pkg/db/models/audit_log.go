package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/ttml-backend/pkg/enums"
)

// AuditLog is an append-only security/admin trail entry.
type AuditLog struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID       *uuid.UUID           `gorm:"column:user_id;type:uuid;index" json:"user_id,omitempty"`
	EventType    enums.AuditEventType `gorm:"column:event_type;not null" json:"event_type"`
	Action       string               `gorm:"column:action;not null" json:"action"`
	ResourceType *string              `gorm:"column:resource_type" json:"resource_type,omitempty"`
	ResourceID   *string              `gorm:"column:resource_id" json:"resource_id,omitempty"`
	IPAddress    *string              `gorm:"column:ip_address" json:"ip_address,omitempty"`
	UserAgent    *string              `gorm:"column:user_agent" json:"user_agent,omitempty"`
	Metadata     json.RawMessage      `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
