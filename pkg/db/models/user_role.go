package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/ttml-backend/pkg/enums"
)

// UserRole holds the single platform role of a profile.
type UserRole struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Role      enums.Role `gorm:"column:role;type:user_role;not null;default:'user'"`
	UpdatedBy *uuid.UUID `gorm:"column:updated_by;type:uuid"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (UserRole) TableName() string { return "user_roles" }
