package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/ttml-backend/pkg/enums"
)

// Actor is the authenticated principal passed from handlers into services.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.RoleAdmin
}

// IsStaff reports whether the actor may read other users' letters.
func (a Actor) IsStaff() bool {
	return a.Role == enums.RoleAdmin || a.Role == enums.RoleEmployee
}

// Owns reports whether the actor is the given owner.
func (a Actor) Owns(ownerID uuid.UUID) bool {
	return a.UserID != uuid.Nil && a.UserID == ownerID
}
