package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ttml-backend/internal/audit"
	"github.com/angelmondragon/ttml-backend/pkg/auth"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/pagination"
)

// Service backs the admin user management endpoints.
type Service interface {
	ListUsers(ctx context.Context, query ListQuery) ([]UserDTO, *pagination.Cursor, error)
	ChangeRole(ctx context.Context, actor auth.Actor, userID uuid.UUID, role enums.Role) (*UserDTO, error)
}

type ServiceParams struct {
	Repository Repository
	Audit      audit.Recorder
}

type service struct {
	repo  Repository
	audit audit.Recorder
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("users repository required")
	}
	rec := params.Audit
	if rec == nil {
		rec = audit.Nop{}
	}
	return &service{repo: params.Repository, audit: rec}, nil
}

func (s *service) ListUsers(ctx context.Context, query ListQuery) ([]UserDTO, *pagination.Cursor, error) {
	if query.Role != nil && !query.Role.IsValid() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role filter")
	}
	if _, err := pagination.ParseCursor(query.Cursor); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i].Profile, rows[i].Role))
	}
	return out, next, nil
}

// ChangeRole replaces the user's role row. Admins cannot demote themselves.
func (s *service) ChangeRole(ctx context.Context, actor auth.Actor, userID uuid.UUID, role enums.Role) (*UserDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if actor.UserID == userID && role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "admins cannot change their own role")
	}

	profile, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	previous, err := s.repo.GetRole(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load role")
	}
	if previous == role {
		return FromModel(profile, role), nil
	}
	if err := s.repo.SetRole(ctx, userID, role, actor.UserID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
	}

	s.audit.Record(ctx, audit.Entry{
		UserID:       &actor.UserID,
		EventType:    enums.AuditUserRoleChanged,
		Action:       "change_role",
		ResourceType: "profile",
		ResourceID:   userID.String(),
		Metadata:     map[string]any{"from": string(previous), "to": string(role)},
	})
	return FromModel(profile, role), nil
}
