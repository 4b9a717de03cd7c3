package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/ttml-backend/internal/audit"
	"github.com/angelmondragon/ttml-backend/internal/users"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/security"
)

// Register creates the profile and its role row, then signs the new user in.
// A non-empty admin secret must match the configured signup secret or the call is rejected.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full_name is required")
	}
	if err := security.ValidatePasswordStrength(req.Password); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	role := enums.RoleUser
	if secret := strings.TrimSpace(req.AdminSecret); secret != "" {
		if !security.SecretsEqual(s.adminSecret, secret) {
			s.audit.Record(ctx, audit.Entry{
				EventType:    enums.AuditSecurityEvent,
				Action:       "admin_secret_rejected",
				ResourceType: "profile",
				Metadata:     map[string]any{"email": email},
			})
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "invalid admin secret")
		}
		role = enums.RoleAdmin
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		Role:         role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	s.audit.Record(ctx, audit.Entry{
		UserID:       &user.ID,
		EventType:    enums.AuditUserCreated,
		Action:       "register",
		ResourceType: "profile",
		ResourceID:   user.ID.String(),
		Metadata:     map[string]any{"role": string(role)},
	})
	if role == enums.RoleAdmin {
		s.audit.Record(ctx, audit.Entry{
			UserID:       &user.ID,
			EventType:    enums.AuditAdminSecretVerified,
			Action:       "register",
			ResourceType: "profile",
			ResourceID:   user.ID.String(),
		})
	}

	now, err := s.recordLogin(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, now, user, role)
}
