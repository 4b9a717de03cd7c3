package coupons

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ttml-backend/internal/audit"
	"github.com/angelmondragon/ttml-backend/pkg/auth"
	"github.com/angelmondragon/ttml-backend/pkg/db"
	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/pagination"
)

const MaxCodeLength = 50

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validation is the structured answer to a coupon lookup.
type Validation struct {
	Valid           bool                       `json:"valid"`
	Reason          *enums.CouponInvalidReason `json:"reason,omitempty"`
	Code            string                     `json:"code"`
	DiscountPercent int                        `json:"discount_percent,omitempty"`
	ExpiresAt       *time.Time                 `json:"expires_at,omitempty"`
	Coupon          *models.Coupon             `json:"-"`
}

type roleReader interface {
	GetRole(ctx context.Context, userID uuid.UUID) (enums.Role, error)
}

// Service defines coupon lookups and admin management.
type Service interface {
	ValidateCoupon(ctx context.Context, code string) (*Validation, error)
	CreateCoupon(ctx context.Context, actor auth.Actor, input CreateCouponInput) (*models.Coupon, error)
	UpdateCoupon(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateCouponInput) (*models.Coupon, error)
	SetCouponActive(ctx context.Context, actor auth.Actor, id uuid.UUID, active bool) (*models.Coupon, error)
	ListCoupons(ctx context.Context, query ListQuery) ([]models.Coupon, *pagination.Cursor, error)
}

// ServiceParams groups dependencies for the coupon service.
type ServiceParams struct {
	Repository Repository
	Roles      roleReader
	Audit      audit.Recorder
	Now        func() time.Time
}

// CreateCouponInput is the admin payload for a new coupon.
type CreateCouponInput struct {
	Code            string
	EmployeeID      uuid.UUID
	DiscountPercent int
	MaxUsage        *int
	ExpiresAt       *time.Time
}

// UpdateCouponInput patches mutable coupon terms. Nil fields are left unchanged.
type UpdateCouponInput struct {
	DiscountPercent *int
	MaxUsage        *int
	ClearMaxUsage   bool
	ExpiresAt       *time.Time
	Active          *bool
}

type service struct {
	repo  Repository
	roles roleReader
	audit audit.Recorder
	now   func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if params.Roles == nil {
		return nil, fmt.Errorf("role reader required")
	}
	recorder := params.Audit
	if recorder == nil {
		recorder = audit.Nop{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repository, roles: params.Roles, audit: recorder, now: now}, nil
}

// CheckCodeFormat enforces the public code shape before any lookup.
func CheckCodeFormat(code string) error {
	trimmed := strings.TrimSpace(code)
	switch {
	case trimmed == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	case len(trimmed) > MaxCodeLength:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("coupon code must be at most %d characters", MaxCodeLength))
	case !codePattern.MatchString(trimmed):
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon code may only contain letters, digits, '-' and '_'")
	}
	return nil
}

// Evaluate returns why a coupon cannot be redeemed at now, or nil when it can.
// A coupon at its cap reports limit_reached even after it was auto-deactivated.
func Evaluate(coupon *models.Coupon, now time.Time) *enums.CouponInvalidReason {
	reason := func(r enums.CouponInvalidReason) *enums.CouponInvalidReason { return &r }
	switch {
	case coupon == nil:
		return reason(enums.CouponNotFound)
	case coupon.MaxUsage != nil && coupon.UsageCount >= *coupon.MaxUsage:
		return reason(enums.CouponLimitReached)
	case !coupon.Active:
		return reason(enums.CouponInactive)
	case coupon.ExpiresAt != nil && !coupon.ExpiresAt.After(now):
		return reason(enums.CouponExpired)
	}
	return nil
}

// ReasonError maps an invalid reason onto the error taxonomy.
func ReasonError(reason enums.CouponInvalidReason) error {
	if reason == enums.CouponLimitReached {
		return pkgerrors.New(pkgerrors.CodeCouponExhausted, reason.Message())
	}
	return pkgerrors.New(pkgerrors.CodeInvalidCoupon, reason.Message()).
		WithDetails(map[string]any{"reason": reason})
}

func (s *service) ValidateCoupon(ctx context.Context, code string) (*Validation, error) {
	normalized := NormalizeCode(code)
	coupon, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup coupon")
	}
	result := &Validation{Code: normalized, Coupon: coupon}
	if reason := Evaluate(coupon, s.now()); reason != nil {
		result.Reason = reason
		return result, nil
	}
	result.Valid = true
	result.DiscountPercent = coupon.DiscountPercent
	result.ExpiresAt = coupon.ExpiresAt
	return result, nil
}

func (s *service) CreateCoupon(ctx context.Context, actor auth.Actor, input CreateCouponInput) (*models.Coupon, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if err := CheckCodeFormat(input.Code); err != nil {
		return nil, err
	}
	if err := validateTerms(&input.DiscountPercent, input.MaxUsage); err != nil {
		return nil, err
	}
	if input.EmployeeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "employee_id is required")
	}
	role, err := s.roles.GetRole(ctx, input.EmployeeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load employee role")
	}
	if role != enums.RoleEmployee {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon owner must be an employee")
	}

	now := s.now().UTC()
	employeeID := input.EmployeeID
	coupon := &models.Coupon{
		ID:              uuid.New(),
		Code:            NormalizeCode(input.Code),
		EmployeeID:      &employeeID,
		DiscountPercent: input.DiscountPercent,
		MaxUsage:        input.MaxUsage,
		ExpiresAt:       input.ExpiresAt,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		if db.IsUniqueViolation(err, "employee_coupons_code_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}

	s.audit.Record(ctx, audit.Entry{
		UserID:       &actor.UserID,
		EventType:    enums.AuditCouponCreated,
		Action:       "create",
		ResourceType: "coupon",
		ResourceID:   coupon.ID.String(),
		Metadata: map[string]any{
			"code":             coupon.Code,
			"employee_id":      employeeID.String(),
			"discount_percent": coupon.DiscountPercent,
		},
	})
	return coupon, nil
}

func errMaxBelowUsage() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "max_usage cannot be below the current usage count")
}

// UpdateCoupon edits coupon terms. Existing commissions are never recomputed.
func (s *service) UpdateCoupon(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateCouponInput) (*models.Coupon, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if err := validateTerms(input.DiscountPercent, input.MaxUsage); err != nil {
		return nil, err
	}
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	changes := map[string]any{}
	if input.DiscountPercent != nil {
		changes["discount_percent"] = *input.DiscountPercent
	}
	if input.ClearMaxUsage {
		changes["max_usage"] = nil
	} else if input.MaxUsage != nil {
		if *input.MaxUsage < coupon.UsageCount {
			return nil, errMaxBelowUsage()
		}
		changes["max_usage"] = *input.MaxUsage
	}
	if input.ExpiresAt != nil {
		changes["expires_at"] = input.ExpiresAt.UTC()
	}
	if input.Active != nil {
		changes["active"] = *input.Active
	}
	if len(changes) == 0 {
		return coupon, nil
	}

	columns := maps.Clone(changes)
	columns["updated_at"] = s.now().UTC()
	updated, err := s.repo.UpdateTerms(ctx, id, columns)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update coupon")
	}
	if !updated {
		// Redemptions since the read pushed usage past the requested cap.
		return nil, errMaxBelowUsage()
	}
	coupon, err = s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload coupon")
	}

	s.audit.Record(ctx, audit.Entry{
		UserID:       &actor.UserID,
		EventType:    enums.AuditCouponUpdated,
		Action:       "update",
		ResourceType: "coupon",
		ResourceID:   coupon.ID.String(),
		Metadata:     changes,
	})
	return coupon, nil
}

func (s *service) SetCouponActive(ctx context.Context, actor auth.Actor, id uuid.UUID, active bool) (*models.Coupon, error) {
	return s.UpdateCoupon(ctx, actor, id, UpdateCouponInput{Active: &active})
}

func (s *service) ListCoupons(ctx context.Context, query ListQuery) ([]models.Coupon, *pagination.Cursor, error) {
	if _, err := pagination.ParseCursor(query.Cursor); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	return rows, next, nil
}

func validateTerms(discount *int, maxUsage *int) error {
	if discount != nil && (*discount < 1 || *discount > 100) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount_percent must be between 1 and 100")
	}
	if maxUsage != nil && *maxUsage < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "max_usage must be positive")
	}
	return nil
}
