package employees

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/ttml-backend/internal/commissions"
	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
)

// Stats is the employee dashboard summary.
type Stats struct {
	ReferralCount   int             `json:"referral_count"`
	TotalEarnings   decimal.Decimal `json:"total_earnings"`
	PendingEarnings decimal.Decimal `json:"pending_earnings"`
	PaidEarnings    decimal.Decimal `json:"paid_earnings"`
	Commissions     int             `json:"commissions"`
	CouponUsage     CouponUsage     `json:"coupon_usage"`
}

type profileReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type commissionTotals interface {
	Totals(ctx context.Context, employeeID uuid.UUID) (commissions.Totals, error)
}

// Service exposes the employee-facing aggregates.
type Service interface {
	Stats(ctx context.Context, employeeID uuid.UUID) (*Stats, error)
}

// ServiceParams groups dependencies for the employee service.
type ServiceParams struct {
	Repository  Repository
	Profiles    profileReader
	Commissions commissionTotals
}

type service struct {
	repo        Repository
	profiles    profileReader
	commissions commissionTotals
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("employees repository required")
	case params.Profiles == nil:
		return nil, fmt.Errorf("profile reader required")
	case params.Commissions == nil:
		return nil, fmt.Errorf("commission totals required")
	}
	return &service{
		repo:        params.Repository,
		profiles:    params.Profiles,
		commissions: params.Commissions,
	}, nil
}

// Stats combines the profile counters with live commission and coupon aggregates.
// total_earnings is the cumulative profile counter; pending and paid come from the ledger.
func (s *service) Stats(ctx context.Context, employeeID uuid.UUID) (*Stats, error) {
	profile, err := s.profiles.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "employee not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load employee")
	}
	totals, err := s.commissions.Totals(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	usage, err := s.repo.CouponUsage(ctx, employeeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "coupon usage")
	}
	return &Stats{
		ReferralCount:   profile.ReferralCount,
		TotalEarnings:   profile.TotalEarnings,
		PendingEarnings: totals.Pending,
		PaidEarnings:    totals.Paid,
		Commissions:     totals.Count,
		CouponUsage:     usage,
	}, nil
}
