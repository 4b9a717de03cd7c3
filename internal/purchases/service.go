package purchases

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ttml-backend/pkg/auth"
	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
)

type profileReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// PlanNamer resolves a plan id to its display name.
type PlanNamer func(planID string) (name string, basePrice string)

// Service exposes purchase history and receipts.
type Service struct {
	repo        Repository
	profiles    profileReader
	planNamer   PlanNamer
	companyName string
}

// ServiceParams groups dependencies for the purchase service.
type ServiceParams struct {
	Repository  Repository
	Profiles    profileReader
	PlanNamer   PlanNamer
	CompanyName string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("purchase repository required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile reader required")
	}
	namer := params.PlanNamer
	if namer == nil {
		namer = func(id string) (string, string) { return id, "" }
	}
	return &Service{
		repo:        params.Repository,
		profiles:    params.Profiles,
		planNamer:   namer,
		companyName: params.CompanyName,
	}, nil
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error) {
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchases")
	}
	return rows, nil
}

// Receipt renders the receipt PDF for a purchase owned by the actor (or any purchase for admins).
func (s *Service) Receipt(ctx context.Context, actor auth.Actor, id uuid.UUID) ([]byte, error) {
	purchase, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
	}
	if !actor.Owns(purchase.UserID) && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "purchase belongs to another user")
	}
	profile, err := s.profiles.FindByID(ctx, purchase.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchaser")
	}

	planName, basePrice := s.planNamer(purchase.Plan)
	if basePrice == "" {
		basePrice = "$" + purchase.Amount.StringFixed(2)
	}
	body, err := RenderReceipt(ReceiptData{
		CompanyName:   s.companyName,
		CustomerName:  profile.FullName,
		CustomerEmail: profile.Email,
		PlanName:      planName,
		BasePrice:     basePrice,
		Purchase:      *purchase,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render receipt")
	}
	return body, nil
}
