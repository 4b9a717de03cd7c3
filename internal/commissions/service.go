package commissions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/ttml-backend/internal/audit"
	"github.com/angelmondragon/ttml-backend/pkg/auth"
	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/outbox"
	"github.com/angelmondragon/ttml-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/ttml-backend/pkg/pagination"
)

// Rate is the employee share of the discounted price.
var Rate = decimal.RequireFromString("0.05")

// AmountFor returns the commission owed on finalPrice, rounded to cents.
func AmountFor(finalPrice decimal.Decimal) decimal.Decimal {
	return finalPrice.Mul(Rate).Round(2)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the commission lifecycle.
type Service interface {
	RecordCommission(ctx context.Context, tx *gorm.DB, employeeID, subscriptionID uuid.UUID, amount decimal.Decimal) (*models.Commission, error)
	MarkCommissionPaid(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Commission, error)
	CancelCommission(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Commission, error)
	List(ctx context.Context, query ListQuery) ([]models.Commission, *pagination.Cursor, error)
	ListForEmployee(ctx context.Context, employeeID uuid.UUID, params pagination.Params) ([]models.Commission, *pagination.Cursor, error)
	Totals(ctx context.Context, employeeID uuid.UUID) (Totals, error)
}

// ServiceParams groups dependencies for the commission service.
type ServiceParams struct {
	Repository        Repository
	Outbox            outbox.Emitter
	TransactionRunner txRunner
	Audit             audit.Recorder
	Now               func() time.Time
}

type service struct {
	repo     Repository
	outbox   outbox.Emitter
	txRunner txRunner
	audit    audit.Recorder
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("commission repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	recorder := params.Audit
	if recorder == nil {
		recorder = audit.Nop{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repository,
		outbox:   params.Outbox,
		txRunner: params.TransactionRunner,
		audit:    recorder,
		now:      now,
	}, nil
}

// RecordCommission inserts a pending commission inside the caller's transaction.
func (s *service) RecordCommission(ctx context.Context, tx *gorm.DB, employeeID, subscriptionID uuid.UUID, amount decimal.Decimal) (*models.Commission, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if employeeID == uuid.Nil || subscriptionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "employee and subscription are required")
	}
	if amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission amount must not be negative")
	}

	commission := &models.Commission{
		ID:             uuid.New(),
		EmployeeID:     employeeID,
		SubscriptionID: subscriptionID,
		Amount:         amount.Round(2),
		Status:         enums.CommissionStatusPending,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.WithTx(tx).Create(ctx, commission); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create commission")
	}
	if err := s.emit(ctx, tx, enums.EventCommissionCreated, commission, nil); err != nil {
		return nil, err
	}
	return commission, nil
}

func (s *service) MarkCommissionPaid(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Commission, error) {
	paidAt := s.now().UTC()
	commission, err := s.transition(ctx, actor, id, enums.CommissionStatusPaid, &paidAt)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		UserID:       &actor.UserID,
		EventType:    enums.AuditCommissionPaid,
		Action:       "pay",
		ResourceType: "commission",
		ResourceID:   id.String(),
		Metadata:     map[string]any{"amount": commission.Amount.StringFixed(2)},
	})
	return commission, nil
}

func (s *service) CancelCommission(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Commission, error) {
	commission, err := s.transition(ctx, actor, id, enums.CommissionStatusCancelled, nil)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		UserID:       &actor.UserID,
		EventType:    enums.AuditCommissionCancelled,
		Action:       "cancel",
		ResourceType: "commission",
		ResourceID:   id.String(),
	})
	return commission, nil
}

// transition applies pending -> to; any other current status is rejected.
func (s *service) transition(ctx context.Context, actor auth.Actor, id uuid.UUID, to enums.CommissionStatus, paidAt *time.Time) (*models.Commission, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	var updated *models.Commission
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "commission not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission")
		}
		ok, err := repo.Transition(ctx, id, enums.CommissionStatusPending, to, paidAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update commission")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("commission is already %s", current.Status)).
				WithDetails(map[string]any{"status": current.Status, "target": to})
		}
		current.Status = to
		current.PaidAt = paidAt
		updated = current
		if to == enums.CommissionStatusPaid {
			return s.emit(ctx, tx, enums.EventCommissionPaid, current, &actor)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) List(ctx context.Context, query ListQuery) ([]models.Commission, *pagination.Cursor, error) {
	if _, err := pagination.ParseCursor(query.Cursor); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commissions")
	}
	return rows, next, nil
}

func (s *service) ListForEmployee(ctx context.Context, employeeID uuid.UUID, params pagination.Params) ([]models.Commission, *pagination.Cursor, error) {
	return s.List(ctx, ListQuery{EmployeeID: &employeeID, Params: params})
}

func (s *service) Totals(ctx context.Context, employeeID uuid.UUID) (Totals, error) {
	totals, err := s.repo.Totals(ctx, employeeID)
	if err != nil {
		return Totals{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum commissions")
	}
	return totals, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, c *models.Commission, actor *auth.Actor) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateCommission,
		AggregateID:   c.ID,
		Data: payloads.CommissionEvent{
			CommissionID:   c.ID,
			EmployeeID:     c.EmployeeID,
			SubscriptionID: c.SubscriptionID,
			Amount:         c.Amount,
			Status:         string(c.Status),
		},
	}
	if actor != nil {
		event.Actor = &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit commission event")
	}
	return nil
}
