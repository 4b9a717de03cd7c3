package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/ttml-backend/internal/audit"
	"github.com/angelmondragon/ttml-backend/internal/commissions"
	"github.com/angelmondragon/ttml-backend/internal/coupons"
	"github.com/angelmondragon/ttml-backend/internal/payments"
	"github.com/angelmondragon/ttml-backend/internal/purchases"
	"github.com/angelmondragon/ttml-backend/internal/users"
	"github.com/angelmondragon/ttml-backend/pkg/auth"
	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
	"github.com/angelmondragon/ttml-backend/pkg/metrics"
	"github.com/angelmondragon/ttml-backend/pkg/outbox"
	"github.com/angelmondragon/ttml-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/ttml-backend/pkg/pagination"
)

const (
	pendingPaymentID  = "pending"
	consumeAttempts   = 3
	sweepBatchSize    = 200
	maxRefillCatchUps = 120
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type commissionRecorder interface {
	RecordCommission(ctx context.Context, tx *gorm.DB, employeeID, subscriptionID uuid.UUID, amount decimal.Decimal) (*models.Commission, error)
}

// Service owns checkout and the letter quota.
type Service interface {
	Checkout(ctx context.Context, actor auth.Actor, input CheckoutInput) (*CheckoutResult, error)
	CanGenerateLetter(ctx context.Context, userID uuid.UUID) (*Quota, error)
	RefillDueForUser(ctx context.Context, userID uuid.UUID) error
	ConsumeLetterQuota(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Subscription, error)
	RefillIfDue(ctx context.Context, sub *models.Subscription) (*models.Subscription, bool, error)
	RefillDue(ctx context.Context, limit int) (int, error)
	ExpireLapsed(ctx context.Context) (int, error)
	CancelSubscription(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Subscription, error)
	GetActive(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error)
	List(ctx context.Context, query ListQuery) ([]models.Subscription, *pagination.Cursor, error)
}

// CheckoutInput is the validated checkout request.
type CheckoutInput struct {
	Plan           string
	CouponCode      string
	IdempotencyKey  string
	PaymentMethodID string
}

// CheckoutResult is returned to the buyer after the transaction commits.
type CheckoutResult struct {
	Success      bool                 `json:"success"`
	Subscription *models.Subscription `json:"subscription"`
	PaymentID    string               `json:"paymentId"`
	FinalPrice   decimal.Decimal      `json:"finalPrice"`
	Purchase     *models.Purchase     `json:"-"`
}

// Quota summarizes what a user can still generate.
type Quota struct {
	Remaining   int  `json:"remaining"`
	Total       int  `json:"total"`
	CanGenerate bool `json:"canGenerate"`
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Repository        Repository
	Coupons           coupons.Repository
	Commissions       commissionRecorder
	Users             users.Repository
	Purchases         purchases.Repository
	Payments          payments.Processor
	Outbox            outbox.Emitter
	TransactionRunner txRunner
	Audit             audit.Recorder
	Metrics           *metrics.DomainMetrics
	Logger            *logger.Logger
	Now               func() time.Time
}

type service struct {
	repo        Repository
	coupons     coupons.Repository
	commissions commissionRecorder
	users       users.Repository
	purchases   purchases.Repository
	payments    payments.Processor
	outbox      outbox.Emitter
	txRunner    txRunner
	audit       audit.Recorder
	metrics     *metrics.DomainMetrics
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("subscription repository required")
	case params.Coupons == nil:
		return nil, fmt.Errorf("coupon repository required")
	case params.Commissions == nil:
		return nil, fmt.Errorf("commission recorder required")
	case params.Users == nil:
		return nil, fmt.Errorf("users repository required")
	case params.Purchases == nil:
		return nil, fmt.Errorf("purchase repository required")
	case params.Payments == nil:
		return nil, fmt.Errorf("payment processor required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.TransactionRunner == nil:
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
		repo:        params.Repository,
		coupons:     params.Coupons,
		commissions: params.Commissions,
		users:       params.Users,
		purchases:   params.Purchases,
		payments:    params.Payments,
		outbox:      params.Outbox,
		txRunner:    params.TransactionRunner,
		audit:       recorder,
		metrics:     params.Metrics,
		logg:        params.Logger,
		now:         now,
	}, nil
}

// clock truncates to microseconds so stored timestamps compare equal on read-back.
func (s *service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Checkout creates the subscription, redeems the coupon, records the commission,
// charges the buyer and writes the purchase in one transaction.
func (s *service) Checkout(ctx context.Context, actor auth.Actor, input CheckoutInput) (*CheckoutResult, error) {
	plan, ok := LookupPlan(strings.TrimSpace(input.Plan))
	if !ok {
		s.metrics.Checkout(input.Plan, metrics.OutcomeRejected)
		return nil, pkgerrors.New(pkgerrors.CodeInvalidPlan, "unknown plan").
			WithDetails(map[string]any{"plan": input.Plan})
	}
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	now := s.clock()
	code := coupons.NormalizeCode(input.CouponCode)
	var result *CheckoutResult

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		var coupon *models.Coupon
		if code != "" {
			redeemed, err := s.redeemCoupon(ctx, tx, code, now)
			if err != nil {
				return err
			}
			coupon = redeemed
		}

		discount := 0
		var couponCode *string
		var employeeID *uuid.UUID
		if coupon != nil {
			discount = coupon.DiscountPercent
			couponCode = &coupon.Code
			employeeID = coupon.EmployeeID
		}
		finalPrice := FinalPrice(plan.Price, discount)
		expiresAt, nextRefill := plan.Schedule(now)

		sub := &models.Subscription{
			ID:                uuid.New(),
			UserID:            actor.UserID,
			Plan:              plan.ID,
			Status:            enums.SubscriptionStatusActive,
			BasePrice:         plan.Price,
			Price:             finalPrice,
			DiscountPercent:   discount,
			CouponCode:        couponCode,
			EmployeeID:        employeeID,
			LettersRemaining:  plan.Letters,
			MonthlyAllocation: plan.MonthlyAllocation,
			NextRefillDate:    nextRefill,
			ExpiresAt:         expiresAt,
			PaymentID:         pendingPaymentID,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
		}

		if employeeID != nil {
			amount := commissions.AmountFor(finalPrice)
			if _, err := s.commissions.RecordCommission(ctx, tx, *employeeID, sub.ID, amount); err != nil {
				return err
			}
			if err := s.users.WithTx(tx).AddReferral(ctx, *employeeID, amount); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update referral totals")
			}
		}

		if err := s.syncMirror(ctx, tx, actor.UserID, now); err != nil {
			return err
		}
		if err := s.emitCreated(ctx, tx, actor, sub); err != nil {
			return err
		}

		charged, err := s.payments.Charge(ctx, payments.Charge{
			UserID:          actor.UserID,
			SubscriptionID:  sub.ID,
			Plan:            plan.ID,
			Amount:          finalPrice,
			Description:     plan.Name,
			IdempotencyKey:  input.IdempotencyKey,
			PaymentMethodID: input.PaymentMethodID,
		})
		if err == nil && !charged.Succeeded() {
			err = payments.ErrPaymentIncomplete
		}
		if err != nil {
			if s.logg != nil {
				s.logg.Error(s.logg.WithFields(ctx, map[string]any{
					"plan":            plan.ID,
					"subscription_id": sub.ID.String(),
				}), "checkout.payment_failed", err)
			}
			if errors.Is(err, payments.ErrPaymentMethodRequired) {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment_method_id is required")
			}
			return pkgerrors.Wrap(pkgerrors.CodeExternalService, err, "payment failed")
		}
		if err := repo.SetPaymentID(ctx, sub.ID, charged.PaymentID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
		}
		sub.PaymentID = charged.PaymentID

		purchase := &models.Purchase{
			ID:              uuid.New(),
			UserID:          actor.UserID,
			SubscriptionID:  sub.ID,
			Plan:            plan.ID,
			Amount:          finalPrice,
			DiscountPercent: discount,
			CouponCode:      couponCode,
			PaymentProvider: charged.Provider,
			PaymentID:       charged.PaymentID,
			PaymentStatus:   charged.Status,
			CreatedAt:       now,
		}
		if err := s.purchases.WithTx(tx).Create(ctx, purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase")
		}

		result = &CheckoutResult{
			Success:      true,
			Subscription: sub,
			PaymentID:    charged.PaymentID,
			FinalPrice:   finalPrice,
			Purchase:     purchase,
		}
		return nil
	})
	if err != nil {
		outcome := metrics.OutcomeRejected
		if pkgerrors.IsCode(err, pkgerrors.CodeExternalService) || pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
			outcome = metrics.OutcomeFailure
		}
		s.metrics.Checkout(plan.ID, outcome)
		return nil, err
	}

	s.metrics.Checkout(plan.ID, metrics.OutcomeSuccess)
	s.audit.Record(ctx, audit.Entry{
		UserID:       &actor.UserID,
		EventType:    enums.AuditSubscriptionCreated,
		Action:       "checkout",
		ResourceType: "subscription",
		ResourceID:   result.Subscription.ID.String(),
		Metadata: map[string]any{
			"plan":        plan.ID,
			"final_price": result.FinalPrice.StringFixed(2),
			"coupon_code": code,
		},
	})
	return result, nil
}

// redeemCoupon validates and spends one coupon use inside tx.
func (s *service) redeemCoupon(ctx context.Context, tx *gorm.DB, code string, now time.Time) (*models.Coupon, error) {
	repo := s.coupons.WithTx(tx)
	coupon, err := repo.FindByCode(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup coupon")
	}
	if reason := coupons.Evaluate(coupon, now); reason != nil {
		return nil, coupons.ReasonError(*reason)
	}
	ok, err := repo.IncrementUsage(ctx, coupon.ID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeem coupon")
	}
	if !ok {
		current, err := repo.FindByID(ctx, coupon.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload coupon")
		}
		if reason := coupons.Evaluate(current, now); reason != nil {
			return nil, coupons.ReasonError(*reason)
		}
		return nil, pkgerrors.New(pkgerrors.CodeCouponExhausted, enums.CouponLimitReached.Message())
	}
	return coupon, nil
}

func (s *service) CanGenerateLetter(ctx context.Context, userID uuid.UUID) (*Quota, error) {
	if err := s.RefillDueForUser(ctx, userID); err != nil {
		return nil, err
	}
	subs, err := s.repo.ListUsable(ctx, userID, s.clock())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscriptions")
	}
	quota := &Quota{}
	for _, sub := range subs {
		quota.Remaining += sub.LettersRemaining
		quota.Total += sub.MonthlyAllocation
	}
	quota.CanGenerate = quota.Remaining > 0
	return quota, nil
}

// RefillDueForUser applies any pending monthly refills for the user's subscriptions.
func (s *service) RefillDueForUser(ctx context.Context, userID uuid.UUID) error {
	now := s.clock()
	subs, err := s.repo.ListUsable(ctx, userID, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscriptions")
	}
	for i := range subs {
		if !subs[i].RefillDue(now) {
			continue
		}
		if _, _, err := s.RefillIfDue(ctx, &subs[i]); err != nil {
			return err
		}
	}
	return nil
}

// ConsumeLetterQuota spends one letter from the usable subscription that expires
// soonest. It runs inside the caller's transaction.
func (s *service) ConsumeLetterQuota(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Subscription, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	repo := s.repo.WithTx(tx)
	now := s.clock()

	for attempt := 0; attempt < consumeAttempts; attempt++ {
		subs, err := repo.ListUsable(ctx, userID, now)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscriptions")
		}
		if len(subs) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeSubscriptionInactive, "no active subscription")
		}
		var picked *models.Subscription
		for i := range subs {
			if subs[i].LettersRemaining > 0 {
				picked = &subs[i]
				break
			}
		}
		if picked == nil {
			return nil, pkgerrors.New(pkgerrors.CodeQuotaExceeded, "no letters remaining")
		}
		ok, err := repo.DecrementRemaining(ctx, picked.ID, now)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume quota")
		}
		if ok {
			picked.LettersRemaining--
			return picked, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeQuotaExceeded, "no letters remaining")
}

// RefillIfDue resets a recurring subscription to its monthly allocation once
// next_refill_date has passed. The returned flag reports whether this call applied it.
func (s *service) RefillIfDue(ctx context.Context, sub *models.Subscription) (*models.Subscription, bool, error) {
	if sub == nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "subscription required")
	}
	now := s.clock()
	if !sub.RefillDue(now) {
		return sub, false, nil
	}

	observed := *sub.NextRefillDate
	next := nextRefillAfter(observed, now)
	var refilled *models.Subscription
	applied := false

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, sub.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
		}
		ok, err := repo.ApplyRefill(ctx, sub.ID, observed, RefillUpdate{
			LettersRemaining: current.MonthlyAllocation,
			NextRefillDate:   next,
			At:               now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply refill")
		}
		if !ok {
			refilled = current
			return nil
		}

		history := &models.RefillHistory{
			ID:             uuid.New(),
			SubscriptionID: current.ID,
			UserID:         current.UserID,
			LettersBefore:  current.LettersRemaining,
			LettersAfter:   current.MonthlyAllocation,
			RefilledAt:     now,
			NextRefillDate: next,
		}
		if err := repo.CreateRefillHistory(ctx, history); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refill")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventQuotaRefilled,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   current.ID,
			OccurredAt:    now,
			Data: payloads.QuotaRefilledEvent{
				SubscriptionID: current.ID,
				UserID:         current.UserID,
				LettersBefore:  history.LettersBefore,
				LettersAfter:   history.LettersAfter,
				NextRefillDate: next,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit refill event")
		}

		current.LettersRemaining = current.MonthlyAllocation
		current.NextRefillDate = &next
		current.UpdatedAt = now
		refilled = current
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if applied {
		s.metrics.Refilled(1)
	}
	return refilled, applied, nil
}

// nextRefillAfter steps monthly from the anchor until the date is in the future,
// so a long-idle subscription gets one refill rather than several.
func nextRefillAfter(anchor, now time.Time) time.Time {
	next := anchor
	for k := 1; k <= maxRefillCatchUps && !next.After(now); k++ {
		next = anchor.AddDate(0, k, 0)
	}
	return next
}

// RefillDue sweeps subscriptions whose refill date has passed.
func (s *service) RefillDue(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = sweepBatchSize
	}
	due, err := s.repo.ListDueForRefill(ctx, s.clock(), limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due refills")
	}
	count := 0
	var errs error
	for i := range due {
		_, applied, err := s.RefillIfDue(ctx, &due[i])
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("refill %s: %w", due[i].ID, err))
			continue
		}
		if applied {
			count++
		}
	}
	return count, errs
}

// ExpireLapsed moves active subscriptions past expires_at to expired.
func (s *service) ExpireLapsed(ctx context.Context) (int, error) {
	now := s.clock()
	count := 0
	var errs error
	for {
		lapsed, err := s.repo.ListLapsed(ctx, now, sweepBatchSize)
		if err != nil {
			return count, multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list lapsed subscriptions"))
		}
		changed := 0
		for i := range lapsed {
			ok, err := s.transition(ctx, &lapsed[i], enums.SubscriptionStatusActive, enums.SubscriptionStatusExpired, enums.EventSubscriptionExpired, nil, now)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("expire %s: %w", lapsed[i].ID, err))
				continue
			}
			if ok {
				changed++
			}
		}
		count += changed
		if len(lapsed) < sweepBatchSize || changed == 0 {
			return count, errs
		}
	}
}

// CancelSubscription stops future refills. Remaining letters stay usable until expiry.
func (s *service) CancelSubscription(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Subscription, error) {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	if !actor.Owns(sub.UserID) && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to cancel this subscription")
	}
	if sub.Status != enums.SubscriptionStatusActive {
		return nil, invalidTransition(sub.Status, enums.SubscriptionStatusCanceled)
	}

	now := s.clock()
	ok, err := s.transition(ctx, sub, enums.SubscriptionStatusActive, enums.SubscriptionStatusCanceled, enums.EventSubscriptionCanceled, &actor, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload subscription")
		}
		return nil, invalidTransition(current.Status, enums.SubscriptionStatusCanceled)
	}

	sub.Status = enums.SubscriptionStatusCanceled
	sub.CanceledAt = &now
	sub.UpdatedAt = now
	s.audit.Record(ctx, audit.Entry{
		UserID:       &actor.UserID,
		EventType:    enums.AuditSubscriptionCanceled,
		Action:       "cancel",
		ResourceType: "subscription",
		ResourceID:   sub.ID.String(),
		Metadata:     map[string]any{"owner_id": sub.UserID.String()},
	})
	return sub, nil
}

func invalidTransition(from, to enums.SubscriptionStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("subscription is %s", from)).
		WithDetails(map[string]any{"status": from, "target": to})
}

// transition applies a guarded status change, refreshes the profile mirror and emits eventType.
func (s *service) transition(ctx context.Context, sub *models.Subscription, from, to enums.SubscriptionStatus, eventType enums.OutboxEventType, actor *auth.Actor, now time.Time) (bool, error) {
	changed := false
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).TransitionStatus(ctx, sub.ID, from, to, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription status")
		}
		if !ok {
			return nil
		}
		if err := s.syncMirror(ctx, tx, sub.UserID, now); err != nil {
			return err
		}
		event := outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			OccurredAt:    now,
			Data: payloads.SubscriptionStatusEvent{
				SubscriptionID: sub.ID,
				UserID:         sub.UserID,
				Status:         string(to),
				At:             now,
			},
		}
		if actor != nil {
			event.Actor = &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit subscription event")
		}
		changed = true
		return nil
	})
	return changed, err
}

// syncMirror copies the user's best current subscription onto their profile.
func (s *service) syncMirror(ctx context.Context, tx *gorm.DB, userID uuid.UUID, now time.Time) error {
	subs, err := s.repo.WithTx(tx).ListForUser(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscriptions")
	}
	mirror := users.SubscriptionMirror{Status: "none"}
	if best := mirrorSource(subs, now); best != nil {
		tier := best.Plan
		expires := best.ExpiresAt
		mirror = users.SubscriptionMirror{Tier: &tier, Status: string(best.Status), ExpiresAt: &expires}
	}
	if err := s.users.WithTx(tx).UpdateSubscriptionMirror(ctx, userID, mirror); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile subscription")
	}
	return nil
}

// mirrorSource prefers an active subscription with the latest expiry, then the
// most recently created one.
func mirrorSource(subs []models.Subscription, now time.Time) *models.Subscription {
	var best *models.Subscription
	for i := range subs {
		sub := &subs[i]
		if sub.Status != enums.SubscriptionStatusActive || !sub.ExpiresAt.After(now) {
			continue
		}
		if best == nil || sub.ExpiresAt.After(best.ExpiresAt) {
			best = sub
		}
	}
	if best != nil || len(subs) == 0 {
		return best
	}
	// ListForUser is newest first.
	return &subs[0]
}

func (s *service) emitCreated(ctx context.Context, tx *gorm.DB, actor auth.Actor, sub *models.Subscription) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventSubscriptionCreated,
		AggregateType: enums.AggregateSubscription,
		AggregateID:   sub.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
		OccurredAt:    sub.CreatedAt,
		Data: payloads.SubscriptionCreatedEvent{
			SubscriptionID:   sub.ID,
			UserID:           sub.UserID,
			Plan:             sub.Plan,
			FinalPrice:       sub.Price,
			CouponCode:       sub.CouponCode,
			LettersRemaining: sub.LettersRemaining,
			ExpiresAt:        sub.ExpiresAt,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit subscription event")
	}
	return nil
}

// GetActive returns the usable subscription that expires soonest.
func (s *service) GetActive(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	if err := s.RefillDueForUser(ctx, userID); err != nil {
		return nil, err
	}
	subs, err := s.repo.ListUsable(ctx, userID, s.clock())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscriptions")
	}
	for i := range subs {
		if subs[i].Status == enums.SubscriptionStatusActive {
			return &subs[i], nil
		}
	}
	if len(subs) > 0 {
		return &subs[0], nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	return rows, nil
}

func (s *service) List(ctx context.Context, query ListQuery) ([]models.Subscription, *pagination.Cursor, error) {
	if _, err := pagination.ParseCursor(query.Cursor); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	return rows, next, nil
}
