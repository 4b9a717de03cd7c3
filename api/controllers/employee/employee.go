package employee

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/ttml-backend/api/controllers/actorcontext"
	"github.com/angelmondragon/ttml-backend/api/responses"
	"github.com/angelmondragon/ttml-backend/api/validators"
	"github.com/angelmondragon/ttml-backend/internal/coupons"
	"github.com/angelmondragon/ttml-backend/internal/employees"
	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
	"github.com/angelmondragon/ttml-backend/pkg/pagination"
)

type StatsService interface {
	Stats(ctx context.Context, employeeID uuid.UUID) (*employees.Stats, error)
}

type CouponLister interface {
	ListCoupons(ctx context.Context, query coupons.ListQuery) ([]models.Coupon, *pagination.Cursor, error)
}

type CommissionLister interface {
	ListForEmployee(ctx context.Context, employeeID uuid.UUID, params pagination.Params) ([]models.Commission, *pagination.Cursor, error)
}

// Stats returns the caller's referral and commission summary.
func Stats(svc StatsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "employee service unavailable"))
			return
		}
		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stats, err := svc.Stats(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// Coupons lists coupons owned by the caller.
func Coupons(svc CouponLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		employeeID := actor.UserID
		list, next, err := svc.ListCoupons(r.Context(), coupons.ListQuery{EmployeeID: &employeeID, Params: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagination.NewPage(list, next))
	}
}

// Commissions lists the caller's commission ledger.
func Commissions(svc CommissionLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}
		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, next, err := svc.ListForEmployee(r.Context(), actor.UserID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagination.NewPage(list, next))
	}
}
