package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/ttml-backend/api/controllers/actorcontext"
	"github.com/angelmondragon/ttml-backend/api/responses"
	"github.com/angelmondragon/ttml-backend/api/validators"
	"github.com/angelmondragon/ttml-backend/internal/coupons"
	"github.com/angelmondragon/ttml-backend/pkg/auth"
	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
	"github.com/angelmondragon/ttml-backend/pkg/pagination"
)

type CouponService interface {
	CreateCoupon(ctx context.Context, actor auth.Actor, input coupons.CreateCouponInput) (*models.Coupon, error)
	UpdateCoupon(ctx context.Context, actor auth.Actor, id uuid.UUID, input coupons.UpdateCouponInput) (*models.Coupon, error)
	ListCoupons(ctx context.Context, query coupons.ListQuery) ([]models.Coupon, *pagination.Cursor, error)
}

type createCouponRequest struct {
	Code            string     `json:"code" validate:"required,max=50"`
	EmployeeID      uuid.UUID  `json:"employee_id" validate:"required"`
	DiscountPercent int        `json:"discount_percent" validate:"required,min=1,max=100"`
	MaxUsage        *int       `json:"max_usage,omitempty" validate:"omitempty,min=1"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

type updateCouponRequest struct {
	DiscountPercent *int       `json:"discount_percent,omitempty" validate:"omitempty,min=1,max=100"`
	MaxUsage        *int       `json:"max_usage,omitempty" validate:"omitempty,min=1"`
	ClearMaxUsage   bool       `json:"clear_max_usage,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Active          *bool      `json:"active,omitempty"`
}

// ListCoupons supports ?employee_id=&active=&limit=&cursor=.
func ListCoupons(svc CouponService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "coupon service")
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		employeeID, err := validators.ParseOptionalUUIDQuery(r, "employee_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active, err := validators.ParseOptionalBoolQuery(r, "active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, next, err := svc.ListCoupons(r.Context(), coupons.ListQuery{EmployeeID: employeeID, Active: active, Params: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagination.NewPage(list, next))
	}
}

func CreateCoupon(svc CouponService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "coupon service")
			return
		}
		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createCouponRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.CreateCoupon(r.Context(), actor, coupons.CreateCouponInput{
			Code:            body.Code,
			EmployeeID:      body.EmployeeID,
			DiscountPercent: body.DiscountPercent,
			MaxUsage:        body.MaxUsage,
			ExpiresAt:       body.ExpiresAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, coupon)
	}
}

func UpdateCoupon(svc CouponService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "coupon service")
			return
		}
		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateCouponRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.UpdateCoupon(r.Context(), actor, id, coupons.UpdateCouponInput{
			DiscountPercent: body.DiscountPercent,
			MaxUsage:        body.MaxUsage,
			ClearMaxUsage:   body.ClearMaxUsage,
			ExpiresAt:       body.ExpiresAt,
			Active:          body.Active,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupon)
	}
}
