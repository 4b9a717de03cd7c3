package billing

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/ttml-backend/api/responses"
	"github.com/angelmondragon/ttml-backend/internal/coupons"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

// CouponValidator checks a public coupon code.
type CouponValidator interface {
	ValidateCoupon(ctx context.Context, code string) (*coupons.Validation, error)
}

type couponSummary struct {
	Code            string     `json:"code"`
	DiscountPercent int        `json:"discount_percent"`
	ExpiresAt       *time.Time `json:"expires_at"`
}

type couponValidResponse struct {
	Valid  bool          `json:"valid"`
	Coupon couponSummary `json:"coupon"`
}

type couponInvalidResponse struct {
	Valid  bool                      `json:"valid"`
	Reason enums.CouponInvalidReason `json:"reason"`
	Error  string                    `json:"error"`
}

// ValidateCoupon answers GET /api/validate-coupon?code=. Unknown codes answer 404, other
// rejections 400, both with valid=false in the body.
func ValidateCoupon(svc CouponValidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		code := r.URL.Query().Get("code")
		if err := coupons.CheckCodeFormat(code); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ValidateCoupon(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if !result.Valid {
			reason := enums.CouponNotFound
			if result.Reason != nil {
				reason = *result.Reason
			}
			status := http.StatusBadRequest
			if reason == enums.CouponNotFound {
				status = http.StatusNotFound
			}
			responses.WriteSuccessStatus(w, status, couponInvalidResponse{
				Valid:  false,
				Reason: reason,
				Error:  reason.Message(),
			})
			return
		}

		responses.WriteSuccess(w, couponValidResponse{
			Valid: true,
			Coupon: couponSummary{
				Code:            result.Code,
				DiscountPercent: result.DiscountPercent,
				ExpiresAt:       result.ExpiresAt,
			},
		})
	}
}
