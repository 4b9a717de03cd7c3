package billing

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/ttml-backend/api/controllers/actorcontext"
	"github.com/angelmondragon/ttml-backend/api/responses"
	"github.com/angelmondragon/ttml-backend/api/validators"
	"github.com/angelmondragon/ttml-backend/internal/subscriptions"
	"github.com/angelmondragon/ttml-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

// CheckoutService is the purchase entry point used by Checkout.
type CheckoutService interface {
	Checkout(ctx context.Context, actor auth.Actor, input subscriptions.CheckoutInput) (*subscriptions.CheckoutResult, error)
}

type checkoutRequest struct {
	Plan            string `json:"plan" validate:"required"`
	CouponCode      string `json:"coupon_code,omitempty" validate:"max=50"`
	PaymentMethodID string `json:"payment_method_id,omitempty" validate:"max=255"`
}

// Plans lists the purchasable plans. Public.
func Plans() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{"plans": subscriptions.Plans()})
	}
}

// Checkout purchases a plan for the caller, optionally with an employee coupon.
func Checkout(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkoutRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), actor, subscriptions.CheckoutInput{
			Plan:            body.Plan,
			CouponCode:      body.CouponCode,
			IdempotencyKey:  strings.TrimSpace(r.Header.Get("Idempotency-Key")),
			PaymentMethodID: strings.TrimSpace(body.PaymentMethodID),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
