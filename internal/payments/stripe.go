package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"

	pkgstripe "github.com/angelmondragon/ttml-backend/pkg/stripe"
)

// intentCreator exists so tests can replace the Stripe call.
type intentCreator func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)

// StripeProcessor creates and confirms one PaymentIntent per checkout.
type StripeProcessor struct {
	currency string
	create   intentCreator
}

// NewStripeProcessor wraps the configured Stripe client.
func NewStripeProcessor(client *pkgstripe.Client) (*StripeProcessor, error) {
	if client == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &StripeProcessor{currency: client.Currency(), create: paymentintent.New}, nil
}

func (p *StripeProcessor) Charge(ctx context.Context, charge Charge) (*Result, error) {
	if err := validateCharge(charge); err != nil {
		return nil, err
	}
	if charge.Amount.IsZero() {
		return freeResult(), nil
	}
	if strings.TrimSpace(charge.PaymentMethodID) == "" {
		return nil, ErrPaymentMethodRequired
	}

	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(ToMinorUnits(charge.Amount)),
		Currency:    stripe.String(p.currency),
		Description:   stripe.String(charge.Description),
		PaymentMethod: stripe.String(charge.PaymentMethodID),
		Confirm:       stripe.Bool(true),
		// Checkout settles inside one request, so redirect-based methods are off.
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", charge.UserID.String())
	params.AddMetadata("subscription_id", charge.SubscriptionID.String())
	params.AddMetadata("plan", charge.Plan)
	if charge.IdempotencyKey != "" {
		params.SetIdempotencyKey(charge.IdempotencyKey)
	}

	intent, err := p.create(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	result := &Result{
		Provider:  ProviderStripe,
		PaymentID: intent.ID,
		Status:    string(intent.Status),
	}
	if !result.Succeeded() {
		return result, fmt.Errorf("payment intent %s is %s: %w", intent.ID, intent.Status, ErrPaymentIncomplete)
	}
	return result, nil
}
