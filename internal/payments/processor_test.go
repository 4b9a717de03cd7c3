package payments

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
)

func TestToMinorUnits(t *testing.T) {
	cases := map[string]int64{
		"199.00":  19900,
		"1910.40": 191040,
		"0.01":    1,
		"95.515":  9552,
	}
	for raw, want := range cases {
		if got := ToMinorUnits(decimal.RequireFromString(raw)); got != want {
			t.Fatalf("ToMinorUnits(%s) = %d, want %d", raw, got, want)
		}
	}
}

func TestStubProcessorCharge(t *testing.T) {
	p := NewStubProcessor(nil)
	res, err := p.Charge(context.Background(), Charge{
		UserID: uuid.New(),
		Plan:   "one-time",
		Amount: decimal.RequireFromString("199.00"),
	})
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if res.Provider != ProviderStub || !strings.HasPrefix(res.PaymentID, "pay_stub_") {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Status != StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", res.Status)
	}
}

func TestStubProcessorRejectsMissingUser(t *testing.T) {
	p := NewStubProcessor(nil)
	if _, err := p.Charge(context.Background(), Charge{Plan: "one-time", Amount: decimal.NewFromInt(1)}); err == nil {
		t.Fatal("expected error for missing user")
	}
}

func TestStripeProcessorBuildsIntent(t *testing.T) {
	var captured *stripe.PaymentIntentParams
	p := &StripeProcessor{
		currency: "usd",
		create: func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			captured = params
			return &stripe.PaymentIntent{ID: "pi_123", Status: stripe.PaymentIntentStatusSucceeded}, nil
		},
	}
	userID := uuid.New()
	res, err := p.Charge(context.Background(), Charge{
		UserID:          userID,
		Plan:            "annual-basic",
		Amount:          decimal.RequireFromString("1910.40"),
		Description:     "annual-basic",
		IdempotencyKey:  "idem-1",
		PaymentMethodID: "pm_card_visa",
	})
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if res.PaymentID != "pi_123" || res.Provider != ProviderStripe || !res.Succeeded() {
		t.Fatalf("unexpected result %+v", res)
	}
	if captured == nil || *captured.Amount != 191040 || *captured.Currency != "usd" {
		t.Fatalf("unexpected params %+v", captured)
	}
	if captured.Metadata["user_id"] != userID.String() {
		t.Fatalf("expected user metadata, got %v", captured.Metadata)
	}
	if captured.IdempotencyKey == nil || *captured.IdempotencyKey != "idem-1" {
		t.Fatal("expected idempotency key to be forwarded")
	}
	if captured.Confirm == nil || !*captured.Confirm || *captured.PaymentMethod != "pm_card_visa" {
		t.Fatalf("expected a confirmed intent against the payment method, got %+v", captured)
	}
	if *captured.AutomaticPaymentMethods.AllowRedirects != "never" {
		t.Fatal("expected redirect-based methods to be disabled")
	}
}

func TestStripeProcessorRejectsUnsettledIntent(t *testing.T) {
	statuses := []stripe.PaymentIntentStatus{
		stripe.PaymentIntentStatusRequiresPaymentMethod,
		stripe.PaymentIntentStatusRequiresAction,
		stripe.PaymentIntentStatusProcessing,
		stripe.PaymentIntentStatusCanceled,
	}
	for _, status := range statuses {
		p := &StripeProcessor{
			currency: "usd",
			create: func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
				return &stripe.PaymentIntent{ID: "pi_open", Status: status}, nil
			},
		}
		res, err := p.Charge(context.Background(), Charge{
			UserID:          uuid.New(),
			Plan:            "one-time",
			Amount:          decimal.NewFromInt(199),
			PaymentMethodID: "pm_card_visa",
		})
		if !errors.Is(err, ErrPaymentIncomplete) {
			t.Fatalf("%s: expected ErrPaymentIncomplete, got %v", status, err)
		}
		if res.Succeeded() {
			t.Fatalf("%s: result must not report success", status)
		}
	}
}

func TestStripeProcessorRequiresPaymentMethod(t *testing.T) {
	called := false
	p := &StripeProcessor{
		currency: "usd",
		create: func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			called = true
			return nil, nil
		},
	}
	_, err := p.Charge(context.Background(), Charge{UserID: uuid.New(), Plan: "one-time", Amount: decimal.NewFromInt(199)})
	if !errors.Is(err, ErrPaymentMethodRequired) || called {
		t.Fatalf("expected ErrPaymentMethodRequired before calling stripe, got %v (called=%v)", err, called)
	}
}

func TestStripeProcessorSkipsZeroAmount(t *testing.T) {
	called := false
	p := &StripeProcessor{
		currency: "usd",
		create: func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			called = true
			return nil, nil
		},
	}
	res, err := p.Charge(context.Background(), Charge{UserID: uuid.New(), Plan: "one-time", Amount: decimal.Zero})
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if called || res.Provider != ProviderFree {
		t.Fatalf("expected free result without provider call, got %+v", res)
	}
}

func TestStripeProcessorWrapsError(t *testing.T) {
	boom := errors.New("card declined")
	p := &StripeProcessor{
		currency: "usd",
		create: func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			return nil, boom
		},
	}
	_, err := p.Charge(context.Background(), Charge{UserID: uuid.New(), Plan: "one-time", Amount: decimal.NewFromInt(199), PaymentMethodID: "pm_card_visa"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}
