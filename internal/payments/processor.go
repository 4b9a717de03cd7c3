package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ProviderStripe = "stripe"
	ProviderStub   = "stub"
	ProviderFree   = "free"

	StatusSucceeded = "succeeded"
)

var (
	// ErrPaymentMethodRequired means a provider charge was attempted without a
	// payment method to confirm against.
	ErrPaymentMethodRequired = errors.New("payment method required")
	// ErrPaymentIncomplete means the provider did not settle the charge.
	ErrPaymentIncomplete = errors.New("payment not completed")
)

// Charge is the narrow payment contract used by checkout.
type Charge struct {
	UserID         uuid.UUID
	SubscriptionID uuid.UUID
	Plan           string
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
	// PaymentMethodID is the provider's tokenised payment method, collected by
	// the client.
	PaymentMethodID string
}

// Result identifies the payment recorded against a purchase.
type Result struct {
	Provider  string
	PaymentID string
	Status    string
}

// Succeeded reports whether money actually moved.
func (r *Result) Succeeded() bool {
	return r != nil && r.Status == StatusSucceeded
}

// Processor charges the final checkout amount. A nil error means the charge
// succeeded.
type Processor interface {
	Charge(ctx context.Context, charge Charge) (*Result, error)
}

// ToMinorUnits converts a two-decimal amount into cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}

func validateCharge(charge Charge) error {
	if charge.UserID == uuid.Nil {
		return fmt.Errorf("payment user id required")
	}
	if strings.TrimSpace(charge.Plan) == "" {
		return fmt.Errorf("payment plan required")
	}
	if charge.Amount.IsNegative() {
		return fmt.Errorf("payment amount must not be negative")
	}
	return nil
}

// freeResult covers fully discounted checkouts, which never reach a provider.
func freeResult() *Result {
	return &Result{Provider: ProviderFree, PaymentID: "free_" + uuid.NewString(), Status: StatusSucceeded}
}
