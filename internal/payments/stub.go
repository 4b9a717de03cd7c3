package payments

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

// StubProcessor accepts every charge. Used when no payment provider is configured.
type StubProcessor struct {
	logg *logger.Logger
}

func NewStubProcessor(logg *logger.Logger) *StubProcessor {
	return &StubProcessor{logg: logg}
}

func (p *StubProcessor) Charge(ctx context.Context, charge Charge) (*Result, error) {
	if err := validateCharge(charge); err != nil {
		return nil, err
	}
	if charge.Amount.IsZero() {
		return freeResult(), nil
	}
	result := &Result{
		Provider:  ProviderStub,
		PaymentID: "pay_stub_" + uuid.NewString(),
		Status:    StatusSucceeded,
	}
	if p.logg != nil {
		ctx = p.logg.WithFields(ctx, map[string]any{
			"payment_id": result.PaymentID,
			"amount":     charge.Amount.StringFixed(2),
			"plan":       charge.Plan,
		})
		p.logg.Info(ctx, "stub payment accepted")
	}
	return result, nil
}
