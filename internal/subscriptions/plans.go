package subscriptions

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/ttml-backend/pkg/enums"
)

// Plan is a purchasable letter bundle.
type Plan struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Kind              enums.PlanKind  `json:"kind"`
	Price             decimal.Decimal `json:"price"`
	Letters           int             `json:"letters"`
	MonthlyAllocation int             `json:"monthly_allocation"`
}

const (
	oneTimeValidity   = 30 * 24 * time.Hour
	recurringYears    = 1
	refillMonthsDelta = 1
)

var catalogue = []Plan{
	{ID: "one-time", Name: "Single Letter", Kind: enums.PlanKindOneTime, Price: decimal.RequireFromString("199.00"), Letters: 1, MonthlyAllocation: 1},
	{ID: "monthly-standard", Name: "Monthly Standard", Kind: enums.PlanKindRecurring, Price: decimal.RequireFromString("299.00"), Letters: 4, MonthlyAllocation: 4},
	{ID: "annual-basic", Name: "Annual Basic", Kind: enums.PlanKindRecurring, Price: decimal.RequireFromString("2388.00"), Letters: 4, MonthlyAllocation: 4},
	{ID: "annual-premium", Name: "Annual Premium", Kind: enums.PlanKindRecurring, Price: decimal.RequireFromString("4788.00"), Letters: 8, MonthlyAllocation: 8},
}

// Plans returns the catalogue in display order.
func Plans() []Plan {
	out := make([]Plan, len(catalogue))
	copy(out, catalogue)
	return out
}

func LookupPlan(id string) (Plan, bool) {
	for _, p := range catalogue {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// Recurring reports whether the plan refills monthly.
func (p Plan) Recurring() bool {
	return p.Kind == enums.PlanKindRecurring
}

// Schedule returns the expiry and first refill date for a purchase at now.
// One-time plans never refill.
func (p Plan) Schedule(now time.Time) (time.Time, *time.Time) {
	if !p.Recurring() {
		return now.Add(oneTimeValidity), nil
	}
	next := now.AddDate(0, refillMonthsDelta, 0)
	return now.AddDate(recurringYears, 0, 0), &next
}

// FinalPrice applies a percentage discount once and rounds to cents.
func FinalPrice(base decimal.Decimal, discountPercent int) decimal.Decimal {
	if discountPercent <= 0 {
		return base.Round(2)
	}
	factor := decimal.NewFromInt(100 - int64(discountPercent)).Div(decimal.NewFromInt(100))
	return base.Mul(factor).Round(2)
}

// NameAndPrice adapts the catalogue for receipts.
func NameAndPrice(planID string) (string, string) {
	plan, ok := LookupPlan(planID)
	if !ok {
		return planID, ""
	}
	return plan.Name, "$" + plan.Price.StringFixed(2)
}
