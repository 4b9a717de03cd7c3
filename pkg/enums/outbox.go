package enums

import (
	"fmt"
	"slices"
	"strings"
)

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateSubscription OutboxAggregateType = "subscription"
	AggregateLetter       OutboxAggregateType = "letter"
	AggregateCommission   OutboxAggregateType = "commission"
)

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateSubscription || a == AggregateLetter || a == AggregateCommission
}

// OutboxEventType is "<subject>.<verb>", the routing key consumers filter on.
type OutboxEventType string

const (
	EventSubscriptionCreated  OutboxEventType = "subscription.created"
	EventSubscriptionCanceled OutboxEventType = "subscription.canceled"
	EventSubscriptionExpired  OutboxEventType = "subscription.expired"
	EventQuotaRefilled        OutboxEventType = "quota.refilled"
	EventCommissionCreated    OutboxEventType = "commission.created"
	EventCommissionPaid       OutboxEventType = "commission.paid"
	EventLetterRequested      OutboxEventType = "letter.requested"
	EventLetterGenerated      OutboxEventType = "letter.generated"
	EventLetterFailed         OutboxEventType = "letter.failed"
	EventLetterEmailed        OutboxEventType = "letter.emailed"
)

// eventAggregates fixes which aggregate owns each event. Quota lives on the
// subscription row, so its refills are subscription events.
var eventAggregates = map[OutboxEventType]OutboxAggregateType{
	EventSubscriptionCreated:  AggregateSubscription,
	EventSubscriptionCanceled: AggregateSubscription,
	EventSubscriptionExpired:  AggregateSubscription,
	EventQuotaRefilled:        AggregateSubscription,
	EventCommissionCreated:    AggregateCommission,
	EventCommissionPaid:       AggregateCommission,
	EventLetterRequested:      AggregateLetter,
	EventLetterGenerated:      AggregateLetter,
	EventLetterFailed:         AggregateLetter,
	EventLetterEmailed:        AggregateLetter,
}

func (e OutboxEventType) IsValid() bool {
	_, ok := eventAggregates[e]
	return ok
}

// Aggregate returns the owning aggregate, empty for unknown events.
func (e OutboxEventType) Aggregate() OutboxAggregateType {
	return eventAggregates[e]
}

// Verb is the part after the dot, e.g. "created".
func (e OutboxEventType) Verb() string {
	_, verb, _ := strings.Cut(string(e), ".")
	return verb
}

// OutboxEventTypes lists every known event type in sorted order.
func OutboxEventTypes() []OutboxEventType {
	out := make([]OutboxEventType, 0, len(eventAggregates))
	for e := range eventAggregates {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	e := OutboxEventType(strings.TrimSpace(value))
	if !e.IsValid() {
		return "", fmt.Errorf("invalid event type %q", value)
	}
	return e, nil
}
