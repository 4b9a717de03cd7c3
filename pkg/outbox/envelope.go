package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/ttml-backend/pkg/enums"
)

// EnvelopeVersion is bumped when the envelope shape changes incompatibly.
const EnvelopeVersion = 1

var ErrBadEnvelope = errors.New("outbox payload is not a valid envelope")

type ActorRef struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role,omitempty"`
}

// Envelope is stored in outbox_events.payload and published byte for byte, so
// consumers get the routing fields in the body as well as in attributes.
type Envelope struct {
	Version       int                       `json:"version"`
	EventID       uuid.UUID                 `json:"event_id"`
	EventType     enums.OutboxEventType     `json:"event_type"`
	AggregateType enums.OutboxAggregateType `json:"aggregate_type"`
	AggregateID   uuid.UUID                 `json:"aggregate_id"`
	OccurredAt    time.Time                 `json:"occurred_at"`
	Actor         *ActorRef                 `json:"actor,omitempty"`
	Data          json.RawMessage           `json:"data"`
}

// DecodeEnvelope parses a stored payload and rejects versions this build cannot read.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	switch {
	case env.EventID == uuid.Nil:
		return Envelope{}, fmt.Errorf("%w: missing event_id", ErrBadEnvelope)
	case env.Version < 1 || env.Version > EnvelopeVersion:
		return Envelope{}, fmt.Errorf("%w: unsupported version %d", ErrBadEnvelope, env.Version)
	case !env.EventType.IsValid():
		return Envelope{}, fmt.Errorf("%w: unknown event_type %q", ErrBadEnvelope, env.EventType)
	}
	return env, nil
}

// Attributes are the Pub/Sub message attributes subscribers filter on.
func (e Envelope) Attributes() map[string]string {
	return map[string]string{
		"event_id":       e.EventID.String(),
		"event_type":     string(e.EventType),
		"aggregate_type": string(e.AggregateType),
		"aggregate_id":   e.AggregateID.String(),
		"occurred_at":    e.OccurredAt.UTC().Format(time.RFC3339Nano),
		"version":        fmt.Sprint(e.Version),
	}
}
