package models

import (
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/angelmondragon/ttml-backend/pkg/enums"
)

// MaxOutboxErrorLen bounds last_error so a chatty broker cannot bloat the row.
const MaxOutboxErrorLen = 1024

// OutboxEvent is one row of outbox_events. Payload holds the serialized
// outbox.Envelope; the columns beside it exist for the relay's bookkeeping.
//
// A row is pending while PublishedAt and FailedAt are both nil. FailedAt is set
// once AttemptCount reaches the relay's ceiling, which parks the row.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`

	PublishedAt  *time.Time `gorm:"column:published_at"`
	AttemptCount int        `gorm:"column:attempt_count;not null;default:0"`
	LastError    *string    `gorm:"column:last_error"`
	FailedAt     *time.Time `gorm:"column:failed_at"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

func (e OutboxEvent) Pending() bool { return e.PublishedAt == nil && e.FailedAt == nil }

func (e OutboxEvent) Parked() bool { return e.PublishedAt == nil && e.FailedAt != nil }

// ParksOnFailure reports whether one more failed attempt exhausts maxAttempts.
func (e OutboxEvent) ParksOnFailure(maxAttempts int) bool {
	return maxAttempts > 0 && e.AttemptCount+1 >= maxAttempts
}

// LogFields identifies the row in structured logs.
func (e OutboxEvent) LogFields() map[string]any {
	return map[string]any{
		"outbox_id":     e.ID.String(),
		"event_type":    e.EventType,
		"aggregate_id":  e.AggregateID.String(),
		"attempt_count": e.AttemptCount,
	}
}

// OutboxErrorText truncates err's message to MaxOutboxErrorLen bytes without
// splitting a rune.
func OutboxErrorText(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) <= MaxOutboxErrorLen {
		return msg
	}
	cut := MaxOutboxErrorLen
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
