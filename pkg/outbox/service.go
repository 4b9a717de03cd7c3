// Package outbox records domain events in the same transaction as the state
// change that caused them. cmd/outbox-publisher delivers them afterwards.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	OccurredAt    time.Time
}

// Emitter writes domain events inside the caller's transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error
}

type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("outbox: emit needs the caller's transaction")
	}
	env, err := s.envelope(event)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("outbox: encode envelope: %w", err)
	}

	row := models.OutboxEvent{
		ID:            env.EventID,
		EventType:     env.EventType,
		AggregateType: env.AggregateType,
		AggregateID:   env.AggregateID,
		Payload:       payload,
	}
	if err := s.repo.Insert(tx.WithContext(ctx), row); err != nil {
		return fmt.Errorf("outbox: insert %s: %w", env.EventType, err)
	}

	if s.logg != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"event_id":     env.EventID.String(),
			"event_type":   env.EventType,
			"aggregate_id": env.AggregateID.String(),
		}), "outbox event queued")
	}
	return nil
}

func (s *Service) envelope(event DomainEvent) (Envelope, error) {
	if !event.EventType.IsValid() {
		return Envelope{}, fmt.Errorf("outbox: unknown event type %q", event.EventType)
	}
	if event.AggregateType == "" {
		event.AggregateType = event.EventType.Aggregate()
	}
	if event.AggregateType != event.EventType.Aggregate() {
		return Envelope{}, fmt.Errorf("outbox: %s events belong to %s, not %q", event.EventType, event.EventType.Aggregate(), event.AggregateType)
	}
	data, err := json.Marshal(event.Data)
	if err != nil {
		return Envelope{}, fmt.Errorf("outbox: encode %s data: %w", event.EventType, err)
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = s.now()
	}
	return Envelope{
		Version:       EnvelopeVersion,
		EventID:       uuid.New(),
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		OccurredAt:    occurred.UTC(),
		Actor:         event.Actor,
		Data:          data,
	}, nil
}
