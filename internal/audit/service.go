package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

// Entry describes one audit event.
type Entry struct {
	UserID       *uuid.UUID
	EventType    enums.AuditEventType
	Action       string
	ResourceType string
	ResourceID   string
	Metadata     map[string]any
}

// Recorder is the write side used by other services.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Service writes audit rows on a best-effort basis: failures are logged, never returned.
type Service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

func (s *Service) Record(ctx context.Context, entry Entry) {
	if s == nil || s.repo == nil {
		return
	}
	if !entry.EventType.IsValid() {
		s.warn(ctx, entry, "audit.unknown_event_type")
		return
	}

	row := &models.AuditLog{
		ID:        uuid.New(),
		UserID:    entry.UserID,
		EventType: entry.EventType,
		Action:    entry.Action,
		CreatedAt: s.now().UTC(),
	}
	if entry.ResourceType != "" {
		row.ResourceType = &entry.ResourceType
	}
	if entry.ResourceID != "" {
		row.ResourceID = &entry.ResourceID
	}
	meta := RequestMetaFromContext(ctx)
	if meta.IP != "" {
		row.IPAddress = &meta.IP
	}
	if meta.UserAgent != "" {
		row.UserAgent = &meta.UserAgent
	}
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err == nil {
			row.Metadata = raw
		}
	}

	if err := s.repo.Create(ctx, row); err != nil && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event_type": entry.EventType,
			"action":     entry.Action,
		})
		s.logg.Error(logCtx, "audit.write_failed", err)
	}
}

func (s *Service) List(ctx context.Context, query Query) ([]models.AuditLog, error) {
	return s.repo.List(ctx, query)
}

func (s *Service) warn(ctx context.Context, entry Entry, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "event_type", entry.EventType), msg)
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}
