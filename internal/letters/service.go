package letters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ttml-backend/internal/audit"
	"github.com/angelmondragon/ttml-backend/internal/letters/pdf"
	"github.com/angelmondragon/ttml-backend/internal/subscriptions"
	"github.com/angelmondragon/ttml-backend/pkg/auth"
	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/email"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/llm"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
	"github.com/angelmondragon/ttml-backend/pkg/metrics"
	"github.com/angelmondragon/ttml-backend/pkg/outbox"
	"github.com/angelmondragon/ttml-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/ttml-backend/pkg/pagination"
)

const maxFailureReason = 500

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type quotaManager interface {
	RefillDueForUser(ctx context.Context, userID uuid.UUID) error
	ConsumeLetterQuota(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Subscription, error)
	CanGenerateLetter(ctx context.Context, userID uuid.UUID) (*subscriptions.Quota, error)
}

type profileReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// Service drafts, renders and delivers letters.
type Service interface {
	GenerateLetter(ctx context.Context, actor auth.Actor, req GenerateRequest) (*GenerateResult, error)
	LetterPDF(ctx context.Context, actor auth.Actor, id uuid.UUID) ([]byte, error)
	SendLetterEmail(ctx context.Context, actor auth.Actor, id uuid.UUID, input SendEmailInput) (*SendResult, error)
	ListLetters(ctx context.Context, ownerID uuid.UUID) ([]models.Letter, error)
	GetLetter(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Letter, error)
	ListAllLetters(ctx context.Context, query ListQuery) ([]models.Letter, *pagination.Cursor, error)
}

// GenerateRequest is the drafting request as received from the client.
type GenerateRequest struct {
	LetterType   string
	UrgencyLevel string
	FormData     json.RawMessage
}

type GenerateResult struct {
	Letter           *models.Letter `json:"letter"`
	RemainingLetters int            `json:"remaining_letters"`
}

type SendEmailInput struct {
	AttorneyEmail string
	AttorneyName  string
}

type SendResult struct {
	Success bool   `json:"success"`
	SentTo  string `json:"sent_to"`
}

// ServiceParams groups dependencies for the letter service.
type ServiceParams struct {
	Repository        Repository
	Quota             quotaManager
	Profiles          profileReader
	Completer         llm.Completer
	Mailer            email.Sender
	Outbox            outbox.Emitter
	TransactionRunner txRunner
	Audit             audit.Recorder
	Metrics           *metrics.DomainMetrics
	Logger            *logger.Logger
	AppName           string
	PublicURL         string
	Now               func() time.Time
}

type service struct {
	repo      Repository
	quota     quotaManager
	profiles  profileReader
	completer llm.Completer
	mailer    email.Sender
	outbox    outbox.Emitter
	txRunner  txRunner
	audit     audit.Recorder
	metrics   *metrics.DomainMetrics
	logg      *logger.Logger
	appName   string
	publicURL string
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("letter repository required")
	case params.Quota == nil:
		return nil, fmt.Errorf("quota manager required")
	case params.Profiles == nil:
		return nil, fmt.Errorf("profile reader required")
	case params.Completer == nil:
		return nil, fmt.Errorf("llm completer required")
	case params.Mailer == nil:
		return nil, fmt.Errorf("email sender required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.TransactionRunner == nil:
		return nil, fmt.Errorf("transaction runner required")
	}
	recorder := params.Audit
	if recorder == nil {
		recorder = audit.Nop{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repository,
		quota:     params.Quota,
		profiles:  params.Profiles,
		completer: params.Completer,
		mailer:    params.Mailer,
		outbox:    params.Outbox,
		txRunner:  params.TransactionRunner,
		audit:     recorder,
		metrics:   params.Metrics,
		logg:      params.Logger,
		appName:   params.AppName,
		publicURL: params.PublicURL,
		now:       now,
	}, nil
}

func (s *service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// GenerateLetter spends one letter of quota and drafts the letter with the completion API.
// The spent quota is not returned when drafting fails.
func (s *service) GenerateLetter(ctx context.Context, actor auth.Actor, req GenerateRequest) (*GenerateResult, error) {
	letterType, ok := LookupLetterType(strings.TrimSpace(req.LetterType))
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown letter type").
			WithDetails(map[string]any{"letterType": req.LetterType})
	}
	urgency := enums.UrgencyStandard
	if raw := strings.TrimSpace(req.UrgencyLevel); raw != "" {
		parsed, err := enums.ParseUrgencyLevel(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid urgency level").
				WithDetails(map[string]any{"urgencyLevel": "must be one of low, standard, urgent"})
		}
		urgency = parsed
	}
	form, err := ParseFormData(req.FormData)
	if err != nil {
		return nil, err
	}
	normalized, err := json.Marshal(form)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode form data")
	}

	if err := s.quota.RefillDueForUser(ctx, actor.UserID); err != nil {
		return nil, err
	}

	started := time.Now()
	now := s.clock()
	letter := &models.Letter{
		ID:               uuid.New(),
		UserID:           actor.UserID,
		LetterType:       letterType.ID,
		UrgencyLevel:     urgency,
		Title:            form.Subject,
		RecipientName:    form.RecipientName,
		RecipientAddress: form.RecipientAddress,
		FormData:         normalized,
		Status:           enums.LetterStatusDraft,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var spent *models.Subscription
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		sub, err := s.quota.ConsumeLetterQuota(ctx, tx, actor.UserID)
		if err != nil {
			return err
		}
		spent = sub
		letter.SubscriptionID = &sub.ID

		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, letter); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create letter")
		}
		if err := s.transition(ctx, tx, letter, enums.LetterStatusGenerating, nil, enums.EventLetterRequested); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		s.metrics.LetterGenerated(letterType.ID, metrics.OutcomeRejected, time.Since(started))
		return nil, err
	}

	content, genErr := s.completer.Complete(ctx, buildPrompt(letterType, urgency, form))

	// The outcome is recorded even if the caller has gone away.
	persistCtx := context.WithoutCancel(ctx)
	finishedAt := s.clock()
	if genErr != nil {
		reason := truncate(genErr.Error(), maxFailureReason)
		err := s.txRunner.WithTx(persistCtx, func(tx *gorm.DB) error {
			return s.transition(persistCtx, tx, letter, enums.LetterStatusFailed, map[string]any{
				"failure_reason": reason,
				"updated_at":     finishedAt,
			}, enums.EventLetterFailed)
		})
		if s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "letter_id", letter.ID.String()), "letter.generation_failed", genErr)
		}
		s.metrics.LetterGenerated(letterType.ID, metrics.OutcomeFailure, time.Since(started))
		if err != nil {
			// The letter stays in generating until the stuck-letter sweep fails it.
			return nil, pkgerrors.Wrap(pkgerrors.CodeExternalService, errors.Join(genErr, err), "letter generation failed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeExternalService, genErr, "letter generation failed")
	}

	err = s.txRunner.WithTx(persistCtx, func(tx *gorm.DB) error {
		return s.transition(persistCtx, tx, letter, enums.LetterStatusCompleted, map[string]any{
			"content":      content,
			"completed_at": finishedAt,
			"updated_at":   finishedAt,
		}, enums.EventLetterGenerated)
	})
	if err != nil {
		s.metrics.LetterGenerated(letterType.ID, metrics.OutcomeFailure, time.Since(started))
		return nil, err
	}
	letter.Content = content
	letter.CompletedAt = &finishedAt
	letter.UpdatedAt = finishedAt

	s.metrics.LetterGenerated(letterType.ID, metrics.OutcomeSuccess, time.Since(started))
	s.audit.Record(ctx, audit.Entry{
		UserID:       &actor.UserID,
		EventType:    enums.AuditLetterCreated,
		Action:       "generate",
		ResourceType: "letter",
		ResourceID:   letter.ID.String(),
		Metadata:     map[string]any{"letter_type": letterType.ID, "urgency": string(urgency)},
	})

	remaining := spent.LettersRemaining
	if quota, err := s.quota.CanGenerateLetter(ctx, actor.UserID); err == nil {
		remaining = quota.Remaining
	}
	return &GenerateResult{Letter: letter, RemainingLetters: remaining}, nil
}

// transition applies a guarded status change and emits the matching event in tx.
func (s *service) transition(ctx context.Context, tx *gorm.DB, letter *models.Letter, to enums.LetterStatus, fields map[string]any, eventType enums.OutboxEventType) error {
	from := letter.Status
	if !from.CanTransitionTo(to) {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("letter cannot move from %s to %s", from, to))
	}
	ok, err := s.repo.WithTx(tx).Transition(ctx, letter.ID, from, to, fields)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update letter status")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("letter is no longer %s", from))
	}
	letter.Status = to
	if reason, ok := fields["failure_reason"].(string); ok {
		letter.FailureReason = &reason
	}
	return s.emit(ctx, tx, eventType, letter, "")
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, letter *models.Letter, attorneyEmail string) error {
	data := payloads.LetterEvent{
		LetterID:      letter.ID,
		UserID:        letter.UserID,
		LetterType:    letter.LetterType,
		Status:        string(letter.Status),
		AttorneyEmail: attorneyEmail,
	}
	if letter.FailureReason != nil {
		data.FailureReason = *letter.FailureReason
	}
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateLetter,
		AggregateID:   letter.ID,
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit letter event")
	}
	return nil
}

// RenderPDF lays out a completed letter as a PDF. The output depends only on the letter.
func RenderPDF(letter *models.Letter) ([]byte, error) {
	if letter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "letter required")
	}
	if letter.Status != enums.LetterStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only completed letters can be exported")
	}
	var author string
	var form FormData
	if err := json.Unmarshal(letter.FormData, &form); err == nil {
		author = form.SenderName
	}
	out, err := pdf.Render(pdf.Document{
		Date:             letter.CreatedAt,
		RecipientName:    letter.RecipientName,
		RecipientAddress: letter.RecipientAddress,
		Title:            letter.Title,
		Body:             letter.Content,
		Author:           author,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render letter pdf")
	}
	return out, nil
}

func (s *service) LetterPDF(ctx context.Context, actor auth.Actor, id uuid.UUID) ([]byte, error) {
	letter, err := s.GetLetter(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return RenderPDF(letter)
}

// SendLetterEmail delivers a completed letter to an attorney. The letter is only
// stamped once the relay accepts the message.
func (s *service) SendLetterEmail(ctx context.Context, actor auth.Actor, id uuid.UUID, input SendEmailInput) (*SendResult, error) {
	to := strings.TrimSpace(input.AttorneyEmail)
	if !ValidEmail(to) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email address").
			WithDetails(map[string]any{"attorney_email": "must be a valid email"})
	}
	letter, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(letter.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "letter belongs to another user")
	}
	if letter.Status != enums.LetterStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only completed letters can be sent").
			WithDetails(map[string]any{"status": letter.Status})
	}

	sender, err := s.profiles.FindByID(ctx, letter.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sender profile")
	}
	html, err := renderLetterEmail(s.appName, s.publicURL, sender.FullName, input.AttorneyName, letter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render email")
	}

	err = s.mailer.Send(ctx, email.Message{
		To:      to,
		ToName:  strings.Join(strings.Fields(input.AttorneyName), " "),
		ReplyTo: sender.Email,
		Subject: emailSubject(letter),
		HTML:    html,
	})
	if err != nil {
		s.metrics.EmailDelivery(metrics.OutcomeFailure)
		if s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "letter_id", letter.ID.String()), "letter.email_failed", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeExternalService, err, "email delivery failed")
	}
	s.metrics.EmailDelivery(metrics.OutcomeSuccess)

	sentAt := s.clock()
	persistCtx := context.WithoutCancel(ctx)
	err = s.txRunner.WithTx(persistCtx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).MarkSent(persistCtx, letter.ID, to, sentAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record email delivery")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "letter is no longer completed")
		}
		return s.emit(persistCtx, tx, enums.EventLetterEmailed, letter, to)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		UserID:       &actor.UserID,
		EventType:    enums.AuditLetterEmailed,
		Action:       "send_email",
		ResourceType: "letter",
		ResourceID:   letter.ID.String(),
		Metadata:     map[string]any{"attorney_email": to},
	})
	return &SendResult{Success: true, SentTo: to}, nil
}

func (s *service) ListLetters(ctx context.Context, ownerID uuid.UUID) ([]models.Letter, error) {
	rows, err := s.repo.ListForUser(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list letters")
	}
	return rows, nil
}

// GetLetter returns a letter to its owner or to staff.
func (s *service) GetLetter(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Letter, error) {
	letter, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(letter.UserID) && !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "letter belongs to another user")
	}
	return letter, nil
}

func (s *service) ListAllLetters(ctx context.Context, query ListQuery) ([]models.Letter, *pagination.Cursor, error) {
	if _, err := pagination.ParseCursor(query.Cursor); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list letters")
	}
	return rows, next, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Letter, error) {
	letter, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "letter not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load letter")
	}
	return letter, nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
