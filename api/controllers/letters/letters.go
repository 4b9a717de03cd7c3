package letters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/ttml-backend/api/controllers/actorcontext"
	"github.com/angelmondragon/ttml-backend/api/responses"
	"github.com/angelmondragon/ttml-backend/api/validators"
	lettersvc "github.com/angelmondragon/ttml-backend/internal/letters"
	"github.com/angelmondragon/ttml-backend/internal/subscriptions"
	"github.com/angelmondragon/ttml-backend/pkg/auth"
	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

// LetterService describes the letter operations used by the HTTP controllers.
type LetterService interface {
	GenerateLetter(ctx context.Context, actor auth.Actor, req lettersvc.GenerateRequest) (*lettersvc.GenerateResult, error)
	LetterPDF(ctx context.Context, actor auth.Actor, id uuid.UUID) ([]byte, error)
	SendLetterEmail(ctx context.Context, actor auth.Actor, id uuid.UUID, input lettersvc.SendEmailInput) (*lettersvc.SendResult, error)
	ListLetters(ctx context.Context, ownerID uuid.UUID) ([]models.Letter, error)
	GetLetter(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Letter, error)
}

// QuotaService reports what the caller can still generate.
type QuotaService interface {
	CanGenerateLetter(ctx context.Context, userID uuid.UUID) (*subscriptions.Quota, error)
}

type generateRequest struct {
	LetterType   string          `json:"letterType" validate:"required"`
	FormData     json.RawMessage `json:"formData" validate:"required"`
	UrgencyLevel string          `json:"urgencyLevel,omitempty"`
}

type sendEmailRequest struct {
	AttorneyEmail string `json:"attorney_email" validate:"required"`
	AttorneyName  string `json:"attorney_name,omitempty" validate:"max=200"`
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "letter service unavailable"))
}

// Types lists the letter type catalogue. Public.
func Types() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{"categories": lettersvc.Categories()})
	}
}

func Quota(svc QuotaService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quota, err := svc.CanGenerateLetter(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quota)
	}
}

// Generate spends one letter credit and drafts the letter.
func Generate(svc LetterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body generateRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.GenerateLetter(r.Context(), actor, lettersvc.GenerateRequest{
			LetterType:   body.LetterType,
			UrgencyLevel: body.UrgencyLevel,
			FormData:     body.FormData,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func PDF(svc LetterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		body, err := svc.LetterPDF(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePDF(w, fmt.Sprintf("letter-%s.pdf", id), body)
	}
}

func SendEmail(svc LetterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body sendEmailRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SendLetterEmail(r.Context(), actor, id, lettersvc.SendEmailInput{
			AttorneyEmail: body.AttorneyEmail,
			AttorneyName:  validators.SanitizeString(body.AttorneyName, 200),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// List returns the caller's own letters, newest first.
func List(svc LetterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListLetters(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"letters": list})
	}
}

func Get(svc LetterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		letter, err := svc.GetLetter(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, letter)
	}
}
