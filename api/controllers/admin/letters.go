package admin

import (
	"context"
	"net/http"

	"github.com/angelmondragon/ttml-backend/api/responses"
	"github.com/angelmondragon/ttml-backend/api/validators"
	"github.com/angelmondragon/ttml-backend/internal/letters"
	"github.com/angelmondragon/ttml-backend/internal/subscriptions"
	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
	"github.com/angelmondragon/ttml-backend/pkg/pagination"
)

type LetterLister interface {
	ListAllLetters(ctx context.Context, query letters.ListQuery) ([]models.Letter, *pagination.Cursor, error)
}

type SubscriptionLister interface {
	List(ctx context.Context, query subscriptions.ListQuery) ([]models.Subscription, *pagination.Cursor, error)
}

// ListLetters supports ?user_id=&status=&limit=&cursor=.
func ListLetters(svc LetterLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "letter service")
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := validators.ParseOptionalUUIDQuery(r, "user_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enumQuery(r, "status", enums.ParseLetterStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, next, err := svc.ListAllLetters(r.Context(), letters.ListQuery{UserID: userID, Status: status, Params: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagination.NewPage(list, next))
	}
}

// ListSubscriptions supports ?user_id=&status=&limit=&cursor=.
func ListSubscriptions(svc SubscriptionLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "subscription service")
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := validators.ParseOptionalUUIDQuery(r, "user_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enumQuery(r, "status", enums.ParseSubscriptionStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, next, err := svc.List(r.Context(), subscriptions.ListQuery{UserID: userID, Status: status, Params: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagination.NewPage(list, next))
	}
}
