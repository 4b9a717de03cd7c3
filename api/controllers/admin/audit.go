package admin

import (
	"context"
	"net/http"

	"github.com/angelmondragon/ttml-backend/api/responses"
	"github.com/angelmondragon/ttml-backend/api/validators"
	"github.com/angelmondragon/ttml-backend/internal/audit"
	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

type AuditLister interface {
	List(ctx context.Context, query audit.Query) ([]models.AuditLog, error)
}

// ListAuditLogs supports ?user_id=&event_type=&start=&end=&limit=.
func ListAuditLogs(svc AuditLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "audit service")
			return
		}
		query := audit.Query{}
		var err error
		if query.Limit, err = validators.ParseQueryInt(r, "limit", audit.DefaultQueryLimit, 1, audit.MaxQueryLimit); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if query.UserID, err = validators.ParseOptionalUUIDQuery(r, "user_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if query.EventType, err = enumQuery(r, "event_type", enums.ParseAuditEventType); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if query.Start, err = validators.ParseOptionalTimeQuery(r, "start"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if query.End, err = validators.ParseOptionalTimeQuery(r, "end"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if query.Start != nil && query.End != nil && query.End.Before(*query.Start) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "end must not be before start"))
			return
		}

		logs, err := svc.List(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit logs"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"logs": logs})
	}
}
