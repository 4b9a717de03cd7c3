package admin

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/ttml-backend/api/controllers/actorcontext"
	"github.com/angelmondragon/ttml-backend/api/responses"
	"github.com/angelmondragon/ttml-backend/api/validators"
	"github.com/angelmondragon/ttml-backend/internal/commissions"
	"github.com/angelmondragon/ttml-backend/pkg/auth"
	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
	"github.com/angelmondragon/ttml-backend/pkg/pagination"
)

type CommissionService interface {
	MarkCommissionPaid(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Commission, error)
	CancelCommission(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Commission, error)
	List(ctx context.Context, query commissions.ListQuery) ([]models.Commission, *pagination.Cursor, error)
}

// ListCommissions supports ?employee_id=&status=&limit=&cursor=.
func ListCommissions(svc CommissionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "commission service")
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		employeeID, err := validators.ParseOptionalUUIDQuery(r, "employee_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enumQuery(r, "status", enums.ParseCommissionStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, next, err := svc.List(r.Context(), commissions.ListQuery{EmployeeID: employeeID, Status: status, Params: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagination.NewPage(list, next))
	}
}

// PayCommission moves a pending commission to paid.
func PayCommission(svc CommissionService, logg *logger.Logger) http.HandlerFunc {
	return commissionTransition(svc, logg, func(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Commission, error) {
		return svc.MarkCommissionPaid(ctx, actor, id)
	})
}

func CancelCommission(svc CommissionService, logg *logger.Logger) http.HandlerFunc {
	return commissionTransition(svc, logg, func(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Commission, error) {
		return svc.CancelCommission(ctx, actor, id)
	})
}

func commissionTransition(svc CommissionService, logg *logger.Logger, apply func(context.Context, auth.Actor, uuid.UUID) (*models.Commission, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "commission service")
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
		commission, err := apply(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, commission)
	}
}
