package admin

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/ttml-backend/api/controllers/actorcontext"
	"github.com/angelmondragon/ttml-backend/api/responses"
	"github.com/angelmondragon/ttml-backend/api/validators"
	"github.com/angelmondragon/ttml-backend/internal/users"
	"github.com/angelmondragon/ttml-backend/pkg/auth"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
	"github.com/angelmondragon/ttml-backend/pkg/pagination"
)

// UserService is the admin view over profiles and roles.
type UserService interface {
	ListUsers(ctx context.Context, query users.ListQuery) ([]users.UserDTO, *pagination.Cursor, error)
	ChangeRole(ctx context.Context, actor auth.Actor, userID uuid.UUID, role enums.Role) (*users.UserDTO, error)
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user employee admin"`
}

// ListUsers supports ?role=&search=&limit=&cursor=.
func ListUsers(svc UserService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "user service")
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := enumQuery(r, "role", enums.ParseRole)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, next, err := svc.ListUsers(r.Context(), users.ListQuery{
			Role:   role,
			Search: validators.SanitizeString(r.URL.Query().Get("search"), 100),
			Params: params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagination.NewPage(list, next))
	}
}

func ChangeUserRole(svc UserService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "user service")
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
		var body changeRoleRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.ChangeRole(r.Context(), actor, id, enums.Role(body.Role))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}
