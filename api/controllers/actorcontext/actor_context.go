package actorcontext

import (
	"net/http"

	"github.com/angelmondragon/ttml-backend/api/middleware"
	"github.com/angelmondragon/ttml-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
)

// Resolve extracts the authenticated actor placed on the request by the auth middleware.
func Resolve(r *http.Request) (auth.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return auth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return actor, nil
}
