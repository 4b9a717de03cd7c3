package admin

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/ttml-backend/api/responses"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, what string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, what+" unavailable"))
}

// enumQuery parses an optional enum query parameter with the given parser.
func enumQuery[T any](r *http.Request, key string, parse func(string) (T, error)) (*T, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	return &v, nil
}
