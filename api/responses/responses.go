package responses

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"path"
	"strconv"

	zlog "github.com/rs/zerolog/log"

	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, SuccessEnvelope{Data: data})
}

// WritePDF streams a rendered document as a download. Directory parts of
// filename are dropped.
func WritePDF(w http.ResponseWriter, filename string, body []byte) {
	name := path.Base("/" + filename)
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": name})
	if disposition == "" {
		disposition = "attachment"
	}
	h := w.Header()
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Disposition", disposition)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		zlog.Error().Err(err).Str("filename", name).Msg("failed to write pdf")
	}
}

// ErrorFor maps err onto the public envelope and status. Untyped errors are
// treated as internal so their text never reaches the client.
func ErrorFor(err error, requestID string) (int, ErrorEnvelope) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	body := APIError{
		Code:      string(typed.Code()),
		Message:   meta.PublicMessage,
		RequestID: requestID,
	}
	if meta.ExposeMessage && typed.Message() != "" {
		body.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		if details := typed.Details(); details != nil {
			body.Details = details
		}
	}
	return meta.HTTPStatus, ErrorEnvelope{Error: body}
}

// WriteError logs err with its full chain and writes the public envelope.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	status, payload := ErrorFor(err, w.Header().Get(RequestIDHeader))

	if logg != nil && err != nil {
		fields := pkgerrors.Dump(err).Fields()
		fields["http_status"] = status
		ctx = logg.WithFields(ctx, fields)
		if status >= http.StatusInternalServerError {
			logg.Error(ctx, "request error", err)
		} else {
			logg.Debug(ctx, "request rejected")
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, status, payload)
}

// writeJSON encodes before touching the status line so an unencodable
// payload still produces a clean 500.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		zlog.Error().Err(err).Int("status", status).Msg("failed to encode response")
		status = http.StatusInternalServerError
		raw = []byte(`{"error":{"code":"INTERNAL_ERROR","message":"Internal server error"}}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	raw = append(raw, '\n')
	if _, err := w.Write(raw); err != nil {
		zlog.Debug().Err(err).Int("status", status).Msg("client went away before response was written")
	}
}
