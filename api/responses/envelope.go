package responses

// RequestIDHeader is set by the request-id middleware before any handler runs.
const RequestIDHeader = "X-Request-Id"

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	// RequestID lets a client quote the failing request to support.
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
