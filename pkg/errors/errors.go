package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation           Code = "VALIDATION_ERROR"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeForbidden            Code = "FORBIDDEN"
	CodeNotFound             Code = "NOT_FOUND"
	CodeMethodNotAllowed     Code = "METHOD_NOT_ALLOWED"
	CodeConflict             Code = "CONFLICT"
	CodeInvalidPlan          Code = "INVALID_PLAN"
	CodeInvalidCoupon        Code = "INVALID_COUPON"
	CodeCouponExhausted      Code = "COUPON_EXHAUSTED"
	CodeQuotaExceeded        Code = "QUOTA_EXCEEDED"
	CodeSubscriptionInactive Code = "SUBSCRIPTION_INACTIVE"
	CodeInvalidTransition    Code = "INVALID_STATE_TRANSITION"
	CodeExternalService      Code = "EXTERNAL_SERVICE_FAILURE"
	CodeIdempotency          Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit            Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal             Code = "INTERNAL_ERROR"
	CodeDependency           Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code surfaces at the HTTP boundary.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	ExposeMessage  bool
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "validation failed",
		ExposeMessage:  true,
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "authentication required",
		ExposeMessage: true,
	},
	CodeForbidden: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "access denied",
		ExposeMessage: true,
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
		ExposeMessage: true,
	},
	CodeMethodNotAllowed: {
		HTTPStatus:    http.StatusMethodNotAllowed,
		PublicMessage: "method not allowed",
		ExposeMessage: true,
	},
	CodeConflict: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "conflict detected",
		ExposeMessage: true,
	},
	CodeInvalidPlan: {
		HTTPStatus:    http.StatusBadRequest,
		PublicMessage: "invalid plan",
		ExposeMessage: true,
	},
	CodeInvalidCoupon: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "invalid coupon code",
		ExposeMessage:  true,
		DetailsAllowed: true,
	},
	CodeCouponExhausted: {
		HTTPStatus:    http.StatusBadRequest,
		PublicMessage: "coupon has reached its usage limit",
		ExposeMessage: true,
	},
	CodeQuotaExceeded: {
		HTTPStatus:    http.StatusBadRequest,
		PublicMessage: "letter quota exceeded",
		ExposeMessage: true,
	},
	CodeSubscriptionInactive: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "no active subscription",
		ExposeMessage: true,
	},
	CodeInvalidTransition: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "state transition disallowed",
		ExposeMessage:  true,
		DetailsAllowed: true,
	},
	CodeExternalService: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "external service failure",
		ExposeMessage: true,
	},
	CodeIdempotency: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "idempotency key reused",
		ExposeMessage:  true,
		DetailsAllowed: true,
	},
	CodeRateLimit: {
		HTTPStatus:    http.StatusTooManyRequests,
		PublicMessage: "rate limit exceeded",
		ExposeMessage: true,
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "Internal server error",
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
