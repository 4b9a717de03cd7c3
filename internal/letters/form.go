package letters

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// FormData is the questionnaire a subscriber fills in before drafting.
type FormData struct {
	SenderName       string `json:"senderName" validate:"required,max=200"`
	SenderAddress    string `json:"senderAddress" validate:"required,max=500"`
	SenderEmail      string `json:"senderEmail,omitempty" validate:"omitempty,email,max=254"`
	RecipientName    string `json:"recipientName" validate:"required,max=200"`
	RecipientAddress string `json:"recipientAddress" validate:"required,max=500"`
	Subject          string `json:"subject" validate:"required,max=200"`
	IncidentDetails  string `json:"incidentDetails" validate:"required,max=10000"`
	DesiredOutcome   string `json:"desiredOutcome" validate:"required,max=2000"`
	Deadline         string `json:"deadline,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Amount           string `json:"amount,omitempty" validate:"omitempty,numeric,max=20"`
}

// ParseFormData decodes raw strictly and validates it; unknown keys are rejected.
func ParseFormData(raw json.RawMessage) (*FormData, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "formData is required")
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	var form FormData
	if err := decoder.Decode(&form); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid formData").
			WithDetails(map[string]any{"error": err.Error()})
	}
	form.trim()
	if err := validate.Struct(&form); err != nil {
		return nil, validationError(err)
	}
	return &form, nil
}

func (f *FormData) trim() {
	for _, field := range []*string{
		&f.SenderName, &f.SenderAddress, &f.SenderEmail, &f.RecipientName, &f.RecipientAddress,
		&f.Subject, &f.IncidentDetails, &f.DesiredOutcome, &f.Deadline, &f.Amount,
	} {
		*field = strings.TrimSpace(*field)
	}
}

func validationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := map[string]string{}
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			details[fe.Field()] = "is required"
		case "max":
			details[fe.Field()] = fmt.Sprintf("must be at most %s characters", fe.Param())
		case "email":
			details[fe.Field()] = "must be a valid email"
		case "datetime":
			details[fe.Field()] = "must be a date (YYYY-MM-DD)"
		default:
			details[fe.Field()] = "is invalid"
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid formData").WithDetails(details)
}

// ValidEmail reports whether addr is a syntactically valid email address.
func ValidEmail(addr string) bool {
	return validate.Var(addr, "required,email,max=254") == nil
}
