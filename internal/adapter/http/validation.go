package http

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Reusable error payload
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
type ErrorResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
}

// account ids are opaque handles: letters, digits and a few separators.
var (
	reAccount = regexp.MustCompile(`^[A-Za-z0-9_.:\-]{1,64}$`)
	reHex     = regexp.MustCompile(`^[0-9a-fA-F]+$`)
)

type CustomValidator struct{ v *validator.Validate }

func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("account", func(fl validator.FieldLevel) bool {
		return reAccount.MatchString(fl.Field().String())
	})
	// oracle results are hex with an optional 0x prefix
	_ = v.RegisterValidation("hexresult", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
			s = s[2:]
		}
		return s != "" && reHex.MatchString(s)
	})

	return &CustomValidator{v: v}
}

func (cv *CustomValidator) Validate(i any) error { return cv.v.Struct(i) }

// Map validator.ValidationErrors → []FieldError with readable messages.
func ToFieldErrors(err error) []FieldError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []FieldError{{Field: "_", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(ve))
	for _, e := range ve {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out = append(out, FieldError{Field: field, Message: "is required"})
		case "account":
			out = append(out, FieldError{Field: field, Message: "must be 1-64 chars of [A-Za-z0-9_.:-]"})
		case "hexresult":
			out = append(out, FieldError{Field: field, Message: "must be hex encoded"})
		case "gt":
			out = append(out, FieldError{Field: field, Message: "must be greater than " + e.Param()})
		case "gte":
			out = append(out, FieldError{Field: field, Message: "must be greater than or equal to " + e.Param()})
		case "lte":
			out = append(out, FieldError{Field: field, Message: "must be less than or equal to " + e.Param()})
		case "max":
			out = append(out, FieldError{Field: field, Message: "must be at most " + e.Param() + " long"})
		default:
			out = append(out, FieldError{Field: field, Message: e.Tag() + " validation failed"})
		}
	}
	return out
}
