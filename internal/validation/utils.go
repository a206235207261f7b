// Package validation contains the logic for validating
// request data.
//
// It uses the `validator` library to enforce rules (like
// required fields or digit-only values), adds the custom rules the
// inquiry form needs, and converts validation errors into a format the
// client can understand.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/deppfellow/travelease-inquiry/internal/errs"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Error codes attached to 400 responses.
const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
)

// Validatable is implemented by request payload types that know how to validate themselves.
//
// Typical pattern:
// - Define a request struct
// - Implement Validate() error using the helpers in this package
// - Return validator.ValidationErrors or CustomValidationErrors
type Validatable interface {
	Validate() error
}

// CustomValidationError represents a single validation issue for a specific field.
// This is used for validation errors that cannot be expressed via validator tags.
type CustomValidationError struct {
	// Field is the offending field as the client named it.
	Field string
	// Reason is a short machine-friendly cause ("missing", "malformed", ...).
	Reason string
	// Message is shown to the submitter.
	Message string
}

// CustomValidationErrors is a slice of custom validation errors that satisfies error.
type CustomValidationErrors []CustomValidationError

func (c CustomValidationErrors) Error() string {
	if len(c) == 0 {
		return "Validation failed"
	}
	return fmt.Sprintf("Validation failed: %s %s", c[0].Field, c[0].Reason)
}

// BindAndValidate decodes the JSON request body into payload and validates it.
//
// The body is decoded regardless of Content-Type, because API Gateway
// proxies do not always forward it. An empty body is treated as "{}".
// Returns *errs.HTTPError (400) with field-level errors if anything fails.
func BindAndValidate(c echo.Context, payload Validatable) error {
	if err := decodeJSONBody(c.Request().Body, payload); err != nil {
		return err
	}

	if msg, fieldErrors := validateStruct(payload); fieldErrors != nil {
		code := CodeValidationFailed
		return errs.NewBadRequestError(msg, true, &code, fieldErrors)
	}

	return nil
}

func decodeJSONBody(body io.Reader, payload any) error {
	code := CodeInvalidRequestBody

	var raw []byte
	if body != nil {
		var err error
		raw, err = io.ReadAll(body)
		if err != nil {
			return errs.NewBadRequestError("Could not read request body", false, &code, nil)
		}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}

	if err := json.Unmarshal(raw, payload); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return errs.NewBadRequestError(
				fmt.Sprintf("Invalid value for field %s", typeErr.Field),
				true, &code,
				[]errs.FieldError{{Field: typeErr.Field, Error: "wrong type"}},
			)
		}
		return errs.NewBadRequestError("Request body must be a JSON object", true, &code, nil)
	}

	return nil
}

// validateStruct calls v.Validate() and extracts field errors if validation fails.
func validateStruct(v Validatable) (string, []errs.FieldError) {
	if err := v.Validate(); err != nil {
		return extractValidationError(err)
	}
	return "", nil
}

func extractValidationError(err error) (string, []errs.FieldError) {
	var fieldErrors []errs.FieldError

	var customValidationErrors CustomValidationErrors
	if errors.As(err, &customValidationErrors) {
		for _, err := range customValidationErrors {
			fieldErrors = append(fieldErrors, errs.FieldError{
				Field: err.Field,
				Error: err.Reason,
			})
		}
		if len(customValidationErrors) > 0 {
			return customValidationErrors[0].Message, fieldErrors
		}
		return "Validation failed", fieldErrors
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "Validation failed", []errs.FieldError{{Field: "", Error: err.Error()}}
	}

	// Convert validator.ValidationErrors into user-friendly messages.
	for _, err := range validationErrors {
		var msg string

		switch err.Tag() {
		case "required":
			msg = "is required"

		case "min":
			if err.Type().Kind() == reflect.String {
				msg = fmt.Sprintf("must be at least %s characters", err.Param())
			} else {
				msg = fmt.Sprintf("must be at least %s", err.Param())
			}

		case "max":
			if err.Type().Kind() == reflect.String {
				msg = fmt.Sprintf("must not exceed %s characters", err.Param())
			} else {
				msg = fmt.Sprintf("must not exceed %s", err.Param())
			}

		case "oneof":
			msg = fmt.Sprintf("must be one of: %s", err.Param())

		case "number":
			msg = "must contain only digits"

		case MailShapeTag:
			msg = "must be a valid email address"

		default:
			if err.Param() != "" {
				msg = fmt.Sprintf("%s:%s", err.Tag(), err.Param())
			} else {
				msg = err.Tag()
			}
		}

		fieldErrors = append(fieldErrors, errs.FieldError{
			Field: lowerFirst(err.Field()),
			Error: msg,
		})
	}

	return "Validation failed", fieldErrors
}

// lowerFirst turns a Go field name into the client's camelCase key
// (StartDate -> startDate).
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
