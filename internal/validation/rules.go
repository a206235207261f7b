package validation

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// MailShapeTag is the validator tag for the cheap email shape check.
const MailShapeTag = "mailshape"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation(MailShapeTag, func(fl validator.FieldLevel) bool {
		return IsEmailShape(fl.Field().String())
	})
	return v
}

// Check reports whether value satisfies the validator tag expression,
// e.g. Check(phone, "omitempty,number").
func Check(value any, tag string) bool {
	return validate.Var(value, tag) == nil
}

// Validator exposes the shared validator, with the custom rules registered,
// for struct-tag validation.
func Validator() *validator.Validate {
	return validate
}

// IsEmailShape is a shape check, not RFC 5322 validation: exactly one "@",
// non-empty local and domain parts, and a domain containing a "." that is
// neither its first nor its last character.
func IsEmailShape(email string) bool {
	if strings.Count(email, "@") != 1 {
		return false
	}
	local, domain, _ := strings.Cut(email, "@")
	if local == "" || domain == "" {
		return false
	}
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}
	return true
}

// isoLayouts are the ISO-8601 shapes accepted for travel dates: plain dates
// and date-times with "T" or space separator, optional seconds, fraction
// and offset.
var isoLayouts = []string{
	time.DateOnly,
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
}

// ErrUnparseableDate is returned by ParseISODate for values matching no layout.
var ErrUnparseableDate = errors.New("unparseable ISO-8601 date")

// ParseISODate parses an ISO-8601 date or date-time. Values without an
// offset are interpreted as UTC so naive and offset-aware values compare.
func ParseISODate(value string) (time.Time, error) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrUnparseableDate
}
