// Package model holds the inquiry domain types: the inbound Submission
// and the Record that is persisted for every accepted submission.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/deppfellow/travelease-inquiry/internal/validation"
)

// Client-facing validation messages.
const (
	MsgMissingField   = "Please fill out all the missing fields. Missing:%s"
	MsgInvalidEmail   = "Please enter a valid email address"
	MsgInvalidPhone   = "Phone number should only contain digits."
	MsgInvalidDate    = "Invalid date format"
	MsgDateRange      = "Your return date cannot be before your departure date."
	TravelersFallback = "N/A"
)

// Validation reasons reported in errors[].error.
const (
	ReasonMissing       = "missing"
	ReasonMalformed     = "malformed"
	ReasonNonDigit      = "non-digit"
	ReasonUnparseable   = "unparseable"
	ReasonStartAfterEnd = "start-after-end"
)

// RequiredFields are checked in this order; the first missing one is reported.
var RequiredFields = []string{"name", "email", "destination", "startDate", "endDate"}

// fieldOrder is the display order of the known keys. Anything else is an
// extension and is listed after them, sorted by key.
var fieldOrder = []string{
	"name", "email", "phone", "destination", "startDate", "endDate",
	"travelers", "tripType", "budget", "services", "requests",
}

// Submission is one inquiry form payload.
//
// The known fields are typed. Every other top-level key lands in Extensions,
// and the full set of submitted keys is kept verbatim so the persisted record
// and the business email see exactly what the client sent.
type Submission struct {
	Name        string          `json:"name,omitempty"`
	Email       string          `json:"email,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Destination string          `json:"destination,omitempty"`
	StartDate   string          `json:"startDate,omitempty"`
	EndDate     string          `json:"endDate,omitempty"`
	Travelers   json.RawMessage `json:"travelers,omitempty"`
	TripType    string          `json:"tripType,omitempty"`
	Budget      string          `json:"budget,omitempty"`
	Services    map[string]bool `json:"services,omitempty"`
	Requests    string          `json:"requests,omitempty"`

	// Extensions holds forward-compatible custom fields.
	Extensions map[string]json.RawMessage `json:"-"`

	raw map[string]json.RawMessage
}

// Field is one submitted key and its JSON value.
type Field struct {
	Key   string
	Value json.RawMessage
}

// UnmarshalJSON decodes a JSON object. Known keys are matched exactly (not
// case-insensitively like encoding/json does for struct fields) and a value of
// the wrong JSON type fails with a *json.UnmarshalTypeError naming the key.
func (s *Submission) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		raw = map[string]json.RawMessage{}
	}

	out := Submission{raw: raw}
	targets := out.targets()

	for key, value := range raw {
		target, known := targets[key]
		if !known {
			if out.Extensions == nil {
				out.Extensions = map[string]json.RawMessage{}
			}
			out.Extensions[key] = value
			continue
		}
		if err := json.Unmarshal(value, target); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				typeErr.Field = key
				return typeErr
			}
			return fmt.Errorf("field %s: %w", key, err)
		}
	}

	*s = out
	return nil
}

// MarshalJSON writes back every submitted key verbatim. A Submission built in
// code (never decoded) is written from its typed fields and Extensions.
func (s Submission) MarshalJSON() ([]byte, error) {
	values, err := s.values()
	if err != nil {
		return nil, err
	}
	return json.Marshal(values)
}

func (s *Submission) targets() map[string]any {
	return map[string]any{
		"name":        &s.Name,
		"email":       &s.Email,
		"phone":       &s.Phone,
		"destination": &s.Destination,
		"startDate":   &s.StartDate,
		"endDate":     &s.EndDate,
		"travelers":   &s.Travelers,
		"tripType":    &s.TripType,
		"budget":      &s.Budget,
		"services":    &s.Services,
		"requests":    &s.Requests,
	}
}

func (s Submission) values() (map[string]json.RawMessage, error) {
	if s.raw != nil {
		return s.raw, nil
	}

	// plain drops the methods so this does not recurse into MarshalJSON.
	type plain Submission
	b, err := json.Marshal(plain(s))
	if err != nil {
		return nil, err
	}
	values := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &values); err != nil {
		return nil, err
	}
	for k, v := range s.Extensions {
		if _, exists := values[k]; !exists {
			values[k] = v
		}
	}
	return values, nil
}

// Fields lists the submitted fields, known keys first in form order and
// extensions after them sorted by key.
func (s *Submission) Fields() []Field {
	values, err := s.values()
	if err != nil {
		return nil
	}

	fields := make([]Field, 0, len(values))
	seen := make(map[string]bool, len(fieldOrder))
	for _, key := range fieldOrder {
		seen[key] = true
		if v, ok := values[key]; ok {
			fields = append(fields, Field{Key: key, Value: v})
		}
	}

	var extra []string
	for key := range values {
		if !seen[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		fields = append(fields, Field{Key: key, Value: values[key]})
	}

	return fields
}

// TravelersText renders the traveler count for people, or "N/A" when the
// field is absent, null or empty.
func (s *Submission) TravelersText() string {
	raw := strings.TrimSpace(string(s.Travelers))
	if raw == "" || raw == "null" {
		return TravelersFallback
	}

	var str string
	if err := json.Unmarshal(s.Travelers, &str); err == nil {
		if strings.TrimSpace(str) == "" {
			return TravelersFallback
		}
		return str
	}
	return raw
}

// Validate runs the form checks in order and stops at the first failure:
// required fields, email shape, phone digits, then the travel dates.
func (s *Submission) Validate() error {
	required := map[string]string{
		"name":        s.Name,
		"email":       s.Email,
		"destination": s.Destination,
		"startDate":   s.StartDate,
		"endDate":     s.EndDate,
	}
	for _, field := range RequiredFields {
		if !validation.Check(required[field], "required") {
			return invalid(field, ReasonMissing, fmt.Sprintf(MsgMissingField, field))
		}
	}

	if !validation.Check(s.Email, validation.MailShapeTag) {
		return invalid("email", ReasonMalformed, MsgInvalidEmail)
	}

	if !validation.Check(s.Phone, "omitempty,number") {
		return invalid("phone", ReasonNonDigit, MsgInvalidPhone)
	}

	start, err := validation.ParseISODate(s.StartDate)
	if err != nil {
		return invalid("date", ReasonUnparseable, MsgInvalidDate)
	}
	end, err := validation.ParseISODate(s.EndDate)
	if err != nil {
		return invalid("date", ReasonUnparseable, MsgInvalidDate)
	}
	if start.After(end) {
		return invalid("dateRange", ReasonStartAfterEnd, MsgDateRange)
	}

	return nil
}

func invalid(field, reason, message string) error {
	return validation.CustomValidationErrors{{Field: field, Reason: reason, Message: message}}
}
