package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/deppfellow/travelease-inquiry/internal/lib/utils"
	"github.com/deppfellow/travelease-inquiry/internal/model"
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ConfirmationData feeds the submitter's summary email.
type ConfirmationData struct {
	Name         string
	SubmissionID string
	Destination  string
	StartDate    string
	EndDate      string
	Travelers    string
}

// DisplayField is one submitted field as shown in the business email.
type DisplayField struct {
	Label string
	Value string
}

// BusinessData feeds the business notification email.
type BusinessData struct {
	SubmissionID string
	Fields       []DisplayField
	// Dump is the indented JSON of every submitted field, kept for audit.
	Dump string
}

// NotifyInquiry sends the confirmation to the submitter and then the
// notification to the business. It stops at the first failure, so the
// business email is never sent when the confirmation could not be.
func (c *Client) NotifyInquiry(ctx context.Context, rec *model.Record) error {
	if err := c.SendInquiryConfirmation(ctx, rec); err != nil {
		return err
	}
	return c.SendInquiryNotification(ctx, rec)
}

// SendInquiryConfirmation sends the summary email to the submitter.
func (c *Client) SendInquiryConfirmation(ctx context.Context, rec *model.Record) error {
	sub := rec.Submission

	return c.SendEmail(
		ctx,
		sub.Email,
		fmt.Sprintf("Your TravelEase Inquiry Summary (Ref: %s)", rec.SubmissionID),
		TemplateInquiryConfirmation,
		NewConfirmationData(rec),
	)
}

// SendInquiryNotification sends every submitted field to the business address.
func (c *Client) SendInquiryNotification(ctx context.Context, rec *model.Record) error {
	data, err := NewBusinessData(rec)
	if err != nil {
		return err
	}

	return c.SendEmail(
		ctx,
		c.businessAddress,
		fmt.Sprintf("New Inquiry from %s (Ref: %s)", rec.Submission.Name, rec.SubmissionID),
		TemplateInquiryBusiness,
		data,
	)
}

// NewConfirmationData builds the confirmation template data for a record.
func NewConfirmationData(rec *model.Record) ConfirmationData {
	sub := rec.Submission
	return ConfirmationData{
		Name:         sub.Name,
		SubmissionID: rec.SubmissionID,
		Destination:  sub.Destination,
		StartDate:    sub.StartDate,
		EndDate:      sub.EndDate,
		Travelers:    sub.TravelersText(),
	}
}

// NewBusinessData builds the business template data for a record.
func NewBusinessData(rec *model.Record) (BusinessData, error) {
	dump, err := utils.PrettyJSON(rec.Submission)
	if err != nil {
		return BusinessData{}, errors.Wrap(err, "failed to dump submission")
	}

	submitted := rec.Submission.Fields()
	fields := make([]DisplayField, 0, len(submitted))
	for _, f := range submitted {
		fields = append(fields, DisplayField{
			Label: HumanizeKey(f.Key),
			Value: formatValue(f.Value),
		})
	}

	return BusinessData{
		SubmissionID: rec.SubmissionID,
		Fields:       fields,
		Dump:         dump,
	}, nil
}

// HumanizeKey turns a form key into a label: "startDate" -> "Start Date",
// "trip_type" -> "Trip Type".
func HumanizeKey(key string) string {
	var b strings.Builder
	prev := ' '
	for _, r := range key {
		switch {
		case r == '_' || r == '-':
			r = ' '
		case unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			b.WriteRune(' ')
		}
		b.WriteRune(r)
		prev = r
	}

	// A Caser keeps state, so each call gets its own.
	return cases.Title(language.English).String(strings.Join(strings.Fields(b.String()), " "))
}

// formatValue renders a JSON value for people. Objects are flag maps such as
// services and come out as "Flights: Yes, Hotels: No".
func formatValue(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return ""
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	case '{':
		var flags map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &flags); err == nil {
			return formatFlags(flags)
		}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return string(trimmed)
	}
	return compact.String()
}

func formatFlags(flags map[string]json.RawMessage) string {
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		status := "No"
		if string(bytes.TrimSpace(flags[name])) == "true" {
			status = "Yes"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", HumanizeKey(name), status))
	}
	return strings.Join(parts, ", ")
}
