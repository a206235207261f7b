package email

import (
	"encoding/json"
	"time"

	"github.com/deppfellow/travelease-inquiry/internal/model"
)

// previewSubmission is a realistic form payload for local preview/testing.
const previewSubmission = `{
	"name": "Ana Souza",
	"email": "ana@example.com",
	"phone": "5511987654321",
	"destination": "Lisbon, Portugal",
	"startDate": "2025-06-01",
	"endDate": "2025-06-10",
	"travelers": 2,
	"tripType": "leisure",
	"budget": "mid-range",
	"services": {"flights": true, "hotels": true, "tours": false},
	"requests": "Window seats & a quiet room, please <3"
}`

// PreviewRecord returns a sample record for rendering the templates without
// a real submission.
func PreviewRecord() *model.Record {
	var sub model.Submission
	if err := json.Unmarshal([]byte(previewSubmission), &sub); err != nil {
		panic(err)
	}

	now := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	return model.NewRecord(&sub, "7b0c6f2e-3d6a-4c1e-9a52-0f1d8e2b4c11", now)
}

// Preview renders both variants of a template with sample data.
func Preview(templateName Template) (html, text string, err error) {
	rec := PreviewRecord()

	var data any
	switch templateName {
	case TemplateInquiryBusiness:
		data, err = NewBusinessData(rec)
		if err != nil {
			return "", "", err
		}
	default:
		data = NewConfirmationData(rec)
	}

	return render(templateName, data)
}
