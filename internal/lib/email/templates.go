package email

import (
	"embed"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// Template is a string-based enum naming email templates.
//
// Each template has an HTML and a plain-text variant under templates/.
type Template string

const (
	// TemplateInquiryConfirmation is the summary sent to the submitter.
	TemplateInquiryConfirmation Template = "inquiry_confirmation"

	// TemplateInquiryBusiness is the full notification sent to the business.
	TemplateInquiryBusiness Template = "inquiry_business"
)

// Templates are embedded so the binary works the same in a container and
// in a Lambda zip, where there is no templates directory next to it.
//
//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
)

func (t Template) htmlName() string {
	return string(t) + ".html"
}

func (t Template) textName() string {
	return string(t) + ".txt"
}
