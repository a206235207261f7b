// Package email sends the two inquiry emails.
//
// Bodies are rendered from embedded HTML and plain-text templates and handed
// to a Mailer. Two Mailers exist: Amazon SES (v2 API) and Resend. Which one
// runs is chosen by configuration.
package email

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/deppfellow/travelease-inquiry/internal/config"
	"github.com/deppfellow/travelease-inquiry/internal/lib/metrics"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Message is one outgoing email with both body variants.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Mailer hands a message to an email provider.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// Client renders templates and sends them through a Mailer.
type Client struct {
	// mailer is the provider transport (SES or Resend).
	mailer Mailer

	// from is the sender identity, e.g. "TravelEase <hello@travelease.example>".
	from string

	// businessAddress receives the business notification.
	businessAddress string

	logger  *zerolog.Logger
	metrics *metrics.Metrics
}

// NewClient creates an email Client.
//
// The sender address must be verified with the provider, otherwise every
// send fails.
func NewClient(cfg config.EmailConfig, mailer Mailer, logger *zerolog.Logger, m *metrics.Metrics) *Client {
	from := cfg.SourceAddress
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.SourceAddress)
	}

	return &Client{
		mailer:          mailer,
		from:            from,
		businessAddress: cfg.BusinessAddress,
		logger:          logger,
		metrics:         m,
	}
}

// SendEmail renders both variants of a template and sends them.
//
// Inputs:
//   - to: recipient email address
//   - subject: email subject line
//   - templateName: which template to use (e.g. TemplateInquiryConfirmation)
//   - data: value available inside the template as "."
func (c *Client) SendEmail(ctx context.Context, to, subject string, templateName Template, data any) error {
	html, text, err := render(templateName, data)
	if err != nil {
		return err
	}

	msg := &Message{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		Text:    text,
		HTML:    html,
	}

	start := time.Now()
	err = c.mailer.Send(ctx, msg)
	c.metrics.EmailSent(string(templateName), time.Since(start), err)
	if err != nil {
		return errors.Wrapf(err, "failed to send %s email", templateName)
	}

	c.logger.Debug().
		Str("template", string(templateName)).
		Str("to", to).
		Msg("email sent")

	return nil
}

// render executes the HTML and text variants of a template.
func render(templateName Template, data any) (string, string, error) {
	var html bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, templateName.htmlName(), data); err != nil {
		return "", "", errors.Wrapf(err, "failed to execute email template %s", templateName.htmlName())
	}

	var text bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, templateName.textName(), data); err != nil {
		return "", "", errors.Wrapf(err, "failed to execute email template %s", templateName.textName())
	}

	return html.String(), text.String(), nil
}
