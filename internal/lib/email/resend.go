package email

import (
	"context"

	"github.com/pkg/errors"
	"github.com/resend/resend-go/v2"
)

// ResendAPI is the part of the Resend emails service the mailer uses.
// resend.NewClient(key).Emails satisfies it.
type ResendAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendMailer sends mail through the Resend API.
type ResendMailer struct {
	api ResendAPI
}

// NewResendMailer creates a mailer for the given API key.
func NewResendMailer(apiKey string) *ResendMailer {
	return NewResendMailerWithAPI(resend.NewClient(apiKey).Emails)
}

// NewResendMailerWithAPI wraps an existing emails service.
func NewResendMailerWithAPI(api ResendAPI) *ResendMailer {
	return &ResendMailer{api: api}
}

// Send implements Mailer.
func (m *ResendMailer) Send(ctx context.Context, msg *Message) error {
	params := &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}

	if _, err := m.api.SendWithContext(ctx, params); err != nil {
		return errors.Wrap(err, "resend send email")
	}
	return nil
}
