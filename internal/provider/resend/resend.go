// Package resend implements a Provider that sends messages via the Resend API.
package resend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v3"

	"github.com/shineum/dispatch/internal/email"
)

// EmailsAPI is the subset of the Resend emails service used by the provider.
type EmailsAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Provider sends messages via Resend.
type Provider struct {
	emails EmailsAPI
}

// New creates a Provider for the given API key.
func New(apiKey string) *Provider {
	return &Provider{emails: resend.NewClient(apiKey).Emails}
}

// NewWithClient creates a Provider with a custom emails service, used for testing.
func NewWithClient(emails EmailsAPI) *Provider {
	return &Provider{emails: emails}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "resend"
}

// Send delivers a message. Inline assets become attachments addressed by
// content id.
func (p *Provider) Send(ctx context.Context, msg *email.Message) error {
	resp, err := p.emails.SendWithContext(ctx, buildRequest(msg))
	if err != nil {
		return fmt.Errorf("resend: failed to send email: %w", err)
	}
	if resp != nil {
		slog.Debug("resend accepted message", "id", resp.Id)
	}
	return nil
}

func buildRequest(msg *email.Message) *resend.SendEmailRequest {
	req := &resend.SendEmailRequest{
		From:    msg.From.String(),
		To:      email.Strings(msg.To),
		Cc:      email.Strings(msg.Cc),
		Bcc:     email.Strings(msg.Bcc),
		Subject: msg.Subject,
	}
	if msg.ReplyTo != nil {
		req.ReplyTo = msg.ReplyTo.String()
	}
	if html, ok := msg.HTMLBody(); ok {
		req.Html = html
	}
	if text, ok := msg.TextBody(); ok {
		req.Text = text
	}

	for _, rc := range msg.InlineContent() {
		req.Attachments = append(req.Attachments, &resend.Attachment{
			Filename:    rc.ContentID,
			Content:     rc.Body,
			ContentType: rc.MimeType,
			ContentId:   rc.ContentID,
		})
	}
	return req
}
