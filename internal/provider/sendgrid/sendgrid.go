// Package sendgrid implements a Provider that sends messages via the SendGrid v3 mail API.
package sendgrid

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/shineum/dispatch/internal/email"
)

const sendEndpoint = "/v3/mail/send"

// ErrNoTo is returned for messages without a To recipient, which the v3 API
// rejects even when Cc or Bcc recipients are present.
var ErrNoTo = errors.New("sendgrid requires at least one to recipient")

// Config holds the configuration for creating a Provider.
type Config struct {
	APIKey string
	// Host defaults to https://api.sendgrid.com.
	Host string
}

// Provider sends messages via the SendGrid API.
type Provider struct {
	client *sendgrid.Client
}

// New creates a Provider for the given API key and host.
func New(cfg Config) *Provider {
	request := sendgrid.GetRequest(cfg.APIKey, sendEndpoint, cfg.Host)
	request.Method = "POST"
	return &Provider{client: &sendgrid.Client{Request: request}}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "sendgrid"
}

// Send delivers a message. Inline assets are attached with an inline
// disposition and their content id.
func (p *Provider) Send(ctx context.Context, msg *email.Message) error {
	if len(msg.To) == 0 {
		return ErrNoTo
	}
	resp, err := p.client.SendWithContext(ctx, buildMail(msg))
	if err != nil {
		return fmt.Errorf("sendgrid api error: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send failed: status=%d body=%s", resp.StatusCode, resp.Body)
	}
	return nil
}

// buildMail maps a message onto the v3 mail model. SendGrid requires the
// plain-text content before the HTML content.
func buildMail(msg *email.Message) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(toEmail(msg.From))
	m.Subject = msg.Subject
	if msg.ReplyTo != nil {
		m.SetReplyTo(toEmail(*msg.ReplyTo))
	}

	recipients := mail.NewPersonalization()
	recipients.AddTos(lo.Map(msg.To, toEmailAt)...)
	recipients.AddCCs(lo.Map(msg.Cc, toEmailAt)...)
	recipients.AddBCCs(lo.Map(msg.Bcc, toEmailAt)...)
	m.AddPersonalizations(recipients)

	if text, ok := msg.TextBody(); ok {
		m.AddContent(mail.NewContent("text/plain", text))
	}
	if html, ok := msg.HTMLBody(); ok {
		m.AddContent(mail.NewContent("text/html", html))
	}

	for _, rc := range msg.InlineContent() {
		a := mail.NewAttachment().
			SetContent(base64.StdEncoding.EncodeToString(rc.Body)).
			SetType(rc.MimeType).
			SetFilename(rc.ContentID).
			SetDisposition("inline").
			SetContentID(rc.ContentID)
		m.AddAttachment(a)
	}

	return m
}

func toEmail(b email.Mailbox) *mail.Email {
	return mail.NewEmail(b.Name, b.Address)
}

func toEmailAt(b email.Mailbox, _ int) *mail.Email {
	return toEmail(b)
}
