// Package compose builds one transport-ready message per data row.
package compose

import (
	"os"
	"time"

	"github.com/shineum/dispatch/internal/address"
	"github.com/shineum/dispatch/internal/config"
	"github.com/shineum/dispatch/internal/email"
	"github.com/shineum/dispatch/internal/subst"
)

// Compose builds the message for row. Bodies are the raw templates loaded
// from the config; at least one must be present.
func Compose(cfg *config.DispatchConfig, bodies config.Bodies, row subst.Row) (*email.Message, error) {
	if bodies.Empty() {
		return nil, email.ErrNoBody
	}

	msg := &email.Message{
		Subject: subst.Apply(cfg.Subject, row),
	}

	from, err := address.ResolveOne(cfg.FromTemplate(), row)
	if err != nil {
		return nil, err
	}
	msg.From = from

	if cfg.ReplyTo != "" {
		replyTo, err := address.ResolveOne(cfg.ReplyTo, row)
		if err != nil {
			return nil, err
		}
		msg.ReplyTo = &replyTo
	}

	if msg.To, err = address.Resolve(cfg.To, row); err != nil {
		return nil, err
	}
	if msg.Cc, err = address.Resolve(cfg.Cc, row); err != nil {
		return nil, err
	}
	if msg.Bcc, err = address.Resolve(cfg.Bcc, row); err != nil {
		return nil, err
	}

	var html, text *string
	if bodies.HTML != nil {
		s := subst.Apply(*bodies.HTML, row)
		html = &s
	}
	if bodies.Text != nil {
		s := subst.Apply(*bodies.Text, row)
		text = &s
	}

	related, err := RelatedContent(cfg, row)
	if err != nil {
		return nil, err
	}

	msg.Body = assemble(html, text, related)
	msg.Date = time.Now()
	msg.MessageID = email.NewMessageID(msg.From)

	return msg, nil
}

// RelatedContent reads every configured inline asset for row. Paths are
// substituted first and resolve against the config file's directory.
func RelatedContent(cfg *config.DispatchConfig, row subst.Row) ([]email.RelatedContent, error) {
	if len(cfg.RelatedContent) == 0 {
		return nil, nil
	}

	out := make([]email.RelatedContent, 0, len(cfg.RelatedContent))
	for _, rc := range cfg.RelatedContent {
		path := cfg.ResolvePath(subst.Apply(rc.Path, row))
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, &email.FileError{Path: path, ContentID: rc.ContentID, Err: err}
		}
		out = append(out, email.RelatedContent{
			ContentID: rc.ContentID,
			MimeType:  rc.MimeType,
			Body:      body,
		})
	}
	return out, nil
}

// assemble picks the body structure. Related content only ever attaches to
// the HTML branch. Callers guarantee at least one body.
func assemble(html, text *string, related []email.RelatedContent) *email.Part {
	var htmlPart *email.Part
	if html != nil {
		htmlPart = email.NewHTML(*html)
		if len(related) > 0 {
			htmlPart = email.NewRelated(htmlPart, related...)
		}
	}

	switch {
	case htmlPart != nil && text != nil:
		return email.NewAlternative(email.NewText(*text), htmlPart)
	case htmlPart != nil:
		return htmlPart
	default:
		return email.NewText(*text)
	}
}
