// Package email defines the transport-ready message model used throughout dispatch.
package email

import (
	"time"

	"github.com/samber/lo"
)

// Message is one composed email: resolved mailboxes, the substituted subject
// and a body tree. Messages are built per data row and discarded after sending.
type Message struct {
	From    Mailbox
	ReplyTo *Mailbox
	To      []Mailbox
	Cc      []Mailbox
	Bcc     []Mailbox
	Subject string
	Body    *Part

	// Date and MessageID are stamped at compose time so a previewed message
	// and the sent one carry the same headers. Rendering fills them in when zero.
	Date      time.Time
	MessageID string
}

// RelatedContent is an inline asset referenced from the HTML body by content id.
type RelatedContent struct {
	ContentID string
	MimeType  string
	Body      []byte
}

// Recipients returns the envelope recipients (To, then Cc, then Bcc) as bare addresses.
func (m *Message) Recipients() []string {
	all := make([]Mailbox, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	all = append(all, m.To...)
	all = append(all, m.Cc...)
	all = append(all, m.Bcc...)
	return Addresses(all)
}

// TextBody returns the plain-text leaf of the body tree, if any.
func (m *Message) TextBody() (string, bool) {
	if p := m.Body.find(func(p *Part) bool { return p.ContentType == TypeText }); p != nil {
		return string(p.Content), true
	}
	return "", false
}

// HTMLBody returns the HTML leaf of the body tree, if any.
func (m *Message) HTMLBody() (string, bool) {
	if p := m.Body.find(func(p *Part) bool { return p.ContentType == TypeHTML }); p != nil {
		return string(p.Content), true
	}
	return "", false
}

// InlineContent returns every inline asset in the body tree in document order.
func (m *Message) InlineContent() []RelatedContent {
	var out []RelatedContent
	m.Body.walk(func(p *Part) {
		if p.ContentID != "" {
			out = append(out, RelatedContent{
				ContentID: p.ContentID,
				MimeType:  p.ContentType,
				Body:      p.Content,
			})
		}
	})
	return out
}

// Addresses maps mailboxes to their bare addresses.
func Addresses(boxes []Mailbox) []string {
	return lo.Map(boxes, func(b Mailbox, _ int) string { return b.Address })
}

// Strings maps mailboxes to their display form.
func Strings(boxes []Mailbox) []string {
	return lo.Map(boxes, func(b Mailbox, _ int) string { return b.String() })
}
