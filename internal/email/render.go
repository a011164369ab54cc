package email

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

// entityHeaderOrder is the order in which body entity headers are written at
// the top level of a message.
var entityHeaderOrder = []string{
	"Content-Type",
	"Content-Transfer-Encoding",
	"Content-ID",
	"Content-Disposition",
}

// NewMessageID returns a unique Message-ID value in the sender's domain.
func NewMessageID(from Mailbox) string {
	domain := "dispatch.local"
	if at := strings.LastIndex(from.Address, "@"); at >= 0 && at < len(from.Address)-1 {
		domain = from.Address[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

// WriteTo renders the message in RFC 5322 format with a MIME body tree.
// Bcc recipients are part of the envelope only and never written as a header.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	if m.Body == nil {
		return 0, ErrNoBody
	}

	cw := &countingWriter{w: w}

	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}
	messageID := m.MessageID
	if messageID == "" {
		messageID = NewMessageID(m.From)
	}

	fmt.Fprintf(cw, "Date: %s\r\n", date.Format(time.RFC1123Z))
	fmt.Fprintf(cw, "From: %s\r\n", m.From)
	if m.ReplyTo != nil {
		fmt.Fprintf(cw, "Reply-To: %s\r\n", m.ReplyTo)
	}
	if len(m.To) > 0 {
		fmt.Fprintf(cw, "To: %s\r\n", strings.Join(Strings(m.To), ", "))
	}
	if len(m.Cc) > 0 {
		fmt.Fprintf(cw, "Cc: %s\r\n", strings.Join(Strings(m.Cc), ", "))
	}
	fmt.Fprintf(cw, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(cw, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(cw, "MIME-Version: 1.0\r\n")

	var boundary string
	if m.Body.IsMultipart() {
		boundary = newBoundary()
	}
	header := partHeader(m.Body, boundary)
	for _, key := range entityHeaderOrder {
		if v := header.Get(key); v != "" {
			fmt.Fprintf(cw, "%s: %s\r\n", key, v)
		}
	}
	io.WriteString(cw, "\r\n")
	if cw.err != nil {
		return cw.n, cw.err
	}

	if err := writeContent(cw, m.Body, boundary); err != nil {
		return cw.n, fmt.Errorf("failed to write message body: %w", err)
	}
	return cw.n, cw.err
}

// Bytes renders the message into a byte slice.
func (m *Message) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// String renders the message for previews. Rendering errors are returned as text.
func (m *Message) String() string {
	raw, err := m.Bytes()
	if err != nil {
		return fmt.Sprintf("<unrenderable message: %v>", err)
	}
	return string(raw)
}

// partHeader builds the entity headers for p. boundary is only used for multipart nodes.
func partHeader(p *Part, boundary string) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	switch {
	case p.IsMultipart():
		h.Set("Content-Type", mime.FormatMediaType(p.ContentType, map[string]string{"boundary": boundary}))
	case p.ContentID != "":
		h.Set("Content-Type", p.ContentType)
		h.Set("Content-Transfer-Encoding", "base64")
		h.Set("Content-ID", "<"+p.ContentID+">")
		h.Set("Content-Disposition", "inline")
	default:
		h.Set("Content-Type", mime.FormatMediaType(p.ContentType, map[string]string{"charset": "utf-8"}))
		h.Set("Content-Transfer-Encoding", "quoted-printable")
	}
	return h
}

// writeContent writes the encoded content of p, recursing into multipart children.
func writeContent(w io.Writer, p *Part, boundary string) error {
	switch {
	case p.IsMultipart():
		mw := multipart.NewWriter(w)
		if err := mw.SetBoundary(boundary); err != nil {
			return err
		}
		for _, child := range p.Parts {
			var childBoundary string
			if child.IsMultipart() {
				childBoundary = newBoundary()
			}
			pw, err := mw.CreatePart(partHeader(child, childBoundary))
			if err != nil {
				return fmt.Errorf("failed to create %s part: %w", child.ContentType, err)
			}
			if err := writeContent(pw, child, childBoundary); err != nil {
				return err
			}
		}
		return mw.Close()

	case p.ContentID != "":
		_, err := io.WriteString(w, encodeBase64WithLineBreaks(p.Content))
		return err

	default:
		qw := quotedprintable.NewWriter(w)
		if _, err := qw.Write(p.Content); err != nil {
			return err
		}
		return qw.Close()
	}
}

// newBoundary returns a random multipart boundary.
func newBoundary() string {
	return multipart.NewWriter(io.Discard).Boundary()
}

// encodeBase64WithLineBreaks encodes bytes to base64 with 76-character line breaks per RFC 2045.
func encodeBase64WithLineBreaks(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var lines []string
	for i := 0; i < len(encoded); i += 76 {
		end := min(i+76, len(encoded))
		lines = append(lines, encoded[i:end])
	}
	return strings.Join(lines, "\r\n")
}

// countingWriter tracks bytes written and keeps the first write error.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
