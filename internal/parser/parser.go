// Package parser reads RFC 5322 messages with nested MIME bodies back into the
// email.Message model.
package parser

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"

	"github.com/shineum/dispatch/internal/email"
)

var wordDecoder = new(mime.WordDecoder)

// Parse parses a raw RFC 5322 message into a Message whose Body mirrors the
// MIME structure: multipart nodes keep their children in order, inline assets
// keep their Content-ID. Bcc is read when present, although rendered
// messages never carry it.
func Parse(raw []byte) (*email.Message, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	result := &email.Message{
		MessageID: msg.Header.Get("Message-Id"),
	}

	if subject, err := wordDecoder.DecodeHeader(msg.Header.Get("Subject")); err == nil {
		result.Subject = subject
	} else {
		result.Subject = msg.Header.Get("Subject")
	}
	if date, err := msg.Header.Date(); err == nil {
		result.Date = date
	}

	if from := parseAddressList(msg.Header, "From"); len(from) > 0 {
		result.From = from[0]
	}
	if replyTo := parseAddressList(msg.Header, "Reply-To"); len(replyTo) > 0 {
		result.ReplyTo = &replyTo[0]
	}
	result.To = parseAddressList(msg.Header, "To")
	result.Cc = parseAddressList(msg.Header, "Cc")
	result.Bcc = parseAddressList(msg.Header, "Bcc")

	body, err := parseEntity(textproto.MIMEHeader(msg.Header), msg.Body, true)
	if err != nil {
		return nil, err
	}
	result.Body = body

	return result, nil
}

// parseEntity reads one MIME entity. Top-level entities must decode their own
// transfer encoding; multipart.Reader already strips quoted-printable for
// nested parts.
func parseEntity(header textproto.MIMEHeader, body io.Reader, topLevel bool) (*email.Part, error) {
	contentType := header.Get("Content-Type")
	if contentType == "" {
		contentType = email.TypeText
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		slog.Warn("failed to parse content type, treating as plain text",
			"content_type", contentType,
			"error", err,
		)
		mediaType = email.TypeText
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("%s part missing boundary", mediaType)
		}
		return parseMultipart(mediaType, body, boundary)
	}

	content, err := readContent(header, body, topLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s content: %w", mediaType, err)
	}

	return &email.Part{
		ContentType: mediaType,
		ContentID:   strings.Trim(header.Get("Content-Id"), "<>"),
		Content:     content,
	}, nil
}

// parseMultipart reads every child of a multipart entity in order.
func parseMultipart(mediaType string, body io.Reader, boundary string) (*email.Part, error) {
	node := &email.Part{ContentType: mediaType}
	reader := multipart.NewReader(body, boundary)

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read next part: %w", err)
		}

		child, err := parseEntity(part.Header, part, false)
		if err != nil {
			return nil, err
		}
		node.Parts = append(node.Parts, child)
	}

	return node, nil
}

// readContent reads the content of a leaf entity, handling
// Content-Transfer-Encoding (base64, quoted-printable).
func readContent(header textproto.MIMEHeader, body io.Reader, topLevel bool) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(header.Get("Content-Transfer-Encoding")))

	switch {
	case encoding == "quoted-printable" && topLevel:
		return io.ReadAll(quotedprintable.NewReader(body))
	case encoding == "base64":
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		cleaned := strings.NewReplacer("\r", "", "\n", "").Replace(string(raw))
		decoded, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			// Try with RawStdEncoding for unpadded base64
			decoded, err = base64.RawStdEncoding.DecodeString(cleaned)
			if err != nil {
				return nil, fmt.Errorf("failed to decode base64 content: %w", err)
			}
		}
		return decoded, nil
	default:
		return io.ReadAll(body)
	}
}

// parseAddressList parses an address header into mailboxes. Unparseable
// headers yield no mailboxes and a warning.
func parseAddressList(h mail.Header, key string) []email.Mailbox {
	if h.Get(key) == "" {
		return nil
	}

	addresses, err := h.AddressList(key)
	if err != nil {
		slog.Warn("failed to parse address header",
			"header", key,
			"error", err,
		)
		return nil
	}

	result := make([]email.Mailbox, 0, len(addresses))
	for _, addr := range addresses {
		result = append(result, email.Mailbox{Name: addr.Name, Address: addr.Address})
	}
	return result
}
