package stdout

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shineum/dispatch/internal/email"
)

func boxes(addrs ...string) []email.Mailbox {
	out := make([]email.Mailbox, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, email.Mailbox{Address: a})
	}
	return out
}

func TestSend_BasicMessage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Message{
		From:    email.Mailbox{Name: "Sender", Address: "sender@example.com"},
		To:      boxes("alice@example.com", "bob@example.com"),
		Subject: "Monthly Report",
		Body:    email.NewText("Please find the report below."),
	}

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "From: Sender <sender@example.com>") {
		t.Error("output missing From header")
	}
	if !strings.Contains(output, "To: alice@example.com, bob@example.com") {
		t.Error("output missing To header")
	}
	if !strings.Contains(output, "Subject: Monthly Report") {
		t.Error("output missing Subject header")
	}
	if !strings.Contains(output, "Please find the report below.") {
		t.Error("output missing body text")
	}
	for _, absent := range []string{"Cc:", "Bcc:", "Reply-To:", "Inline:"} {
		if strings.Contains(output, absent) {
			t.Errorf("output should not contain %q", absent)
		}
	}
	if !strings.HasPrefix(output, "========================================\n") {
		t.Error("output should start with separator line")
	}
	if !strings.HasSuffix(output, "========================================\n") {
		t.Error("output should end with separator line")
	}
}

func TestSend_CcBccReplyTo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Message{
		From:    email.Mailbox{Address: "sender@example.com"},
		ReplyTo: &email.Mailbox{Address: "reply@example.com"},
		To:      boxes("alice@example.com"),
		Cc:      boxes("carol@example.com"),
		Bcc:     boxes("audit@example.com"),
		Subject: "With copies",
		Body:    email.NewText("Hello"),
	}

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"Reply-To: reply@example.com", "Cc: carol@example.com", "Bcc: audit@example.com"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestSend_InlineContent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Message{
		From:    email.Mailbox{Address: "sender@example.com"},
		To:      boxes("alice@example.com"),
		Subject: "Newsletter",
		Body: email.NewRelated(email.NewHTML(`<img src="cid:hero">`),
			email.RelatedContent{ContentID: "hero", MimeType: "image/jpeg", Body: make([]byte, 1258291)},
			email.RelatedContent{ContentID: "logo", MimeType: "image/png", Body: make([]byte, 46080)},
		),
	}

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Inline: cid:hero image/jpeg (1.2 MB), cid:logo image/png (45.0 KB)") {
		t.Errorf("output missing inline summary:\n%s", output)
	}
}

func TestSend_HTMLBodyFallback(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Message{
		From:    email.Mailbox{Address: "sender@example.com"},
		To:      boxes("recipient@example.com"),
		Subject: "HTML Only",
		Body:    email.NewHTML("<p>HTML content</p>"),
	}

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), "<p>HTML content</p>") {
		t.Error("output should display HTML body when there is no text body")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestSend_WriteError(t *testing.T) {
	t.Parallel()

	p := NewWithWriter(failingWriter{})
	msg := &email.Message{Body: email.NewText("x")}
	if err := p.Send(context.Background(), msg); err == nil {
		t.Error("expected write error")
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	p := New()
	if p.Name() != "stdout" {
		t.Errorf("Name: got %q, want %q", p.Name(), "stdout")
	}
}

func TestFormatSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		bytes int
		want  string
	}{
		{name: "zero bytes", bytes: 0, want: "0 B"},
		{name: "small bytes", bytes: 512, want: "512 B"},
		{name: "kilobytes", bytes: 46080, want: "45.0 KB"},
		{name: "megabytes", bytes: 1258291, want: "1.2 MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := formatSize(tt.bytes)
			if got != tt.want {
				t.Errorf("formatSize(%d): got %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}
