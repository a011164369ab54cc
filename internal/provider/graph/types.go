package graph

import (
	"encoding/base64"

	"github.com/samber/lo"

	"github.com/shineum/dispatch/internal/email"
)

type sendMailRequest struct {
	Message         graphMessage `json:"message"`
	SaveToSentItems bool         `json:"saveToSentItems"`
}

type graphMessage struct {
	Subject       string       `json:"subject"`
	Body          itemBody     `json:"body"`
	From          *recipient   `json:"from,omitempty"`
	ReplyTo       []recipient  `json:"replyTo,omitempty"`
	ToRecipients  []recipient  `json:"toRecipients"`
	CcRecipients  []recipient  `json:"ccRecipients,omitempty"`
	BccRecipients []recipient  `json:"bccRecipients,omitempty"`
	Attachments   []attachment `json:"attachments,omitempty"`
}

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type emailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// attachment is a microsoft.graph.fileAttachment. Inline assets set IsInline
// and ContentID so cid: references in the HTML body resolve.
type attachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
	ContentID    string `json:"contentId,omitempty"`
	IsInline     bool   `json:"isInline"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// buildRequest maps a message onto a sendMail body. Graph carries one body per
// message, so HTML wins over text when both are present.
func buildRequest(msg *email.Message) *sendMailRequest {
	body := itemBody{ContentType: "text"}
	if text, ok := msg.TextBody(); ok {
		body.Content = text
	}
	if html, ok := msg.HTMLBody(); ok {
		body = itemBody{ContentType: "html", Content: html}
	}

	out := graphMessage{
		Subject:       msg.Subject,
		Body:          body,
		From:          lo.ToPtr(toRecipient(msg.From, 0)),
		ToRecipients:  lo.Map(msg.To, toRecipient),
		CcRecipients:  lo.Map(msg.Cc, toRecipient),
		BccRecipients: lo.Map(msg.Bcc, toRecipient),
	}
	if msg.ReplyTo != nil {
		out.ReplyTo = []recipient{toRecipient(*msg.ReplyTo, 0)}
	}
	if body.ContentType == "html" {
		for _, rc := range msg.InlineContent() {
			out.Attachments = append(out.Attachments, attachment{
				ODataType:    "#microsoft.graph.fileAttachment",
				Name:         rc.ContentID,
				ContentType:  rc.MimeType,
				ContentBytes: base64.StdEncoding.EncodeToString(rc.Body),
				ContentID:    rc.ContentID,
				IsInline:     true,
			})
		}
	}

	return &sendMailRequest{Message: out, SaveToSentItems: true}
}

func toRecipient(b email.Mailbox, _ int) recipient {
	return recipient{EmailAddress: emailAddress{Name: b.Name, Address: b.Address}}
}
