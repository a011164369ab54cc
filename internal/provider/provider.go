// Package provider defines the interface for mail transports.
package provider

import (
	"context"

	"github.com/shineum/dispatch/internal/email"
)

// Provider is the interface that mail transports must implement.
// Each provider delivers one composed message per call to the target
// service (e.g., an SMTP relay, SES, SendGrid, etc.).
type Provider interface {
	// Send delivers a message through this provider.
	// It returns an error if the delivery fails.
	Send(ctx context.Context, msg *email.Message) error

	// Name returns the human-readable name of this provider.
	Name() string
}
