// Package smtp implements a Provider that relays messages through an SMTP
// server over one authenticated connection per run.
package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/shineum/dispatch/internal/email"
)

const dialTimeout = 30 * time.Second

// Config describes the relay and the account used to log in.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// ImplicitTLS dials straight into TLS (port 465 style). Otherwise the
	// connection starts in plain text and must be upgraded with STARTTLS.
	ImplicitTLS bool

	// TLS is used for both modes. When nil, system roots and Host are used.
	TLS *tls.Config
}

// Provider sends messages over a lazily opened SMTP session.
type Provider struct {
	cfg    Config
	conn   net.Conn
	client *smtp.Client
}

// New creates a Provider. No connection is made until the first Send.
func New(cfg Config) *Provider {
	if cfg.TLS == nil {
		cfg.TLS = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	}
	return &Provider{cfg: cfg}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "smtp"
}

// Send relays one message. The envelope sender is the From address and the
// envelope recipients are To, Cc and Bcc; Bcc never reaches the headers.
func (p *Provider) Send(ctx context.Context, msg *email.Message) error {
	if p.client == nil {
		if err := p.connect(ctx); err != nil {
			return err
		}
	}

	stop := context.AfterFunc(ctx, func() {
		p.conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := p.transaction(msg); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if rerr := p.client.Reset(); rerr != nil {
			slog.Debug("smtp reset failed", "error", rerr)
		}
		return err
	}
	return nil
}

func (p *Provider) transaction(msg *email.Message) error {
	if err := p.client.Mail(msg.From.Address); err != nil {
		return fmt.Errorf("MAIL FROM rejected: %w", err)
	}
	for _, rcpt := range msg.Recipients() {
		if err := p.client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO %s rejected: %w", rcpt, err)
		}
	}

	w, err := p.client.Data()
	if err != nil {
		return fmt.Errorf("DATA rejected: %w", err)
	}
	if _, err := msg.WriteTo(w); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("message rejected: %w", err)
	}
	return nil
}

// connect dials the relay, secures the session and logs in.
func (p *Provider) connect(ctx context.Context) error {
	addr := net.JoinHostPort(p.cfg.Host, strconv.Itoa(p.cfg.Port))
	dialer := &net.Dialer{Timeout: dialTimeout}

	var (
		conn net.Conn
		err  error
	)
	if p.cfg.ImplicitTLS {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: p.cfg.TLS}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, p.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start SMTP session with %s: %w", addr, err)
	}

	if !p.cfg.ImplicitTLS {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			client.Close()
			return fmt.Errorf("%s does not support STARTTLS", addr)
		}
		if err := client.StartTLS(p.cfg.TLS); err != nil {
			client.Close()
			return fmt.Errorf("STARTTLS with %s failed: %w", addr, err)
		}
	}

	if p.cfg.Username != "" {
		auth := smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
		if err := client.Auth(auth); err != nil {
			client.Close()
			return fmt.Errorf("login as %s failed: %w", p.cfg.Username, err)
		}
	}

	slog.Debug("smtp session ready",
		"addr", addr,
		"implicit_tls", p.cfg.ImplicitTLS,
	)
	p.conn = conn
	p.client = client
	return nil
}

// Close ends the session with QUIT. Closing an unused provider is a no-op.
func (p *Provider) Close() error {
	if p.client == nil {
		return nil
	}
	client := p.client
	p.client = nil
	if err := client.Quit(); err != nil {
		return errors.Join(err, client.Close())
	}
	return nil
}
