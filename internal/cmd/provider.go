package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shineum/dispatch/internal/config"
	"github.com/shineum/dispatch/internal/dispatch"
	"github.com/shineum/dispatch/internal/email"
	"github.com/shineum/dispatch/internal/provider"
	"github.com/shineum/dispatch/internal/provider/graph"
	"github.com/shineum/dispatch/internal/provider/resend"
	"github.com/shineum/dispatch/internal/provider/sendgrid"
	"github.com/shineum/dispatch/internal/provider/ses"
	"github.com/shineum/dispatch/internal/provider/smtp"
	"github.com/shineum/dispatch/internal/provider/stdout"
	dtls "github.com/shineum/dispatch/internal/tls"
)

// smtpsPort is the submission port that expects TLS from the first byte.
const smtpsPort = 465

// opener defers provider construction until the batch has been validated, so
// no password is asked for a batch that is going to be declined.
func (a *app) opener(cfg *config.DispatchConfig, name string) dispatch.Opener {
	return func(ctx context.Context) (provider.Provider, error) {
		if name == "" {
			name = a.settings.Provider
		}
		return a.openProvider(ctx, cfg, strings.ToLower(name))
	}
}

// openProvider builds the named transport from settings.
func (a *app) openProvider(ctx context.Context, cfg *config.DispatchConfig, name string) (provider.Provider, error) {
	s := a.settings

	switch name {
	case "smtp":
		return a.openSMTP(cfg)

	case "ses":
		if !s.SESConfigured() {
			return nil, &email.ConfigError{Field: "SES_REGION", Reason: "required for the ses provider"}
		}
		slog.Info("using AWS SES provider", "region", s.SES.Region)
		p, err := ses.New(ctx, ses.Config{
			Region:          s.SES.Region,
			AccessKeyID:     s.SES.AccessKeyID,
			SecretAccessKey: s.SES.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return p, nil

	case "sendgrid":
		if s.SendGrid.APIKey == "" {
			return nil, &email.ConfigError{Field: "SENDGRID_API_KEY", Reason: "required for the sendgrid provider"}
		}
		slog.Info("using SendGrid provider", "host", s.SendGrid.Host)
		return sendgrid.New(sendgrid.Config{APIKey: s.SendGrid.APIKey, Host: s.SendGrid.Host}), nil

	case "resend":
		if s.Resend.APIKey == "" {
			return nil, &email.ConfigError{Field: "RESEND_API_KEY", Reason: "required for the resend provider"}
		}
		slog.Info("using Resend provider")
		return resend.New(s.Resend.APIKey), nil

	case "graph":
		if !s.GraphConfigured() {
			return nil, &email.ConfigError{
				Field:  "GRAPH_TENANT_ID, GRAPH_CLIENT_ID, GRAPH_CLIENT_SECRET",
				Reason: "required for the graph provider",
			}
		}
		slog.Info("using Microsoft Graph provider", "tenant", s.Graph.TenantID)
		return graph.New(graph.Config{
			TenantID:     s.Graph.TenantID,
			ClientID:     s.Graph.ClientID,
			ClientSecret: s.Graph.ClientSecret,
		}), nil

	case "stdout":
		slog.Info("using stdout provider")
		return stdout.NewWithWriter(a.out), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// openSMTP logs in as the config's username. The password comes from
// settings or is asked for on the terminal.
func (a *app) openSMTP(cfg *config.DispatchConfig) (provider.Provider, error) {
	s := a.settings

	port := cfg.Port
	if s.SMTP.Port != 0 {
		port = s.SMTP.Port
	}

	password := s.SMTP.Password
	if password == "" {
		var err error
		password, err = a.prompt.Password(fmt.Sprintf("Password for %s: ", cfg.Username))
		if err != nil {
			return nil, err
		}
	}

	tlsCfg, err := dtls.ClientConfig(cfg.Server, s.SMTP.CAFile)
	if err != nil {
		return nil, err
	}

	slog.Info("using SMTP provider", "server", cfg.Server, "port", port)
	return smtp.New(smtp.Config{
		Host:        cfg.Server,
		Port:        port,
		Username:    cfg.Username,
		Password:    password,
		ImplicitTLS: port == smtpsPort,
		TLS:         tlsCfg,
	}), nil
}
