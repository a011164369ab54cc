// Package config loads the per-batch dispatch configuration and the
// environment-first runtime settings that select and configure a transport.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings holds runtime settings that do not belong in a dispatch config:
// the transport to use and its credentials.
type Settings struct {
	Provider string           `yaml:"provider"`
	SMTP     SMTPSettings     `yaml:"smtp"`
	SES      SESSettings      `yaml:"ses"`
	SendGrid SendGridSettings `yaml:"sendgrid"`
	Resend   ResendSettings   `yaml:"resend"`
	Graph    GraphSettings    `yaml:"graph"`
	Logging  LoggingSettings  `yaml:"logging"`
}

// SMTPSettings overrides parts of the SMTP relay connection.
type SMTPSettings struct {
	// Port overrides the dispatch config port when non-zero.
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	CAFile   string `yaml:"ca_file"`
}

// SESSettings holds AWS SES configuration.
type SESSettings struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// SendGridSettings holds SendGrid API configuration.
type SendGridSettings struct {
	APIKey string `yaml:"api_key"`
	Host   string `yaml:"host"`
}

// ResendSettings holds Resend API configuration.
type ResendSettings struct {
	APIKey string `yaml:"api_key"`
}

// GraphSettings holds Microsoft Graph API configuration.
type GraphSettings struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// LoggingSettings holds logging configuration.
type LoggingSettings struct {
	Level string `yaml:"level"`
}

// LoadSettings loads settings from environment variables with sensible defaults.
// Environment variables always take precedence.
func LoadSettings() (*Settings, error) {
	s := &Settings{}
	s.applyDefaults()
	s.applyEnvVars()
	return s, nil
}

// LoadSettingsFromFile loads settings from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadSettingsFromFile(path string) (*Settings, error) {
	s := &Settings{}
	s.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	s.Provider = strings.ToLower(s.Provider)
	s.applyEnvVars()

	return s, nil
}

// GraphConfigured returns true if all three Graph API credentials are set.
func (s *Settings) GraphConfigured() bool {
	return s.Graph.TenantID != "" &&
		s.Graph.ClientID != "" &&
		s.Graph.ClientSecret != ""
}

// SESConfigured returns true if an SES region is set. Credentials may come
// from the default AWS chain.
func (s *Settings) SESConfigured() bool {
	return s.SES.Region != ""
}

func (s *Settings) applyDefaults() {
	s.Provider = "smtp"
	s.SendGrid.Host = "https://api.sendgrid.com"
	s.Logging.Level = "warn"
}

// applyEnvVars overrides settings with environment variable values.
// Only non-empty environment variables override existing values.
func (s *Settings) applyEnvVars() {
	if v := os.Getenv("DISPATCH_PROVIDER"); v != "" {
		s.Provider = strings.ToLower(v)
	}

	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			s.SMTP.Port = port
		}
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		s.SMTP.Password = v
	}
	if v := os.Getenv("SMTP_CA_FILE"); v != "" {
		s.SMTP.CAFile = v
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		s.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		s.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		s.SES.SecretAccessKey = v
	}

	if v := os.Getenv("SENDGRID_API_KEY"); v != "" {
		s.SendGrid.APIKey = v
	}
	if v := os.Getenv("SENDGRID_API_HOST"); v != "" {
		s.SendGrid.Host = v
	}

	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		s.Resend.APIKey = v
	}

	if v := os.Getenv("GRAPH_TENANT_ID"); v != "" {
		s.Graph.TenantID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_ID"); v != "" {
		s.Graph.ClientID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_SECRET"); v != "" {
		s.Graph.ClientSecret = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		s.Logging.Level = strings.ToLower(v)
	}
}
