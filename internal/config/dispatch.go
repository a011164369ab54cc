package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shineum/dispatch/internal/address"
	"github.com/shineum/dispatch/internal/email"
)

// Defaults applied to a dispatch config when the fields are omitted.
const (
	DefaultServer = "smtp.gmail.com"
	DefaultPort   = 465
)

// Body content types accepted by the content_type field.
const (
	ContentHTML = "html"
	ContentText = "text"
)

// RelatedContentConfig is an inline asset referenced from the HTML body by
// content id. Path may contain placeholders.
type RelatedContentConfig struct {
	ContentID string `json:"content_id" yaml:"content_id" validate:"required"`
	MimeType  string `json:"mime_type" yaml:"mime_type" validate:"required"`
	Path      string `json:"path" yaml:"path" validate:"required"`
}

// DispatchConfig describes one batch. It is read once per run and never mutated
// after Load returns.
type DispatchConfig struct {
	Username string              `json:"username" yaml:"username" validate:"required"`
	From     string              `json:"from,omitempty" yaml:"from,omitempty"`
	ReplyTo  string              `json:"reply_to,omitempty" yaml:"reply_to,omitempty"`
	To       *address.Recipients `json:"to,omitempty" yaml:"to,omitempty"`
	Cc       *address.Recipients `json:"cc,omitempty" yaml:"cc,omitempty"`
	Bcc      *address.Recipients `json:"bcc,omitempty" yaml:"bcc,omitempty"`
	Subject  string              `json:"subject" yaml:"subject" validate:"required"`
	Data     string              `json:"data" yaml:"data" validate:"required"`

	// Body with ContentType is the single-body form; BodyHTML and BodyText
	// may be combined for a multipart/alternative message.
	Body        string `json:"body,omitempty" yaml:"body,omitempty"`
	ContentType string `json:"content_type,omitempty" yaml:"content_type,omitempty" validate:"omitempty,oneof=html text"`
	BodyHTML    string `json:"body_html,omitempty" yaml:"body_html,omitempty"`
	BodyText    string `json:"body_text,omitempty" yaml:"body_text,omitempty"`

	RelatedContent []RelatedContentConfig `json:"related_content,omitempty" yaml:"related_content,omitempty" validate:"dive"`

	Server string `json:"server,omitempty" yaml:"server,omitempty"`
	Port   int    `json:"port,omitempty" yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`

	dir string
}

// Bodies holds the raw body templates read from disk. A nil field means that
// rendering is not configured.
type Bodies struct {
	HTML *string
	Text *string
}

// Empty reports whether neither body is present.
func (b Bodies) Empty() bool {
	return b.HTML == nil && b.Text == nil
}

// Load reads a dispatch config from path. Files ending in .yaml or .yml are
// decoded as YAML, everything else as JSON. Relative paths inside the config
// resolve against the config file's directory.
func Load(path string) (*DispatchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &email.FileError{Path: path, Err: err}
	}

	cfg := &DispatchConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	cfg.dir = filepath.Dir(abs)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills omitted fields.
func (c *DispatchConfig) applyDefaults() {
	if c.Server == "" {
		c.Server = DefaultServer
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Body != "" && c.ContentType == "" {
		c.ContentType = ContentHTML
	}
}

// SetDir sets the directory that relative paths resolve against.
func (c *DispatchConfig) SetDir(dir string) { c.dir = dir }

// Dir returns the directory that relative paths resolve against.
func (c *DispatchConfig) Dir() string { return c.dir }

// ResolvePath resolves p against the config file's directory.
func (c *DispatchConfig) ResolvePath(p string) string {
	return ResolvePath(c.dir, p)
}

// DataPath returns the resolved path of the data file.
func (c *DispatchConfig) DataPath() string {
	return c.ResolvePath(c.Data)
}

// FromTemplate returns the sender template, falling back to the username.
func (c *DispatchConfig) FromTemplate() string {
	if c.From != "" {
		return c.From
	}
	return c.Username
}

// LoadBodies reads the configured body templates. The single-body form maps
// to HTML or text by content type.
func (c *DispatchConfig) LoadBodies() (Bodies, error) {
	var bodies Bodies

	if c.Body != "" {
		content, err := c.readFile(c.Body)
		if err != nil {
			return Bodies{}, err
		}
		switch c.ContentType {
		case ContentText:
			bodies.Text = &content
		case ContentHTML, "":
			bodies.HTML = &content
		default:
			return Bodies{}, &email.ConfigError{Field: "content_type", Reason: "must be one of [html text]"}
		}
		return bodies, nil
	}

	if c.BodyHTML != "" {
		content, err := c.readFile(c.BodyHTML)
		if err != nil {
			return Bodies{}, err
		}
		bodies.HTML = &content
	}
	if c.BodyText != "" {
		content, err := c.readFile(c.BodyText)
		if err != nil {
			return Bodies{}, err
		}
		bodies.Text = &content
	}

	return bodies, nil
}

func (c *DispatchConfig) readFile(p string) (string, error) {
	resolved := c.ResolvePath(p)
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", &email.FileError{Path: resolved, Err: err}
	}
	return string(data), nil
}

// ResolvePath returns p unchanged when it is absolute, otherwise p joined to baseDir.
func ResolvePath(baseDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
