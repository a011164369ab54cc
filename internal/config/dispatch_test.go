package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shineum/dispatch/internal/email"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{
		"username": "me@example.com",
		"from": "Me <me@example.com>",
		"to": "{email}",
		"cc": ["a@example.com", "b@example.com"],
		"subject": "Hello {name}",
		"data": "data.csv",
		"body": "body.html",
		"related_content": [{"content_id": "logo", "mime_type": "image/png", "path": "logo.png"}]
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server != DefaultServer {
		t.Errorf("Server: got %q, want %q", cfg.Server, DefaultServer)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port: got %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.ContentType != ContentHTML {
		t.Errorf("ContentType: got %q, want %q", cfg.ContentType, ContentHTML)
	}
	if cfg.To.IsMultiple() || cfg.To.Templates()[0] != "{email}" {
		t.Errorf("To: got %v", cfg.To.Templates())
	}
	if !cfg.Cc.IsMultiple() || len(cfg.Cc.Templates()) != 2 {
		t.Errorf("Cc: got %v", cfg.Cc.Templates())
	}
	if cfg.Bcc != nil {
		t.Errorf("Bcc: got %v, want nil", cfg.Bcc.Templates())
	}
	if got := cfg.DataPath(); got != filepath.Join(dir, "data.csv") {
		t.Errorf("DataPath: got %q, want %q", got, filepath.Join(dir, "data.csv"))
	}
	if len(cfg.RelatedContent) != 1 || cfg.RelatedContent[0].ContentID != "logo" {
		t.Errorf("RelatedContent: got %+v", cfg.RelatedContent)
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
username: me@example.com
to:
  - "{email}"
subject: Hi
data: data.csv
body_html: body.html
body_text: body.txt
server: smtp.example.com
port: 587
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg.To.IsMultiple() {
		t.Error("To: expected list form")
	}
	if cfg.Server != "smtp.example.com" {
		t.Errorf("Server: got %q, want %q", cfg.Server, "smtp.example.com")
	}
	if cfg.Port != 587 {
		t.Errorf("Port: got %d, want %d", cfg.Port, 587)
	}
	if cfg.ContentType != "" {
		t.Errorf("ContentType: got %q, want empty without body", cfg.ContentType)
	}
	if cfg.FromTemplate() != "me@example.com" {
		t.Errorf("FromTemplate: got %q, want username", cfg.FromTemplate())
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	var fileErr *email.FileError
	if !errors.As(err, &fileErr) {
		t.Fatalf("expected *email.FileError, got %v", err)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "config.json", `{"username": `)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() DispatchConfig {
		return DispatchConfig{
			Username: "me@example.com",
			Subject:  "Hi",
			Data:     "data.csv",
			Body:     "body.html",
		}
	}

	tests := []struct {
		name      string
		mutate    func(*DispatchConfig)
		wantField string
		wantText  string
	}{
		{
			name:      "missing username",
			mutate:    func(c *DispatchConfig) { c.Username = "" },
			wantField: "username",
			wantText:  "invalid configuration: username: missing from config",
		},
		{
			name:      "missing subject",
			mutate:    func(c *DispatchConfig) { c.Subject = "" },
			wantField: "subject",
		},
		{
			name:      "invalid content type",
			mutate:    func(c *DispatchConfig) { c.ContentType = "markdown" },
			wantField: "content_type",
			wantText:  "invalid configuration: content_type: must be one of [html text]",
		},
		{
			name:      "invalid port",
			mutate:    func(c *DispatchConfig) { c.Port = 70000 },
			wantField: "port",
		},
		{
			name: "related content without id",
			mutate: func(c *DispatchConfig) {
				c.RelatedContent = []RelatedContentConfig{{MimeType: "image/png", Path: "a.png"}}
			},
			wantField: "related_content[0].content_id",
		},
		{
			name:      "body combined with body_html",
			mutate:    func(c *DispatchConfig) { c.BodyHTML = "other.html" },
			wantField: "body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			var cfgErr *email.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *email.ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field: got %q, want %q", cfgErr.Field, tt.wantField)
			}
			if tt.wantText != "" && cfgErr.Error() != tt.wantText {
				t.Errorf("Error(): got %q, want %q", cfgErr.Error(), tt.wantText)
			}
		})
	}

	cfg := valid()
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config: unexpected error: %v", err)
	}
}

func TestLoadBodies(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "body.html", "<p>Hi {name}</p>")
	writeFile(t, dir, "body.txt", "Hi {name}")

	tests := []struct {
		name     string
		cfg      DispatchConfig
		wantHTML string
		wantText string
	}{
		{name: "single html", cfg: DispatchConfig{Body: "body.html", ContentType: ContentHTML}, wantHTML: "<p>Hi {name}</p>"},
		{name: "single text", cfg: DispatchConfig{Body: "body.txt", ContentType: ContentText}, wantText: "Hi {name}"},
		{name: "both", cfg: DispatchConfig{BodyHTML: "body.html", BodyText: "body.txt"}, wantHTML: "<p>Hi {name}</p>", wantText: "Hi {name}"},
		{name: "text only", cfg: DispatchConfig{BodyText: "body.txt"}, wantText: "Hi {name}"},
		{name: "absolute path", cfg: DispatchConfig{BodyHTML: filepath.Join(dir, "body.html")}, wantHTML: "<p>Hi {name}</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := tt.cfg
			cfg.SetDir(dir)

			bodies, err := cfg.LoadBodies()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := deref(bodies.HTML); got != tt.wantHTML {
				t.Errorf("HTML: got %q, want %q", got, tt.wantHTML)
			}
			if got := deref(bodies.Text); got != tt.wantText {
				t.Errorf("Text: got %q, want %q", got, tt.wantText)
			}
		})
	}
}

func TestLoadBodiesNone(t *testing.T) {
	t.Parallel()

	cfg := DispatchConfig{}
	bodies, err := cfg.LoadBodies()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bodies.Empty() {
		t.Error("expected no bodies")
	}
}

func TestLoadBodiesMissingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := DispatchConfig{BodyHTML: "missing.html"}
	cfg.SetDir(dir)

	_, err := cfg.LoadBodies()
	var fileErr *email.FileError
	if !errors.As(err, &fileErr) {
		t.Fatalf("expected *email.FileError, got %v", err)
	}
	if !strings.HasSuffix(fileErr.Path, "missing.html") {
		t.Errorf("Path: got %q", fileErr.Path)
	}
}

func TestResolvePath(t *testing.T) {
	t.Parallel()

	base := filepath.Join(string(filepath.Separator), "srv", "batch")
	abs := filepath.Join(string(filepath.Separator), "etc", "body.html")

	if got := ResolvePath(base, "body.html"); got != filepath.Join(base, "body.html") {
		t.Errorf("relative: got %q", got)
	}
	if got := ResolvePath(base, "assets/logo.png"); got != filepath.Join(base, "assets", "logo.png") {
		t.Errorf("nested: got %q", got)
	}
	if got := ResolvePath(base, abs); got != abs {
		t.Errorf("absolute: got %q, want %q", got, abs)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
