// Package generate writes a sample dispatch config, body and data file from
// answers to a few questions.
package generate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/shineum/dispatch/internal/address"
	"github.com/shineum/dispatch/internal/config"
	"github.com/shineum/dispatch/internal/prompt"
)

const (
	sampleBody = "Hi {name}"
	sampleData = "name,email"
)

// Run asks for the sample values and writes the three files, resolving
// relative filenames against dir. Existing files are only replaced after
// confirmation; a declined overwrite skips that file.
func Run(p prompt.Prompter, dir string) error {
	answers, err := ask(p)
	if err != nil {
		return err
	}

	cfg := config.DispatchConfig{
		Username:    answers.email,
		To:          address.Individual("{email}"),
		Subject:     answers.subject,
		Data:        answers.dataPath,
		Body:        answers.bodyPath,
		ContentType: config.ContentHTML,
		Server:      answers.server,
	}
	if answers.name != "" {
		cfg.From = fmt.Sprintf("%s <%s>", answers.name, answers.email)
	}

	configText, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode configuration file: %w", err)
	}

	files := []struct {
		name     string
		path     string
		contents []byte
	}{
		{"configuration file", answers.configPath, configText},
		{"body text", answers.bodyPath, []byte(sampleBody)},
		{"data file", answers.dataPath, []byte(sampleData)},
	}
	for _, f := range files {
		if err := writeFile(p, f.name, config.ResolvePath(dir, f.path), f.contents); err != nil {
			return err
		}
	}
	return nil
}

type answers struct {
	email, name, server, subject   string
	configPath, bodyPath, dataPath string
}

func ask(p prompt.Prompter) (answers, error) {
	var a answers
	questions := []struct {
		question string
		def      string
		dst      *string
	}{
		{"Email address", "", &a.email},
		{"Name", "", &a.name},
		{"Server", config.DefaultServer, &a.server},
		{"Subject", "Hello", &a.subject},
		{"Config Filename", "config.json", &a.configPath},
		{"Email Body Filename", "body.html", &a.bodyPath},
		{"Data Filename", "data.csv", &a.dataPath},
	}

	for _, q := range questions {
		answer, err := p.Ask(q.question, q.def)
		if err != nil {
			return answers{}, err
		}
		*q.dst = answer
	}
	return a, nil
}

func writeFile(p prompt.Prompter, name, path string, contents []byte) error {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		answer, err := p.Ask(fmt.Sprintf("Overwrite %s", path), "y")
		if err != nil {
			return err
		}
		if !prompt.Yes(answer) {
			slog.Info("skipped existing file", "file", path)
			return nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	if err := os.WriteFile(path, contents, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
