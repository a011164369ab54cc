// Package cmd provides the CLI commands for dispatch.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shineum/dispatch/internal/config"
	"github.com/shineum/dispatch/internal/prompt"
)

const defaultEnvFile = ".env"

// app carries the streams and global flags shared by every subcommand.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	debug        bool
	envFile      string
	settingsFile string

	settings *config.Settings
	prompt   *prompt.Terminal
}

// Execute runs the root command against the process streams. SIGINT and
// SIGTERM cancel the running batch.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCommand(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx)
}

// NewRootCommand builds the command tree reading answers from in.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{
		in:     in,
		out:    out,
		errOut: errOut,
		prompt: prompt.New(in, out),
	}

	root := &cobra.Command{
		Use:   "dispatch",
		Short: "Send personalised emails from a template and a CSV file",
		Long: `dispatch sends one email per row of a CSV data file. Every {column}
placeholder in the subject, addresses, bodies and related content paths
is replaced with the row's value before the message is sent.

Example:
  dispatch generate                 # write a sample config, body and data file
  dispatch send config.json -d      # preview every message without sending
  dispatch send config.json         # send through the configured provider`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", defaultEnvFile, "dotenv file loaded before settings")
	root.PersistentFlags().StringVar(&a.settingsFile, "settings", "", "YAML settings file (environment variables take precedence)")

	root.AddCommand(a.newSendCommand())
	root.AddCommand(a.newGenerateCommand())
	return root
}

// setup loads the dotenv file and settings, then installs the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(a.envFile); err != nil {
		explicit := cmd.Flags().Changed("env-file")
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", a.envFile, err)
		}
	}

	var err error
	if a.settingsFile != "" {
		a.settings, err = config.LoadSettingsFromFile(a.settingsFile)
	} else {
		a.settings, err = config.LoadSettings()
	}
	if err != nil {
		return err
	}

	a.setupLogger()
	return nil
}

// setupLogger routes slog through a terminal-friendly handler on stderr.
func (a *app) setupLogger() {
	level, err := log.ParseLevel(a.settings.Logging.Level)
	if err != nil {
		level = log.WarnLevel
	}
	if a.debug {
		level = log.DebugLevel
	}

	handler := log.NewWithOptions(a.errOut, log.Options{
		Level:           level,
		Prefix:          "dispatch",
		ReportTimestamp: a.debug,
	})
	slog.SetDefault(slog.New(handler))
}
