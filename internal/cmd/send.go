package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/shineum/dispatch/internal/config"
	"github.com/shineum/dispatch/internal/data"
	"github.com/shineum/dispatch/internal/dispatch"
	"github.com/shineum/dispatch/internal/email"
)

func (a *app) newSendCommand() *cobra.Command {
	var (
		dryRun       bool
		verbose      bool
		providerName string
		delay        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send CONFIG",
		Short: "Send one email per data row",
		Long: `Send reads the dispatch config (JSON, or YAML for .yaml/.yml files),
its body templates and data file, and sends one message per data row.

Unmatched placeholders in the first row are confirmed before anything is
sent. Any failure stops the batch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if delay <= 0 {
				return &email.ConfigError{Field: "delay", Reason: "must be positive"}
			}
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			bodies, err := cfg.LoadBodies()
			if err != nil {
				return err
			}
			rows, err := data.ReadFile(cfg.DataPath())
			if err != nil {
				return err
			}

			d := dispatch.New(dispatch.Options{
				Out:      a.out,
				Prompter: a.prompt,
				Open:     a.opener(cfg, providerName),
				DryRun:   dryRun,
				Verbose:  verbose,
				Delay:    delay,
			})
			return d.Run(cmd.Context(), cfg, bodies, rows)
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "print every message instead of sending")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every message before sending it")
	cmd.Flags().StringVar(&providerName, "provider", "", "transport: smtp, ses, sendgrid, resend, graph or stdout (overrides settings)")
	cmd.Flags().DurationVar(&delay, "delay", dispatch.DefaultDelay, "pause after each send")
	return cmd
}
