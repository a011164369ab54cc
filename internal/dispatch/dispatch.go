// Package dispatch runs a batch: it validates the first row, composes one
// message per row and hands each to a provider with a fixed delay between sends.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shineum/dispatch/internal/compose"
	"github.com/shineum/dispatch/internal/config"
	"github.com/shineum/dispatch/internal/email"
	"github.com/shineum/dispatch/internal/prompt"
	"github.com/shineum/dispatch/internal/provider"
	"github.com/shineum/dispatch/internal/subst"
)

// DefaultDelay is the pause after each send. It keeps a batch under provider
// rate limits.
const DefaultDelay = time.Second

const separator = "----------------------------"

// State is a stage of a batch run.
type State int

const (
	StateLoaded State = iota
	StateValidated
	StateSending
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateValidated:
		return "validated"
	case StateSending:
		return "sending"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Opener connects the transport. It is called at most once per run, after
// validation and never in dry-run mode.
type Opener func(ctx context.Context) (provider.Provider, error)

// Options configures a Dispatcher.
type Options struct {
	// Out receives previews, progress lines and the summary. Defaults to os.Stdout.
	Out io.Writer
	// Prompter confirms unmatched placeholders. A nil Prompter declines.
	Prompter prompt.Prompter
	Open     Opener

	DryRun  bool
	Verbose bool

	// Delay defaults to DefaultDelay when zero.
	Delay time.Duration
	// Sleep waits between sends and returns early with ctx's error on cancellation.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Dispatcher runs batches sequentially.
type Dispatcher struct {
	opts Options
}

// New creates a Dispatcher, filling unset options with defaults.
func New(opts Options) *Dispatcher {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Delay == 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	return &Dispatcher{opts: opts}
}

// Run sends one message per row in order. Any error aborts the whole batch:
// no further rows are composed or sent.
func (d *Dispatcher) Run(ctx context.Context, cfg *config.DispatchConfig, bodies config.Bodies, rows []subst.Row) error {
	err := d.run(ctx, cfg, bodies, rows)
	if err != nil {
		slog.Debug("dispatch state", "state", StateAborted, "error", err)
		return err
	}
	slog.Debug("dispatch state", "state", StateCompleted, "rows", len(rows))
	return nil
}

func (d *Dispatcher) run(ctx context.Context, cfg *config.DispatchConfig, bodies config.Bodies, rows []subst.Row) error {
	slog.Debug("dispatch state", "state", StateLoaded, "rows", len(rows), "dry_run", d.opts.DryRun)

	if len(rows) == 0 {
		return fmt.Errorf("%w, add rows to %s", email.ErrEmptyBatch, cfg.Data)
	}
	if bodies.Empty() {
		return email.ErrNoBody
	}

	if err := d.validate(cfg, bodies, rows[0]); err != nil {
		return err
	}
	slog.Debug("dispatch state", "state", StateValidated)

	var p provider.Provider
	if !d.opts.DryRun {
		if d.opts.Open == nil {
			return fmt.Errorf("no mail provider configured")
		}
		opened, err := d.opts.Open(ctx)
		if err != nil {
			return fmt.Errorf("failed to open mail provider: %w", err)
		}
		p = opened
		if closer, ok := p.(io.Closer); ok {
			defer func() {
				if err := closer.Close(); err != nil {
					slog.Warn("failed to close provider", "provider", p.Name(), "error", err)
				}
			}()
		}
	}

	slog.Debug("dispatch state", "state", StateSending)
	total := len(rows)
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := compose.Compose(cfg, bodies, row)
		if err != nil {
			return err
		}

		if d.opts.DryRun || d.opts.Verbose {
			raw, err := msg.Bytes()
			if err != nil {
				return fmt.Errorf("failed to render message %d: %w", i+1, err)
			}
			fmt.Fprintf(d.opts.Out, "%s %d of %d\n%s\n\n", separator, i+1, total, raw)
		}

		if d.opts.DryRun {
			continue
		}

		recipients := msg.Recipients()
		if err := p.Send(ctx, msg); err != nil {
			return &email.SendError{Recipients: recipients, Err: err}
		}
		slog.Info("message sent",
			"provider", p.Name(),
			"row", i+1,
			"recipients", len(recipients),
		)
		fmt.Fprintf(d.opts.Out, "Sent email %d of %d to %s\n", i+1, total, strings.Join(recipients, ", "))

		if err := d.opts.Sleep(ctx, d.opts.Delay); err != nil {
			return err
		}
	}

	fmt.Fprintln(d.opts.Out, separator)
	if d.opts.DryRun {
		fmt.Fprintln(d.opts.Out, "Dry run successful!")
	} else {
		fmt.Fprintln(d.opts.Out, "Emails sent successfully!")
	}
	return nil
}

// validate asks once per distinct key found unmatched in the first row's
// subject and bodies. Later rows are not checked.
func (d *Dispatcher) validate(cfg *config.DispatchConfig, bodies config.Bodies, first subst.Row) error {
	templates := []string{cfg.Subject}
	if bodies.HTML != nil {
		templates = append(templates, *bodies.HTML)
	}
	if bodies.Text != nil {
		templates = append(templates, *bodies.Text)
	}

	asked := make(map[string]bool)
	for _, tmpl := range templates {
		for _, key := range subst.Unmatched(tmpl, first) {
			if asked[key] {
				continue
			}
			asked[key] = true

			slog.Debug("unmatched placeholder", "key", key)
			if d.opts.Prompter == nil {
				return fmt.Errorf("%w: unmatched field {%s}", email.ErrDeclined, key)
			}
			answer, err := d.opts.Prompter.Ask(fmt.Sprintf("Found possibly unmatched field {%s}. Send anyways", key), "n")
			if err != nil {
				return err
			}
			if prompt.No(answer) {
				return fmt.Errorf("%w: unmatched field {%s}", email.ErrDeclined, key)
			}
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
