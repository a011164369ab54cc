package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shineum/dispatch/internal/generate"
)

func (a *app) newGenerateCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a sample config, body and data file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return generate.Run(a.prompt, dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory for relative filenames")
	return cmd
}
