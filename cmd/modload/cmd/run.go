package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRunCommand creates the 'run' command, which performs a dry loading
// session where every declared callback succeeds without doing anything.
func NewRunCommand(opts *globalOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "run <mods-dir>",
		Short: "Dry-run a loading session and print the session report",
		Long: `Run every configured phase over the mods in the directory. Each
phase a manifest declares is bound to a no-op callback, so the report shows
which mods would be built, ordered, skipped or excluded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			report, err := s.coordinator.Load(cmd.Context(), s.raws)
			if err != nil {
				return err
			}
			out := newRunOutput(report, s.dirErrors)
			if err := writeOutput(cmd.OutOrStdout(), opts.format, out, out.writeText); err != nil {
				return err
			}
			if strict && (len(report.Failed()) > 0 || len(s.dirErrors) > 0) {
				return fmt.Errorf("%w: %d of %d", ErrModsFailed,
					len(report.Failed())+len(s.dirErrors), len(report.Mods)-1+len(s.dirErrors))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error when any mod is not fully loaded")
	return cmd
}
