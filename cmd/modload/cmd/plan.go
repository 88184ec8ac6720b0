package cmd

import (
	"github.com/spf13/cobra"
)

// NewPlanCommand creates the 'plan' command, which resolves the load order
// of a mods directory without invoking any callback.
func NewPlanCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <mods-dir>",
		Short: "Show the load order and diagnostics for a mods directory",
		Long: `Build every mod in the directory, apply platform eligibility and
resolve the load order. No phase callback is invoked.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			plan := s.coordinator.Prepare(cmd.Context(), s.raws)
			out := newPlanOutput(plan, s.coordinator.Report(), s.dirErrors)
			return writeOutput(cmd.OutOrStdout(), opts.format, out, out.writeText)
		},
	}
}
