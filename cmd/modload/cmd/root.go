// Package cmd implements the modload command line tool, which inspects
// and dry-runs a directory of mod manifests.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information, set at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// PrintVersion returns the version line.
func PrintVersion() string {
	return fmt.Sprintf("modload v%s (commit: %s, built on: %s)", Version, Commit, Date)
}

// NewRootCommand creates the root command for modload.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "modload",
		Short: "modload - inspect and dry-run game mod loading sessions",
		Long: `modload reads the manifests in a mods directory, resolves the load
order from dependencies and load hints, and reports what a loading session
would do.`,
		Version:       PrintVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Session config file (yaml, toml or json)")
	flags.StringVar(&opts.section, "config-section", "", "Read session settings from this top-level key of the config file")
	flags.StringVarP(&opts.platform, "platform", "p", "", "Active platform, overrides the config file")
	flags.StringVarP(&opts.format, "format", "f", formatText, "Output format: text, json or yaml")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log loader activity to stderr")

	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}
