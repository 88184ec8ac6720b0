package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/modloader"
)

// NewConfigCommand creates the 'config' command group.
func NewConfigCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect session configuration",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	cmd.AddCommand(newConfigSampleCommand())
	cmd.AddCommand(newConfigShowCommand(opts))
	return cmd
}

func newConfigSampleCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print a sample session config with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := modloader.GenerateSampleConfig(modloader.NewSessionConfig(), format)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == "yaml" {
				desc := modloader.DescribeConfig(&modloader.SessionConfig{})
				keys := make([]string, 0, len(desc))
				for k := range desc {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(out, "# %s: %s\n", k, desc[k])
				}
			}
			_, err = out.Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "as", "yaml", "Sample format: yaml, json or toml")
	return cmd
}

func newConfigShowCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective session config after files, environment and flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			cfg, err := opts.sessionConfig()
			if err != nil {
				return err
			}
			format := opts.format
			if format == formatText {
				format = formatYAML
			}
			data, err := modloader.GenerateSampleConfig(cfg, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
