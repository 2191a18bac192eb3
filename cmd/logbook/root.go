package main

import (
	"github.com/spf13/cobra"

	"infinite-experiment/logbook/internal/config"
	"infinite-experiment/logbook/internal/logging"
)

// commandContext carries persistent flags and the lazily loaded config.
type commandContext struct {
	configFlag string
	verbose    bool

	cfg *config.Config
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configFlag)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "logbook",
		Short:         "Build and inspect pilot logbook metrics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !ctx.verbose {
				return nil
			}
			return logging.Init("development")
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "Write structured logs to stderr")

	rootCmd.AddCommand(newIngestCommand(ctx))
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newPilotsCommand())
	rootCmd.AddCommand(newExportCommand())

	return rootCmd
}
