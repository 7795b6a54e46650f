package main

import (
	"github.com/spf13/cobra"

	"accession/internal/daemonrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var development bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the catalogue daemon and HTTP API",
		Long: "Run the accession daemon in the foreground. The HTTP API listens on\n" +
			"paths.api_bind and enrichment jobs are delivered while it runs.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			level := ""
			if cmd.Flags().Changed("log-level") {
				level = ctx.logLevel()
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    level,
				Development: development,
			})
		},
	}

	cmd.Flags().BoolVar(&development, "dev", false, "Include source locations in log records")
	return cmd
}
