package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"accession/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var cli bool
	var raw bool
	var filter logs.Filter

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon log output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			name := "accessiond.log"
			if cli {
				name = "accession.log"
			}
			path := filepath.Join(cfg.Paths.LogDir, name)

			out := cmd.OutOrStdout()
			emit := func(line string) {
				printLogLine(out, line, filter, raw)
			}

			tail, offset, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			for _, line := range tail {
				emit(line)
			}
			if !follow {
				return nil
			}
			err = logs.Follow(cmd.Context(), path, offset, logs.DefaultPollInterval, emit)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().BoolVar(&cli, "cli", false, "Read the CLI log instead of the daemon log")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print JSON records unformatted")
	cmd.Flags().StringVar(&filter.MinLevel, "level", "", "Minimum level to show (debug, info, warn, error)")
	cmd.Flags().Int64Var(&filter.EntryID, "entry", 0, "Only show records for this entry id")
	return cmd
}

func printLogLine(w io.Writer, line string, filter logs.Filter, raw bool) {
	rec, ok := logs.ParseRecord(line)
	if ok && !filter.Match(rec) {
		return
	}
	if raw || !ok {
		fmt.Fprintln(w, line)
		return
	}
	fmt.Fprintln(w, rec.Format())
}
