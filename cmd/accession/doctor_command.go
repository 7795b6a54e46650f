package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"accession/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, database and external services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			failed := preflight.Failed(results)

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := colorEnabled(out)
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{r.Name, checkLabel(r.Passed, colorize), r.Detail})
				}
				fmt.Fprintln(out, renderTable([]string{"Check", "Result", "Detail"}, rows, nil))
			}

			if len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}
}

func checkLabel(passed, colorize bool) string {
	label, attr := "FAIL", color.FgRed
	if passed {
		label, attr = "OK", color.FgGreen
	}
	if !colorize {
		return label
	}
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(label)
}
