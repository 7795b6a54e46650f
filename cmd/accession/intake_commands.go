package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"accession/internal/api"
	"accession/internal/metadata"
	"accession/internal/workflow"
)

func newIntakeCommand(ctx *commandContext) *cobra.Command {
	var req workflow.IntakeRequest

	cmd := &cobra.Command{
		Use:   "intake",
		Short: "Submit a book for cataloguing",
		Long: "Create a pending entry and look up its bibliographic metadata.\n" +
			"The entry lands in awaiting_confirmation when metadata is found and in failed otherwise.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(c context.Context, svc *api.CatalogueService) error {
				resp, err := svc.Intake(c, req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Entry %d created (%s)\n", resp.Entry.ID, renderStatus(resp.Entry.Status, colorEnabled(out)))
				fmt.Fprintf(out, "Metadata found: %s\n", yesNo(resp.MetadataFound))
				if resp.MetadataError != "" {
					fmt.Fprintf(out, "Metadata lookup: %s\n", resp.MetadataError)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.ISBN, "isbn", "", "ISBN-10 or ISBN-13")
	cmd.Flags().StringVar(&req.Title, "title", "", "Title (required without --isbn)")
	cmd.Flags().StringArrayVar(&req.Authors, "author", nil, "Author name (repeatable)")
	cmd.Flags().IntVar(&req.TotalCopies, "copies", 1, "Number of copies received")
	return cmd
}

func newLookupCommand(ctx *commandContext) *cobra.Command {
	var query metadata.Query

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Preview a metadata lookup without creating an entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(c context.Context, svc *api.CatalogueService) error {
				resp, err := svc.Lookup(c, query)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if !resp.Found {
					fmt.Fprintln(out, "No metadata found")
					return nil
				}
				keys := make([]string, 0, len(resp.Metadata))
				for key := range resp.Metadata {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				pairs := make([][2]string, 0, len(keys))
				for _, key := range keys {
					pairs = append(pairs, [2]string{key, formatValue(resp.Metadata[key])})
				}
				fmt.Fprintln(out, renderKeyValues(pairs))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&query.ISBN, "isbn", "", "ISBN to look up")
	cmd.Flags().StringVar(&query.Title, "title", "", "Title to search for")
	cmd.Flags().StringArrayVar(&query.Authors, "author", nil, "Author name to narrow a title search (repeatable)")
	return cmd
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, formatValue(item))
		}
		return strings.Join(parts, "; ")
	case []string:
		return strings.Join(v, "; ")
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}
