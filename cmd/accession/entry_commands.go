package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"accession/internal/api"
	"accession/internal/catalogue"
	"accession/internal/workflow"
)

func newPendingCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:     "pending",
		Aliases: []string{"list"},
		Short:   "List entries awaiting review",
		Long: "List pending entries. Without --status the review list is shown:\n" +
			"entries awaiting confirmation and entries whose metadata lookup failed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(c context.Context, svc *api.CatalogueService) error {
				items, err := svc.List(c, statuses...)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.EntryListResponse{Items: items})
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No entries")
					return nil
				}
				colorize := colorEnabled(out)
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						renderStatus(item.Status, colorize),
						item.Title,
						strings.Join(item.Authors, ", "),
						displayISBN(item),
						strconv.Itoa(item.TotalCopies),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Status", "Title", "Authors", "ISBN", "Copies"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (comma separated or repeated)")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a pending entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(c context.Context, svc *api.CatalogueService) error {
				entry, err := svc.Get(c, id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, entry)
				}
				printEntry(cmd, entry)
				return nil
			})
		},
	}
}

// editFlags binds the librarian edit flags shared by edit and confirm.
type editFlags struct {
	title    string
	authors  []string
	isbn     string
	isbn10   string
	isbn13   string
	copies   int
	metadata []string
}

func (f *editFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Replace the title")
	cmd.Flags().StringArrayVar(&f.authors, "author", nil, "Replace the author list (repeatable)")
	cmd.Flags().StringVar(&f.isbn, "isbn", "", "Replace the submitted ISBN")
	cmd.Flags().StringVar(&f.isbn10, "isbn10", "", "Set the ISBN-10")
	cmd.Flags().StringVar(&f.isbn13, "isbn13", "", "Set the ISBN-13")
	cmd.Flags().IntVar(&f.copies, "copies", 0, "Replace the number of copies")
	cmd.Flags().StringArrayVar(&f.metadata, "set", nil, "Set a metadata field as key=value (repeatable)")
}

// edits converts the flags the user actually passed into workflow edits.
// Nil is returned when no edit flag was given.
func (f *editFlags) edits(cmd *cobra.Command) (*workflow.Edits, error) {
	flags := cmd.Flags()
	var edits workflow.Edits
	if flags.Changed("title") {
		edits.Title = &f.title
	}
	if flags.Changed("author") {
		edits.Authors = f.authors
	}
	if flags.Changed("isbn") {
		edits.ISBN = &f.isbn
	}
	if flags.Changed("isbn10") {
		edits.ISBN10 = &f.isbn10
	}
	if flags.Changed("isbn13") {
		edits.ISBN13 = &f.isbn13
	}
	if flags.Changed("copies") {
		edits.TotalCopies = &f.copies
	}
	if len(f.metadata) > 0 {
		doc, err := parseAssignments(f.metadata)
		if err != nil {
			return nil, err
		}
		edits.Metadata = doc
	}
	if edits.Empty() {
		return nil, nil
	}
	return &edits, nil
}

// parseAssignments reads key=value pairs. Integer values are stored as
// numbers so publication_year round-trips through the document schema.
func parseAssignments(values []string) (catalogue.Document, error) {
	doc := make(catalogue.Document, len(values))
	for _, raw := range values {
		key, value, ok := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set value %q (want key=value)", raw)
		}
		value = strings.TrimSpace(value)
		if n, err := strconv.Atoi(value); err == nil {
			doc[key] = n
			continue
		}
		doc[key] = value
	}
	return doc, nil
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var flags editFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Correct fields on a pending entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}
			edits, err := flags.edits(cmd)
			if err != nil {
				return err
			}
			if edits == nil {
				return fmt.Errorf("no changes given; pass at least one edit flag")
			}
			return ctx.withService(cmd, func(c context.Context, svc *api.CatalogueService) error {
				entry, err := svc.Edit(c, id, *edits)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, entry)
				}
				printEntry(cmd, entry)
				return nil
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newConfirmCommand(ctx *commandContext) *cobra.Command {
	var flags editFlags
	var reject bool
	var reason string

	cmd := &cobra.Command{
		Use:   "confirm <id>",
		Short: "Approve or reject a reviewed entry",
		Long: "Approve an entry (optionally applying final edits) or reject it with --reject.\n" +
			"Approved entries can then be inserted into the catalogue.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}
			edits, err := flags.edits(cmd)
			if err != nil {
				return err
			}
			decision := workflow.Decision{Approved: !reject, Edits: edits, Reason: reason}
			return ctx.withService(cmd, func(c context.Context, svc *api.CatalogueService) error {
				entry, err := svc.Confirm(c, id, decision)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, entry)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Entry %d %s\n", entry.ID, renderStatus(entry.Status, colorEnabled(out)))
				return nil
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&reject, "reject", false, "Reject the entry instead of approving it")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded in the audit trail")
	return cmd
}

func newInsertCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <id>",
		Short: "Insert an approved entry into the catalogue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(c context.Context, svc *api.CatalogueService) error {
				result, err := svc.Insert(c, id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, result.Message)
				pairs := [][2]string{
					{"Entry", strconv.FormatInt(result.PendingID, 10)},
					{"Book", strconv.FormatInt(result.BookID, 10)},
					{"Action", result.Action},
				}
				if result.TotalCopies > 0 {
					pairs = append(pairs,
						[2]string{"Total copies", strconv.Itoa(result.TotalCopies)},
						[2]string{"Available copies", strconv.Itoa(result.AvailableCopies)},
					)
				}
				fmt.Fprintln(out, renderKeyValues(pairs))
				return nil
			})
		},
	}
}

func newAuditCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "audit <id>",
		Short: "Show an entry's audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(c context.Context, svc *api.CatalogueService) error {
				items, err := svc.AuditTrail(c, id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.AuditTrailResponse{Items: items})
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						item.CreatedAt,
						item.Action,
						item.Source,
						item.Details,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Time", "Action", "Source", "Details"},
					rows,
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show entry counts by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(c context.Context, svc *api.CatalogueService) error {
				stats, err := svc.Stats(c)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, stats)
				}
				out := cmd.OutOrStdout()
				colorize := colorEnabled(out)
				rows := make([][]string, 0, len(stats.Counts)+1)
				for _, status := range catalogue.AllStatuses() {
					rows = append(rows, []string{
						renderStatus(string(status), colorize),
						strconv.Itoa(stats.Counts[string(status)]),
					})
				}
				rows = append(rows, []string{"total", strconv.Itoa(stats.Total)})
				fmt.Fprintln(out, renderTable(
					[]string{"Status", "Entries"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func printEntry(cmd *cobra.Command, entry *api.Entry) {
	out := cmd.OutOrStdout()
	pairs := [][2]string{
		{"ID", strconv.FormatInt(entry.ID, 10)},
		{"Status", renderStatus(entry.Status, colorEnabled(out))},
		{"Title", entry.Title},
		{"Authors", strings.Join(entry.Authors, ", ")},
		{"ISBN", entry.ISBN},
		{"ISBN-10", entry.ISBN10},
		{"ISBN-13", entry.ISBN13},
		{"Copies", strconv.Itoa(entry.TotalCopies)},
		{"Created", entry.CreatedAt},
		{"Updated", entry.UpdatedAt},
	}
	for _, key := range []string{catalogue.KeyPublisher, catalogue.KeyPublicationYear, catalogue.KeyEdition, catalogue.KeySource} {
		if value, ok := entry.Metadata[key]; ok {
			pairs = append(pairs, [2]string{key, formatValue(value)})
		}
	}
	fmt.Fprintln(out, renderKeyValues(pairs))
}

func displayISBN(entry api.Entry) string {
	switch {
	case entry.ISBN13 != "":
		return entry.ISBN13
	case entry.ISBN10 != "":
		return entry.ISBN10
	default:
		return entry.ISBN
	}
}
