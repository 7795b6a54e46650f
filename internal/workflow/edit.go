package workflow

import (
	"context"
	"errors"
	"slices"
	"strings"

	"accession/internal/catalogue"
	"accession/internal/isbn"
	"accession/internal/logging"
	"accession/internal/services"
	"accession/internal/validation"
)

// Edit merges librarian changes into an entry that is not yet approved or
// completed, keeping the entry columns and the metadata document in step.
func (m *Manager) Edit(ctx context.Context, id int64, edits Edits) (*catalogue.Entry, error) {
	if err := validation.Struct(edits); err != nil {
		return nil, err
	}
	ctx = services.WithEntryID(ctx, id)

	var (
		entry   *catalogue.Entry
		changed []string
	)
	err := m.store.WithTx(ctx, func(tx *catalogue.Tx) error {
		current, err := tx.LockEntry(ctx, id)
		if err != nil {
			return err
		}
		if !current.Status.Editable() {
			return &catalogue.StateError{
				EntryID:   id,
				Operation: "edit",
				Current:   current.Status,
				Expected:  catalogue.EditableStatuses(),
			}
		}
		status := current.Status
		changed, err = applyEdits(current, &edits)
		if err != nil {
			return err
		}
		if err := tx.SaveEntry(ctx, current, status); err != nil {
			return err
		}
		detail := "no changes"
		if len(changed) > 0 {
			detail = "fields: " + strings.Join(changed, ", ")
		}
		if _, err := tx.AppendAudit(ctx, id, catalogue.ActionPendingEdited, catalogue.SourceLibrarian, detail); err != nil {
			return err
		}
		entry = current
		return nil
	})
	if err != nil {
		return nil, storageError("edit", err)
	}

	logging.WithContext(ctx, m.logger).Info("entry edited",
		logging.String(logging.FieldStatus, string(entry.Status)),
		logging.Any("fields", changed),
	)
	return entry, nil
}

// applyEdits updates entry in place and returns the sorted names of the
// fields that were supplied.
func applyEdits(entry *catalogue.Entry, edits *Edits) ([]string, error) {
	if edits.Empty() {
		return nil, nil
	}
	changes := edits.Metadata.Clone()
	if changes == nil {
		changes = catalogue.Document{}
	}
	if edits.Title != nil {
		changes[catalogue.KeyTitle] = strings.TrimSpace(*edits.Title)
	}
	if edits.Authors != nil {
		authors := make([]string, 0, len(edits.Authors))
		for _, author := range edits.Authors {
			authors = append(authors, strings.TrimSpace(author))
		}
		changes[catalogue.KeyAuthors] = authors
	}
	if edits.ISBN != nil {
		changes[catalogue.KeyISBN] = strings.TrimSpace(*edits.ISBN)
	}
	if edits.ISBN10 != nil {
		changes[catalogue.KeyISBN10] = strings.TrimSpace(*edits.ISBN10)
	}
	if edits.ISBN13 != nil {
		changes[catalogue.KeyISBN13] = strings.TrimSpace(*edits.ISBN13)
	}
	if edits.TotalCopies != nil {
		changes[catalogue.KeyTotalCopies] = *edits.TotalCopies
	}

	if _, ok := changes[catalogue.KeyTotalCopies]; ok {
		copies, valid := changes.Int(catalogue.KeyTotalCopies)
		if !valid || copies < 1 {
			return nil, &catalogue.ValidationError{EntryID: entry.ID, Field: "total_copies", Message: "must be at least 1"}
		}
		changes[catalogue.KeyTotalCopies] = copies
		entry.TotalCopies = copies
	}
	if err := changes.Validate(); err != nil {
		var vErr *catalogue.ValidationError
		if errors.As(err, &vErr) {
			vErr.EntryID = entry.ID
		}
		return nil, err
	}

	if _, ok := changes[catalogue.KeyTitle]; ok {
		entry.Title = changes.String(catalogue.KeyTitle)
	}
	if _, ok := changes[catalogue.KeyAuthors]; ok {
		entry.Authors = changes.Strings(catalogue.KeyAuthors)
	}
	if _, ok := changes[catalogue.KeyISBN]; ok {
		entry.ISBN = changes.String(catalogue.KeyISBN)
	}
	if _, ok := changes[catalogue.KeyISBN10]; ok {
		entry.ISBN10 = normalizedOrEmpty(changes.String(catalogue.KeyISBN10))
	}
	if _, ok := changes[catalogue.KeyISBN13]; ok {
		entry.ISBN13 = normalizedOrEmpty(changes.String(catalogue.KeyISBN13))
	}

	entry.Metadata = entry.Metadata.Merge(changes)

	fields := make([]string, 0, len(changes))
	for key := range changes {
		fields = append(fields, key)
	}
	slices.Sort(fields)
	return fields, nil
}

func normalizedOrEmpty(raw string) string {
	value, ok := isbn.Normalize(raw)
	if !ok {
		return ""
	}
	return value
}
