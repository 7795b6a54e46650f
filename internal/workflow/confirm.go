package workflow

import (
	"context"
	"fmt"
	"strings"

	"accession/internal/catalogue"
	"accession/internal/logging"
	"accession/internal/metrics"
	"accession/internal/services"
	"accession/internal/validation"
)

const confirmationSource = "librarian_confirmation"

// Confirm records a librarian decision on an entry in awaiting_confirmation
// or failed. Approval builds the finalized output document; rejection is
// terminal and produces none.
func (m *Manager) Confirm(ctx context.Context, id int64, decision Decision) (*catalogue.Entry, error) {
	if err := validation.Struct(decision); err != nil {
		return nil, err
	}
	ctx = services.WithEntryID(ctx, id)

	var (
		entry    *catalogue.Entry
		previous catalogue.Status
	)
	err := m.store.WithTx(ctx, func(tx *catalogue.Tx) error {
		current, err := tx.LockEntry(ctx, id)
		if err != nil {
			return err
		}
		if !current.Status.Confirmable() {
			return &catalogue.StateError{
				EntryID:   id,
				Operation: "confirm",
				Current:   current.Status,
				Expected:  catalogue.ConfirmableStatuses,
			}
		}
		previous = current.Status

		var action, detail string
		if decision.Approved {
			if _, err := applyEdits(current, decision.Edits); err != nil {
				return err
			}
			current.Output = buildOutput(current)
			current.Status = catalogue.StatusApproved
			action = catalogue.ActionApproved
			detail = reasonOr(decision.Reason, "Metadata approved")
		} else {
			current.Status = catalogue.StatusRejected
			action = catalogue.ActionRejected
			detail = fmt.Sprintf("%s (previous status: %s)", reasonOr(decision.Reason, "Metadata rejected"), previous)
		}

		if err := tx.SaveEntry(ctx, current, previous); err != nil {
			return err
		}
		if _, err := tx.AppendAudit(ctx, id, action, catalogue.SourceLibrarian, detail); err != nil {
			return err
		}
		entry = current
		return nil
	})
	if err != nil {
		return nil, storageError("confirm", err)
	}
	metrics.RecordTransition(string(entry.Status))

	logging.WithContext(ctx, m.logger).Info("entry confirmed",
		logging.String(logging.FieldStatus, string(entry.Status)),
		logging.String("previous_status", string(previous)),
		logging.Bool("approved", decision.Approved),
	)
	return entry, nil
}

// buildOutput prefers metadata values over raw intake values, falling back
// to null. Keys it does not know pass through from the metadata document.
func buildOutput(entry *catalogue.Entry) catalogue.Document {
	meta := entry.Metadata
	out := meta.Clone()
	if out == nil {
		out = catalogue.Document{}
	}

	out[catalogue.KeyISBN] = firstValue(meta, catalogue.KeyISBN, entry.ISBN)
	out[catalogue.KeyISBN10] = firstValue(meta, catalogue.KeyISBN10, entry.ISBN10)
	out[catalogue.KeyISBN13] = firstValue(meta, catalogue.KeyISBN13, entry.ISBN13)
	out[catalogue.KeyTitle] = firstValue(meta, catalogue.KeyTitle, entry.Title)
	if meta.Has(catalogue.KeyAuthors) {
		out[catalogue.KeyAuthors] = meta[catalogue.KeyAuthors]
	} else {
		authors := entry.Authors
		if authors == nil {
			authors = []string{}
		}
		out[catalogue.KeyAuthors] = authors
	}
	for _, key := range []string{
		catalogue.KeyPublisher,
		catalogue.KeyPublicationYear,
		catalogue.KeyEdition,
		catalogue.KeyDescription,
		catalogue.KeyCoverURL,
		catalogue.KeyCategories,
		catalogue.KeyKeywords,
	} {
		if meta.Has(key) {
			out[key] = meta[key]
		} else {
			out[key] = nil
		}
	}
	out[catalogue.KeyTotalCopies] = entry.TotalCopies
	out[catalogue.KeySource] = confirmationSource
	return out
}

func firstValue(meta catalogue.Document, key, fallback string) any {
	if meta.Has(key) {
		return meta[key]
	}
	if fallback != "" {
		return fallback
	}
	return nil
}

func reasonOr(reason, fallback string) string {
	if reason = strings.TrimSpace(reason); reason == "" {
		return fallback
	}
	return reason
}
