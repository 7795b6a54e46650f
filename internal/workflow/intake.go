package workflow

import (
	"context"
	"errors"
	"fmt"

	"accession/internal/catalogue"
	"accession/internal/isbn"
	"accession/internal/logging"
	"accession/internal/metadata"
	"accession/internal/metrics"
	"accession/internal/services"
	"accession/internal/validation"
)

const (
	noMetadataDetail       = "No metadata found from external APIs"
	metadataDisabledDetail = "metadata lookup disabled"
)

// Intake creates a pending entry and runs the metadata step. A metadata
// failure moves the entry to failed and is audited; it never fails Intake.
func (m *Manager) Intake(ctx context.Context, req IntakeRequest) (*IntakeResult, error) {
	req.normalize()
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	pair, rejected := isbn.FromFields("", "", req.ISBN)
	entry := &catalogue.Entry{
		ISBN:        req.ISBN,
		ISBN10:      pair.ISBN10,
		ISBN13:      pair.ISBN13,
		Title:       req.Title,
		Authors:     req.Authors,
		TotalCopies: req.TotalCopies,
		Status:      catalogue.StatusPending,
	}
	err := m.store.WithTx(ctx, func(tx *catalogue.Tx) error {
		if err := tx.CreateEntry(ctx, entry); err != nil {
			return err
		}
		_, err := tx.AppendAudit(ctx, entry.ID, catalogue.ActionInputReceived, catalogue.SourceFrontend, "Book added: "+intakeLabel(req))
		return err
	})
	if err != nil {
		return nil, storageError("intake", err)
	}
	metrics.RecordTransition(string(catalogue.StatusPending))

	ctx = services.WithEntryID(ctx, entry.ID)
	logger := logging.WithContext(ctx, m.logger)
	if len(rejected) > 0 {
		logger.Warn("ignoring malformed isbn",
			logging.String("isbn", req.ISBN),
			logging.String(logging.FieldEventType, "isbn_rejected"),
		)
	}
	logger.Info("entry received", logging.String("title", req.Title), logging.String("isbn", req.ISBN))

	doc, fetchErr := m.fetch(ctx, req)
	next := catalogue.StatusAwaitingConfirmation
	action := catalogue.ActionMetadataExtracted
	var detail string
	switch {
	case fetchErr != nil:
		next = catalogue.StatusFailed
		action = catalogue.ActionMetadataExtractionFailed
		detail = "Error: " + fetchErr.Error()
		if errors.Is(fetchErr, errMetadataDisabled) {
			detail = metadataDisabledDetail
			fetchErr = nil
		}
	case doc == nil:
		next = catalogue.StatusFailed
		action = catalogue.ActionMetadataExtractionFailed
		detail = noMetadataDetail
	default:
		detail = "Source: " + doc.String(catalogue.KeySource)
	}

	err = m.store.WithTx(ctx, func(tx *catalogue.Tx) error {
		current, err := tx.LockEntry(ctx, entry.ID)
		if err != nil {
			return err
		}
		if current.Status != catalogue.StatusPending {
			// Someone else already moved it on.
			entry = current
			return nil
		}
		current.Status = next
		if next == catalogue.StatusAwaitingConfirmation {
			current.Metadata = doc
		}
		if err := tx.SaveEntry(ctx, current, catalogue.StatusPending); err != nil {
			return err
		}
		if _, err := tx.AppendAudit(ctx, current.ID, action, catalogue.SourceMetadataPipeline, detail); err != nil {
			return err
		}
		entry = current
		return nil
	})
	if err != nil {
		return nil, storageError("record metadata", err)
	}
	metrics.RecordTransition(string(entry.Status))

	if fetchErr != nil {
		logging.WarnWithContext(logger, "metadata extraction failed", "metadata_extraction_failed",
			logging.Error(fetchErr),
			logging.String(logging.FieldErrorKind, services.Kind(fetchErr)),
		)
	} else {
		logger.Info("metadata step complete",
			logging.String(logging.FieldStatus, string(entry.Status)),
			logging.String("detail", detail),
		)
	}

	return &IntakeResult{
		Entry:         entry,
		MetadataFound: entry.Status == catalogue.StatusAwaitingConfirmation,
		MetadataError: fetchErr,
	}, nil
}

var errMetadataDisabled = errors.New("metadata lookup disabled")

func (m *Manager) fetch(ctx context.Context, req IntakeRequest) (doc catalogue.Document, err error) {
	if m.fetcher == nil {
		return nil, errMetadataDisabled
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = services.Wrap(services.ErrExternal, "workflow", "fetch metadata", "", fmt.Errorf("panic: %v", r))
		}
	}()
	doc, err = m.fetcher.Fetch(ctx, metadata.Query{ISBN: req.ISBN, Title: req.Title, Authors: req.Authors})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	if err := doc.Validate(); err != nil {
		return nil, services.Wrap(services.ErrExternal, "workflow", "fetch metadata", "provider returned malformed metadata", err)
	}
	return doc, nil
}

func intakeLabel(req IntakeRequest) string {
	switch {
	case req.Title != "":
		return req.Title
	case req.ISBN != "":
		return req.ISBN
	default:
		return "Unknown"
	}
}
