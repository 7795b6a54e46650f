package insertion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"accession/internal/catalogue"
	"accession/internal/isbn"
	"accession/internal/logging"
	"accession/internal/metrics"
	"accession/internal/refentity"
	"accession/internal/services"
)

// Action names what an insertion did.
type Action string

const (
	ActionInserted         Action = "inserted"
	ActionCopiesAdded      Action = "copies_added"
	ActionAlreadyCompleted Action = "already_completed"
)

const unknownAuthor = "Unknown Author"

// Result describes a successful insertion.
type Result struct {
	EntryID         int64
	BookID          int64
	Action          Action
	Status          catalogue.Status
	Message         string
	TotalCopies     int
	AvailableCopies int
}

// Enqueuer receives the id of every newly created book. Enqueue must not
// block.
type Enqueuer interface {
	Enqueue(bookID int64)
}

// Engine turns approved entries into canonical catalogue books.
type Engine struct {
	store    *catalogue.Store
	resolver *refentity.Resolver
	enqueuer Enqueuer
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithEnqueuer sets the post-insertion enrichment trigger.
func WithEnqueuer(enqueuer Enqueuer) Option {
	return func(e *Engine) {
		e.enqueuer = enqueuer
	}
}

// WithResolver overrides the reference entity resolver.
func WithResolver(resolver *refentity.Resolver) Option {
	return func(e *Engine) {
		if resolver != nil {
			e.resolver = resolver
		}
	}
}

// NewEngine constructs an insertion engine.
func NewEngine(store *catalogue.Store, logger *slog.Logger, opts ...Option) *Engine {
	logger = logging.NewComponentLogger(logger, "insertion")
	e := &Engine{
		store:    store,
		resolver: refentity.NewResolver(refentity.WithLogger(logger)),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// insertedDetails is the JSON payload of an "inserted" audit entry.
type insertedDetails struct {
	PendingID   int64   `json:"pending_id"`
	BookID      int64   `json:"book_id"`
	Title       string  `json:"title"`
	ISBN10      *string `json:"isbn_10"`
	ISBN13      *string `json:"isbn_13"`
	PublisherID *int64  `json:"publisher_id"`
	AuthorIDs   []int64 `json:"author_ids"`
	TotalCopies int     `json:"total_copies"`
}

// copiesAddedDetails is the JSON payload of a "copies_added" audit entry.
type copiesAddedDetails struct {
	PendingID     int64   `json:"pending_id"`
	BookID        int64   `json:"book_id"`
	AddedCopies   int     `json:"added_copies"`
	PreviousTotal int     `json:"previous_total"`
	NewTotal      int     `json:"new_total"`
	NewAvailable  int     `json:"new_available"`
	ISBN10        *string `json:"isbn_10"`
	ISBN13        *string `json:"isbn_13"`
}

type completedDetails struct {
	PendingID int64  `json:"pending_id"`
	BookID    int64  `json:"book_id"`
	Action    Action `json:"action"`
}

type failedDetails struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
}

// Insert materializes an approved entry. It is idempotent: once the entry is
// completed, further calls return the same book id with action
// already_completed and change nothing.
//
// The whole procedure runs in one write transaction, which holds the
// database write lock from the moment the entry is read, so concurrent calls
// for the same entry run one after the other. On failure the transaction is
// rolled back and an insert_failed audit entry is written separately.
func (e *Engine) Insert(ctx context.Context, entryID int64) (*Result, error) {
	ctx = services.WithEntryID(ctx, entryID)
	logger := logging.WithContext(ctx, e.logger)
	started := time.Now()

	var result *Result
	err := e.store.WithTx(ctx, func(tx *catalogue.Tx) error {
		var err error
		result, err = e.insertTx(ctx, tx, entryID, logger)
		return err
	})
	elapsed := time.Since(started).Seconds()
	if err != nil {
		err = classify(err)
		metrics.RecordInsertionFailure(services.Kind(err), elapsed)
		e.recordFailure(ctx, entryID, err, logger)
		return nil, err
	}
	metrics.RecordInsertion(string(result.Action), elapsed)
	if result.Action != ActionAlreadyCompleted {
		metrics.RecordTransition(string(catalogue.StatusCompleted))
	}

	logger.Info("entry inserted",
		logging.String(logging.FieldAction, string(result.Action)),
		logging.Int64(logging.FieldBookID, result.BookID),
		logging.Int("total_copies", result.TotalCopies),
	)
	if result.Action == ActionInserted && e.enqueuer != nil {
		e.enqueuer.Enqueue(result.BookID)
	}
	return result, nil
}

func (e *Engine) insertTx(ctx context.Context, tx *catalogue.Tx, entryID int64, logger *slog.Logger) (*Result, error) {
	entry, err := tx.LockEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if entry.Status == catalogue.StatusCompleted {
		return e.completedResult(ctx, tx, entry, logger)
	}
	if entry.Status != catalogue.StatusApproved {
		return nil, &catalogue.StateError{
			EntryID:   entryID,
			Operation: "insert",
			Current:   entry.Status,
			Expected:  []catalogue.Status{catalogue.StatusApproved},
		}
	}

	doc := entry.Output
	if doc == nil {
		doc = entry.Metadata
	}
	if doc == nil {
		return nil, &catalogue.ValidationError{EntryID: entryID, Field: "output", Message: "no metadata document to insert"}
	}
	title := doc.String(catalogue.KeyTitle)
	if title == "" {
		return nil, &catalogue.ValidationError{EntryID: entryID, Field: "title", Message: "title is required"}
	}

	pair, rejected := isbn.FromFields(
		doc.String(catalogue.KeyISBN10),
		doc.String(catalogue.KeyISBN13),
		doc.String(catalogue.KeyISBN),
	)
	for _, raw := range rejected {
		logger.Warn("ignoring malformed isbn",
			logging.String("isbn", raw),
			logging.String(logging.FieldEventType, "isbn_rejected"),
		)
	}

	authors := doc.Strings(catalogue.KeyAuthors)
	if len(authors) == 0 {
		authors = []string{unknownAuthor}
	}
	publisherID, hasPublisher, err := e.resolver.ResolvePublisher(ctx, tx, doc.String(catalogue.KeyPublisher))
	if err != nil {
		return nil, err
	}
	authorIDs, err := e.resolver.ResolveAuthors(ctx, tx, authors)
	if err != nil {
		return nil, err
	}

	var existing *catalogue.Book
	if !pair.Empty() {
		if existing, err = tx.FindBookByISBN(ctx, pair); err != nil {
			return nil, err
		}
	}

	var (
		result  *Result
		action  string
		details any
	)
	if existing != nil {
		updated, err := tx.AddCopies(ctx, existing.ID, entry.TotalCopies)
		if err != nil {
			return nil, err
		}
		action = catalogue.ActionCopiesAdded
		details = copiesAddedDetails{
			PendingID:     entryID,
			BookID:        updated.ID,
			AddedCopies:   entry.TotalCopies,
			PreviousTotal: existing.TotalCopies,
			NewTotal:      updated.TotalCopies,
			NewAvailable:  updated.AvailableCopies,
			ISBN10:        optional(pair.ISBN10),
			ISBN13:        optional(pair.ISBN13),
		}
		result = &Result{
			BookID:          updated.ID,
			Action:          ActionCopiesAdded,
			Message:         "Existing book updated with additional copies",
			TotalCopies:     updated.TotalCopies,
			AvailableCopies: updated.AvailableCopies,
		}
	} else {
		year, _ := doc.Int(catalogue.KeyPublicationYear)
		book := &catalogue.Book{
			ISBN:            pair.Canonical(),
			ISBN10:          pair.ISBN10,
			ISBN13:          pair.ISBN13,
			Title:           title,
			PublisherID:     publisherID,
			PublicationYear: year,
			Edition:         doc.String(catalogue.KeyEdition),
			CoverURL:        doc.String(catalogue.KeyCoverURL),
			TotalCopies:     entry.TotalCopies,
			AvailableCopies: entry.TotalCopies,
		}
		if err := tx.CreateBook(ctx, book); err != nil {
			return nil, err
		}
		if err := tx.LinkAuthors(ctx, book.ID, authorIDs); err != nil {
			return nil, err
		}
		var publisherRef *int64
		if hasPublisher {
			publisherRef = &publisherID
		}
		action = catalogue.ActionInserted
		details = insertedDetails{
			PendingID:   entryID,
			BookID:      book.ID,
			Title:       title,
			ISBN10:      optional(pair.ISBN10),
			ISBN13:      optional(pair.ISBN13),
			PublisherID: publisherRef,
			AuthorIDs:   uniqueIDs(authorIDs),
			TotalCopies: book.TotalCopies,
		}
		result = &Result{
			BookID:          book.ID,
			Action:          ActionInserted,
			Message:         "Book inserted successfully",
			TotalCopies:     book.TotalCopies,
			AvailableCopies: book.AvailableCopies,
		}
	}

	if err := appendJSONAudit(ctx, tx, entryID, action, details); err != nil {
		return nil, err
	}
	entry.Status = catalogue.StatusCompleted
	if err := tx.SaveEntry(ctx, entry, catalogue.StatusApproved); err != nil {
		return nil, err
	}
	completed := completedDetails{PendingID: entryID, BookID: result.BookID, Action: result.Action}
	if err := appendJSONAudit(ctx, tx, entryID, catalogue.ActionPendingCompleted, completed); err != nil {
		return nil, err
	}

	result.EntryID = entryID
	result.Status = catalogue.StatusCompleted
	return result, nil
}

// completedResult recovers the book id of an earlier successful insertion
// from the audit trail.
func (e *Engine) completedResult(ctx context.Context, tx *catalogue.Tx, entry *catalogue.Entry, logger *slog.Logger) (*Result, error) {
	result := &Result{
		EntryID: entry.ID,
		Action:  ActionAlreadyCompleted,
		Status:  catalogue.StatusCompleted,
		Message: "Pending record already completed",
	}
	audit, err := tx.LatestAudit(ctx, entry.ID, catalogue.ActionInserted, catalogue.ActionCopiesAdded)
	if err != nil {
		return nil, err
	}
	if audit == nil {
		logger.Warn("completed entry has no insertion record",
			logging.String(logging.FieldEventType, "insertion_record_missing"),
		)
		return result, nil
	}
	var recorded struct {
		BookID int64 `json:"book_id"`
	}
	if err := json.Unmarshal([]byte(audit.Details), &recorded); err != nil {
		return nil, fmt.Errorf("decode %s audit %d: %w", audit.Action, audit.ID, err)
	}
	result.BookID = recorded.BookID
	return result, nil
}

// recordFailure writes insert_failed in its own transaction. It is best
// effort: a failure here is logged and the caller still gets the original
// error.
func (e *Engine) recordFailure(ctx context.Context, entryID int64, cause error, logger *slog.Logger) {
	kind := services.Kind(cause)
	logging.ErrorWithContext(logger, "insertion failed", "insert_failed",
		logging.Error(cause),
		logging.String(logging.FieldErrorKind, kind),
	)
	if kind == services.KindNotFound {
		return
	}
	details := failedDetails{Error: cause.Error(), ErrorType: kind}
	auditCtx := context.WithoutCancel(ctx)
	err := e.store.WithTx(auditCtx, func(tx *catalogue.Tx) error {
		return appendJSONAudit(auditCtx, tx, entryID, catalogue.ActionInsertFailed, details)
	})
	if err != nil {
		logging.WarnWithContext(logger, "failed to record insertion failure", "audit_write_failed",
			logging.Error(err),
		)
	}
}

func appendJSONAudit(ctx context.Context, tx *catalogue.Tx, entryID int64, action string, details any) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode %s details: %w", action, err)
	}
	_, err = tx.AppendAudit(ctx, entryID, action, catalogue.SourceInsertionService, string(raw))
	return err
}

// classify keeps client faults and conflicts as they are and marks
// everything else as a storage failure.
func classify(err error) error {
	if errors.Is(err, services.ErrValidation) ||
		errors.Is(err, services.ErrNotFound) ||
		errors.Is(err, services.ErrConflict) ||
		errors.Is(err, services.ErrStorage) {
		return err
	}
	return services.Wrap(services.ErrStorage, "insertion", "insert", "transaction rolled back", err)
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
