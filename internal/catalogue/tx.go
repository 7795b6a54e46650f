package catalogue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"accession/internal/isbn"
	"accession/internal/services"
)

// Tx is a write transaction holding the catalogue write lock. It is only
// valid inside the function passed to Store.WithTx.
type Tx struct {
	tx  *sql.Tx
	now func() time.Time
}

// Now returns the transaction clock reading in UTC.
func (t *Tx) Now() time.Time {
	return t.now()
}

// ExecContext runs a statement inside the transaction.
func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

// QueryRowContext runs a single-row query inside the transaction.
func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

// QueryContext runs a query inside the transaction.
func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

// CreateEntry inserts a new entry and fills in its ID and timestamps.
// A blank status defaults to pending.
func (t *Tx) CreateEntry(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("create entry: nil entry")
	}
	if entry.Status == "" {
		entry.Status = StatusPending
	}
	if entry.TotalCopies < 1 {
		return &ValidationError{Field: "total_copies", Message: "must be at least 1"}
	}
	authors, err := encodeAuthors(entry.Authors)
	if err != nil {
		return err
	}
	metadata, err := encodeDocument(entry.Metadata)
	if err != nil {
		return err
	}
	output, err := encodeDocument(entry.Output)
	if err != nil {
		return err
	}
	now := t.Now()
	stamp := formatTime(now)
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO pending_entries (isbn, isbn_10, isbn_13, title, authors_json, total_copies, metadata_json, output_json, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(entry.ISBN),
		nullableString(entry.ISBN10),
		nullableString(entry.ISBN13),
		entry.Title,
		authors,
		entry.TotalCopies,
		metadata,
		output,
		string(entry.Status),
		stamp,
		stamp,
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("entry id: %w", err)
	}
	entry.ID = id
	entry.CreatedAt = parseTimeString(stamp)
	entry.UpdatedAt = entry.CreatedAt
	return nil
}

// LockEntry reads an entry for mutation. The transaction already holds the
// write lock, so the returned state cannot change until it ends.
func (t *Tx) LockEntry(ctx context.Context, id int64) (*Entry, error) {
	row := t.tx.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM pending_entries WHERE id = ?", id)
	entry, err := scanEntry(row)
	if isNoRows(err) {
		return nil, &NotFoundError{EntryID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("lock entry %d: %w", id, err)
	}
	return entry, nil
}

// SaveEntry writes every mutable column of entry, provided its stored status
// still equals expected. It refreshes entry.UpdatedAt.
func (t *Tx) SaveEntry(ctx context.Context, entry *Entry, expected Status) error {
	if entry == nil {
		return fmt.Errorf("save entry: nil entry")
	}
	if entry.TotalCopies < 1 {
		return &ValidationError{EntryID: entry.ID, Field: "total_copies", Message: "must be at least 1"}
	}
	authors, err := encodeAuthors(entry.Authors)
	if err != nil {
		return err
	}
	metadata, err := encodeDocument(entry.Metadata)
	if err != nil {
		return err
	}
	output, err := encodeDocument(entry.Output)
	if err != nil {
		return err
	}
	stamp := formatTime(t.Now())
	res, err := t.tx.ExecContext(ctx,
		`UPDATE pending_entries
		 SET isbn = ?, isbn_10 = ?, isbn_13 = ?, title = ?, authors_json = ?, total_copies = ?,
		     metadata_json = ?, output_json = ?, status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		nullableString(entry.ISBN),
		nullableString(entry.ISBN10),
		nullableString(entry.ISBN13),
		entry.Title,
		authors,
		entry.TotalCopies,
		metadata,
		output,
		string(entry.Status),
		stamp,
		entry.ID,
		string(expected),
	)
	if err != nil {
		return fmt.Errorf("update entry %d: %w", entry.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update entry %d: %w", entry.ID, err)
	}
	if affected == 0 {
		current, lookupErr := t.LockEntry(ctx, entry.ID)
		if lookupErr != nil {
			return lookupErr
		}
		return &StateError{EntryID: entry.ID, Operation: "update", Current: current.Status, Expected: []Status{expected}}
	}
	entry.UpdatedAt = parseTimeString(stamp)
	return nil
}

// AppendAudit records an action. Timestamps never go backwards within one
// entry's trail, even if the clock does.
func (t *Tx) AppendAudit(ctx context.Context, entryID int64, action, source, details string) (AuditEntry, error) {
	audit := AuditEntry{
		EntryID: entryID,
		Action:  action,
		Source:  source,
		Details: details,
	}
	var createdRaw string
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO catalogue_audit (entry_id, action, source, details, created_at)
		 VALUES (?, ?, ?, ?, MAX(?, COALESCE((SELECT MAX(created_at) FROM catalogue_audit WHERE entry_id = ?), '')))
		 RETURNING id, created_at`,
		entryID,
		action,
		source,
		nullableString(details),
		formatTime(t.Now()),
		entryID,
	).Scan(&audit.ID, &createdRaw)
	if err != nil {
		return AuditEntry{}, fmt.Errorf("append audit %s for entry %d: %w", action, entryID, err)
	}
	audit.CreatedAt = parseTimeString(createdRaw)
	return audit, nil
}

// LatestAudit returns the most recent audit entry with one of the given
// actions, or nil when there is none.
func (t *Tx) LatestAudit(ctx context.Context, entryID int64, actions ...string) (*AuditEntry, error) {
	if len(actions) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(actions)+1)
	args = append(args, entryID)
	for _, action := range actions {
		args = append(args, action)
	}
	row := t.tx.QueryRowContext(ctx,
		"SELECT "+auditColumns+" FROM catalogue_audit WHERE entry_id = ? AND action IN ("+makePlaceholders(len(actions))+") ORDER BY created_at DESC, id DESC LIMIT 1",
		args...,
	)
	audit, err := scanAudit(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest audit for entry %d: %w", entryID, err)
	}
	return &audit, nil
}

// FindBookByISBN looks up an existing edition. Precedence: ISBN-13, then
// ISBN-10, then the legacy isbn column against ISBN-13 and ISBN-10.
func (t *Tx) FindBookByISBN(ctx context.Context, pair isbn.Pair) (*Book, error) {
	type probe struct {
		column string
		value  string
	}
	probes := []probe{
		{"isbn_13", pair.ISBN13},
		{"isbn_10", pair.ISBN10},
		{"isbn", pair.ISBN13},
		{"isbn", pair.ISBN10},
	}
	for _, p := range probes {
		if p.value == "" {
			continue
		}
		row := t.tx.QueryRowContext(ctx,
			"SELECT "+bookColumns+" FROM books WHERE "+p.column+" = ? ORDER BY id LIMIT 1",
			p.value,
		)
		book, err := scanBook(row)
		if isNoRows(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find book by %s: %w", p.column, err)
		}
		return book, nil
	}
	return nil, nil
}

// CreateBook inserts a new edition with all copies available.
func (t *Tx) CreateBook(ctx context.Context, book *Book) error {
	if book == nil {
		return fmt.Errorf("create book: nil book")
	}
	if book.AvailableCopies == 0 {
		book.AvailableCopies = book.TotalCopies
	}
	stamp := formatTime(t.Now())
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO books (isbn, isbn_10, isbn_13, title, publisher_id, publication_year, edition, cover_url, total_copies, available_copies, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(book.ISBN),
		nullableString(book.ISBN10),
		nullableString(book.ISBN13),
		book.Title,
		nullableInt64(book.PublisherID),
		nullableInt(book.PublicationYear),
		nullableString(book.Edition),
		nullableString(book.CoverURL),
		book.TotalCopies,
		book.AvailableCopies,
		stamp,
		stamp,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: isbn already catalogued: %w", services.ErrConflict, err)
	}
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("book id: %w", err)
	}
	book.ID = id
	book.CreatedAt = parseTimeString(stamp)
	book.UpdatedAt = book.CreatedAt
	return nil
}

// LinkAuthors associates authors with a book in the given order. Repeated
// ids are linked once at their first position.
func (t *Tx) LinkAuthors(ctx context.Context, bookID int64, authorIDs []int64) error {
	seen := make(map[int64]struct{}, len(authorIDs))
	position := 0
	for _, authorID := range authorIDs {
		if _, dup := seen[authorID]; dup {
			continue
		}
		seen[authorID] = struct{}{}
		if _, err := t.tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO book_authors (book_id, author_id, position) VALUES (?, ?, ?)",
			bookID, authorID, position,
		); err != nil {
			return fmt.Errorf("link author %d to book %d: %w", authorID, bookID, err)
		}
		position++
	}
	return nil
}

// AddCopies increases both copy counts of a book and returns the updated row.
func (t *Tx) AddCopies(ctx context.Context, bookID int64, copies int) (*Book, error) {
	if copies < 1 {
		return nil, &ValidationError{Field: "total_copies", Message: "must be at least 1"}
	}
	row := t.tx.QueryRowContext(ctx,
		`UPDATE books
		 SET total_copies = total_copies + ?, available_copies = available_copies + ?, updated_at = ?
		 WHERE id = ?
		 RETURNING `+bookColumns,
		copies, copies, formatTime(t.Now()), bookID,
	)
	book, err := scanBook(row)
	if isNoRows(err) {
		return nil, fmt.Errorf("add copies: book %d not found", bookID)
	}
	if err != nil {
		return nil, fmt.Errorf("add copies to book %d: %w", bookID, err)
	}
	return book, nil
}
