package catalogue

import (
	"context"
	"fmt"
)

// GetEntry returns the entry with id, or nil when it does not exist.
func (s *Store) GetEntry(ctx context.Context, id int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM pending_entries WHERE id = ?", id)
	entry, err := scanEntry(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %d: %w", id, err)
	}
	return entry, nil
}

// ListEntries returns entries oldest first, optionally filtered by status.
func (s *Store) ListEntries(ctx context.Context, statuses ...Status) ([]*Entry, error) {
	query := "SELECT " + entryColumns + " FROM pending_entries"
	var args []any
	if len(statuses) > 0 {
		query += " WHERE status IN (" + makePlaceholders(len(statuses)) + ")"
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// AuditTrail returns an entry's audit history in chronological order.
func (s *Store) AuditTrail(ctx context.Context, entryID int64) ([]AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+auditColumns+" FROM catalogue_audit WHERE entry_id = ? ORDER BY created_at, id",
		entryID,
	)
	if err != nil {
		return nil, fmt.Errorf("audit trail for entry %d: %w", entryID, err)
	}
	defer rows.Close()

	var trail []AuditEntry
	for rows.Next() {
		audit, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		trail = append(trail, audit)
	}
	return trail, rows.Err()
}

// Stats returns entry counts keyed by status. Every known status is present.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM pending_entries GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("entry stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int, len(allStatuses))
	for _, status := range allStatuses {
		stats[status] = 0
	}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// GetBook returns the book with id, or nil when it does not exist.
func (s *Store) GetBook(ctx context.Context, id int64) (*Book, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+bookColumns+" FROM books WHERE id = ?", id)
	book, err := scanBook(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get book %d: %w", id, err)
	}
	return book, nil
}

// CountBooks returns the number of catalogued editions.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM books").Scan(&count); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return count, nil
}

// BookAuthors returns a book's authors in credit order.
func (s *Store) BookAuthors(ctx context.Context, bookID int64) ([]Author, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.full_name FROM book_authors ba
		 JOIN authors a ON a.id = ba.author_id
		 WHERE ba.book_id = ?
		 ORDER BY ba.position`,
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("book authors for %d: %w", bookID, err)
	}
	defer rows.Close()

	var authors []Author
	for rows.Next() {
		var author Author
		if err := rows.Scan(&author.ID, &author.FullName); err != nil {
			return nil, err
		}
		authors = append(authors, author)
	}
	return authors, rows.Err()
}

// GetPublisher returns the publisher with id, or nil when it does not exist.
func (s *Store) GetPublisher(ctx context.Context, id int64) (*Publisher, error) {
	if id == 0 {
		return nil, nil
	}
	var publisher Publisher
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM publishers WHERE id = ?", id).Scan(&publisher.ID, &publisher.Name)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get publisher %d: %w", id, err)
	}
	return &publisher, nil
}

// CountAuthors returns the number of distinct author records.
func (s *Store) CountAuthors(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM authors").Scan(&count); err != nil {
		return 0, fmt.Errorf("count authors: %w", err)
	}
	return count, nil
}
