package catalogue

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// timestampLayout is fixed width so lexical order in SQLite matches time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const entryColumns = "id, isbn, isbn_10, isbn_13, title, authors_json, total_copies, metadata_json, output_json, status, created_at, updated_at"

const auditColumns = "id, entry_id, action, source, details, created_at"

const bookColumns = "id, isbn, isbn_10, isbn_13, title, publisher_id, publication_year, edition, cover_url, total_copies, available_copies, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(scanner rowScanner) (*Entry, error) {
	var (
		entry       Entry
		isbnRaw     sql.NullString
		isbn10      sql.NullString
		isbn13      sql.NullString
		authorsRaw  string
		metadataRaw sql.NullString
		outputRaw   sql.NullString
		statusRaw   string
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&entry.ID,
		&isbnRaw,
		&isbn10,
		&isbn13,
		&entry.Title,
		&authorsRaw,
		&entry.TotalCopies,
		&metadataRaw,
		&outputRaw,
		&statusRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	entry.ISBN = isbnRaw.String
	entry.ISBN10 = isbn10.String
	entry.ISBN13 = isbn13.String
	entry.Status = Status(statusRaw)
	if err := json.Unmarshal([]byte(authorsRaw), &entry.Authors); err != nil {
		return nil, fmt.Errorf("decode authors for entry %d: %w", entry.ID, err)
	}
	var err error
	if entry.Metadata, err = ParseDocument([]byte(metadataRaw.String)); err != nil {
		return nil, fmt.Errorf("entry %d metadata: %w", entry.ID, err)
	}
	if entry.Output, err = ParseDocument([]byte(outputRaw.String)); err != nil {
		return nil, fmt.Errorf("entry %d output: %w", entry.ID, err)
	}
	entry.CreatedAt = parseTimeString(createdRaw)
	entry.UpdatedAt = parseTimeString(updatedRaw)
	return &entry, nil
}

func scanAudit(scanner rowScanner) (AuditEntry, error) {
	var (
		audit      AuditEntry
		details    sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(&audit.ID, &audit.EntryID, &audit.Action, &audit.Source, &details, &createdRaw); err != nil {
		return AuditEntry{}, err
	}
	audit.Details = details.String
	audit.CreatedAt = parseTimeString(createdRaw)
	return audit, nil
}

func scanBook(scanner rowScanner) (*Book, error) {
	var (
		book        Book
		isbnRaw     sql.NullString
		isbn10      sql.NullString
		isbn13      sql.NullString
		publisherID sql.NullInt64
		year        sql.NullInt64
		edition     sql.NullString
		coverURL    sql.NullString
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&book.ID,
		&isbnRaw,
		&isbn10,
		&isbn13,
		&book.Title,
		&publisherID,
		&year,
		&edition,
		&coverURL,
		&book.TotalCopies,
		&book.AvailableCopies,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	book.ISBN = isbnRaw.String
	book.ISBN10 = isbn10.String
	book.ISBN13 = isbn13.String
	book.PublisherID = publisherID.Int64
	book.PublicationYear = int(year.Int64)
	book.Edition = edition.String
	book.CoverURL = coverURL.String
	book.CreatedAt = parseTimeString(createdRaw)
	book.UpdatedAt = parseTimeString(updatedRaw)
	return &book, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt64(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimeString(value string) time.Time {
	if t, err := time.Parse(timestampLayout, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

func encodeAuthors(authors []string) (string, error) {
	if authors == nil {
		authors = []string{}
	}
	raw, err := json.Marshal(authors)
	if err != nil {
		return "", fmt.Errorf("encode authors: %w", err)
	}
	return string(raw), nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

const sqliteConstraintUnique = 2067

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteConstraintUnique {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
