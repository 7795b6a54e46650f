package api

import (
	"errors"
	"time"

	"accession/internal/catalogue"
	"accession/internal/insertion"
	"accession/internal/services"
)

// FromEntry converts a catalogue entry to its API representation.
func FromEntry(entry *catalogue.Entry) Entry {
	if entry == nil {
		return Entry{}
	}
	authors := entry.Authors
	if authors == nil {
		authors = []string{}
	}
	return Entry{
		ID:          entry.ID,
		ISBN:        entry.ISBN,
		ISBN10:      entry.ISBN10,
		ISBN13:      entry.ISBN13,
		Title:       entry.Title,
		Authors:     authors,
		TotalCopies: entry.TotalCopies,
		Status:      string(entry.Status),
		Metadata:    entry.Metadata,
		Output:      entry.Output,
		CreatedAt:   formatTime(entry.CreatedAt),
		UpdatedAt:   formatTime(entry.UpdatedAt),
	}
}

// FromEntries converts a slice of entries, preserving order.
func FromEntries(entries []*catalogue.Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromEntry(entry))
	}
	return out
}

// FromAuditEntries converts an audit trail, preserving order.
func FromAuditEntries(entries []catalogue.AuditEntry) []AuditEntry {
	out := make([]AuditEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, AuditEntry{
			ID:        entry.ID,
			EntryID:   entry.EntryID,
			Action:    entry.Action,
			Source:    entry.Source,
			Details:   entry.Details,
			CreatedAt: formatTime(entry.CreatedAt),
		})
	}
	return out
}

// FromInsertResult converts an insertion outcome.
func FromInsertResult(result *insertion.Result) InsertResult {
	if result == nil {
		return InsertResult{}
	}
	return InsertResult{
		Success:         true,
		PendingID:       result.EntryID,
		BookID:          result.BookID,
		Action:          string(result.Action),
		Status:          string(result.Status),
		Message:         result.Message,
		TotalCopies:     result.TotalCopies,
		AvailableCopies: result.AvailableCopies,
	}
}

// MergeStats returns counts for every status, including zeros.
func MergeStats(stats map[catalogue.Status]int) StatsResponse {
	out := StatsResponse{Counts: make(map[string]int, len(stats))}
	for _, status := range catalogue.AllStatuses() {
		out.Counts[string(status)] = stats[status]
		out.Total += stats[status]
	}
	return out
}

// ErrorFor builds the error envelope for err.
func ErrorFor(err error) ErrorBody {
	if err == nil {
		return ErrorBody{}
	}
	return ErrorBody{Error: ErrorDetail{Code: services.Kind(err), Message: err.Error()}}
}

// StateDetail extracts the current and permitted statuses from an
// invalid-state error.
func StateDetail(err error) (current string, expected []string, ok bool) {
	var stateErr *catalogue.StateError
	if !errors.As(err, &stateErr) {
		return "", nil, false
	}
	expected = make([]string, 0, len(stateErr.Expected))
	for _, status := range stateErr.Expected {
		expected = append(expected, string(status))
	}
	return string(stateErr.Current), expected, true
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
