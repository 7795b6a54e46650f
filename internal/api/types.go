package api

import "accession/internal/catalogue"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000000Z07:00"

// Entry describes a pending catalogue entry in a transport-friendly format.
type Entry struct {
	ID          int64              `json:"id"`
	ISBN        string             `json:"isbn,omitempty"`
	ISBN10      string             `json:"isbn_10,omitempty"`
	ISBN13      string             `json:"isbn_13,omitempty"`
	Title       string             `json:"title"`
	Authors     []string           `json:"authors"`
	TotalCopies int                `json:"total_copies"`
	Status      string             `json:"status"`
	Metadata    catalogue.Document `json:"raw_metadata,omitempty"`
	Output      catalogue.Document `json:"output,omitempty"`
	CreatedAt   string             `json:"created_at,omitempty"`
	UpdatedAt   string             `json:"updated_at,omitempty"`
}

// AuditEntry is one row of an entry's audit trail.
type AuditEntry struct {
	ID        int64  `json:"id"`
	EntryID   int64  `json:"pending_id"`
	Action    string `json:"action"`
	Source    string `json:"source"`
	Details   string `json:"details"`
	CreatedAt string `json:"created_at"`
}

// IntakeResponse reports a newly submitted entry.
type IntakeResponse struct {
	Entry         Entry  `json:"entry"`
	MetadataFound bool   `json:"metadata_found"`
	MetadataError string `json:"metadata_error,omitempty"`
}

// LookupResponse previews a metadata fetch.
type LookupResponse struct {
	Found    bool               `json:"found"`
	Metadata catalogue.Document `json:"metadata,omitempty"`
}

// InsertResult reports the outcome of materializing an approved entry.
type InsertResult struct {
	Success         bool   `json:"success"`
	PendingID       int64  `json:"pending_id"`
	BookID          int64  `json:"book_id,omitempty"`
	Action          string `json:"action"`
	Status          string `json:"status"`
	Message         string `json:"message"`
	TotalCopies     int    `json:"total_copies,omitempty"`
	AvailableCopies int    `json:"available_copies,omitempty"`
}

// StatsResponse provides entry counts for every status.
type StatsResponse struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// EntryListResponse wraps a collection of entries.
type EntryListResponse struct {
	Items []Entry `json:"items"`
}

// AuditTrailResponse wraps an entry's audit trail.
type AuditTrailResponse struct {
	Items []AuditEntry `json:"items"`
}

// ErrorBody is the error envelope returned by the HTTP API.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail names the error kind and carries a human readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
