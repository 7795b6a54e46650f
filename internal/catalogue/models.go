package catalogue

import "time"

// Audit action tags. The vocabulary is open; these are the tags written by
// this module.
const (
	ActionInputReceived            = "input_received"
	ActionMetadataExtracted        = "metadata_extracted"
	ActionMetadataExtractionFailed = "metadata_extraction_failed"
	ActionPendingEdited            = "pending_edited"
	ActionApproved                 = "approved"
	ActionRejected                 = "rejected"
	ActionInserted                 = "inserted"
	ActionCopiesAdded              = "copies_added"
	ActionInsertFailed             = "insert_failed"
	ActionPendingCompleted         = "pending_completed"
)

// Audit source tags.
const (
	SourceFrontend         = "frontend"
	SourceLibrarian        = "librarian"
	SourceMetadataPipeline = "metadata_pipeline"
	SourceInsertionService = "insertion_service"
)

// Entry is a candidate book submission moving through the confirmation
// workflow. Entries are never deleted.
type Entry struct {
	ID          int64
	ISBN        string
	ISBN10      string
	ISBN13      string
	Title       string
	Authors     []string
	TotalCopies int
	// Metadata is the fetched and/or hand-edited document. Nil until the
	// metadata step or an edit populates it.
	Metadata Document
	// Output is the finalized document, present only once approved.
	Output    Document
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuditEntry is one immutable fact about an action taken on an Entry.
type AuditEntry struct {
	ID        int64
	EntryID   int64
	Action    string
	Source    string
	Details   string
	CreatedAt time.Time
}

// Book is a canonical catalogue record for one edition.
type Book struct {
	ID     int64
	ISBN   string
	ISBN10 string
	ISBN13 string
	Title  string
	// PublisherID is zero when the publisher is unknown.
	PublisherID     int64
	PublicationYear int
	Edition         string
	CoverURL        string
	TotalCopies     int
	AvailableCopies int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Author is a shared reference entity keyed by normalized full name.
type Author struct {
	ID       int64
	FullName string
}

// Publisher is a shared reference entity keyed by normalized name.
type Publisher struct {
	ID   int64
	Name string
}
