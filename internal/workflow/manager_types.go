package workflow

import (
	"strings"

	"accession/internal/catalogue"
)

// IntakeRequest is a new book submission.
type IntakeRequest struct {
	ISBN        string   `json:"isbn" validate:"max=32"`
	Title       string   `json:"title" validate:"required_without=ISBN,max=500"`
	Authors     []string `json:"authors" validate:"max=50,dive,notblank,max=200"`
	TotalCopies int      `json:"total_copies" validate:"gte=1,lte=10000"`
}

func (r *IntakeRequest) normalize() {
	r.ISBN = strings.TrimSpace(r.ISBN)
	r.Title = strings.TrimSpace(r.Title)
	authors := make([]string, 0, len(r.Authors))
	for _, author := range r.Authors {
		authors = append(authors, strings.TrimSpace(author))
	}
	r.Authors = authors
}

// IntakeResult reports the entry created by Intake and how the metadata
// step went.
type IntakeResult struct {
	Entry *catalogue.Entry
	// MetadataFound is true when the entry reached awaiting_confirmation.
	MetadataFound bool
	// MetadataError holds the lookup failure, if any. It never fails Intake.
	MetadataError error
}

// Edits are librarian field changes. Nil fields are left alone. Metadata is
// merged key by key into the entry's metadata document.
type Edits struct {
	Title       *string            `json:"title,omitempty" validate:"omitempty,max=500"`
	Authors     []string           `json:"authors,omitempty" validate:"omitempty,max=50,dive,max=200"`
	ISBN        *string            `json:"isbn,omitempty" validate:"omitempty,max=32"`
	ISBN10      *string            `json:"isbn_10,omitempty" validate:"omitempty,max=32"`
	ISBN13      *string            `json:"isbn_13,omitempty" validate:"omitempty,max=32"`
	TotalCopies *int               `json:"total_copies,omitempty"`
	Metadata    catalogue.Document `json:"raw_metadata,omitempty"`
}

// Empty reports whether e changes nothing.
func (e *Edits) Empty() bool {
	return e == nil || (e.Title == nil && e.Authors == nil && e.ISBN == nil &&
		e.ISBN10 == nil && e.ISBN13 == nil && e.TotalCopies == nil && len(e.Metadata) == 0)
}

// Decision is a librarian's verdict on an entry.
type Decision struct {
	Approved bool   `json:"approved"`
	Edits    *Edits `json:"edits,omitempty"`
	Reason   string `json:"reason,omitempty" validate:"max=2000"`
}
