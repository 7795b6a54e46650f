package metadata

import (
	"context"
	"net/http"
	"strings"

	"accession/internal/catalogue"
	"accession/internal/isbn"
)

// Query is what intake knows about a book before any lookup.
type Query struct {
	ISBN    string   `json:"isbn"`
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
}

// NormalizedISBN returns the cleaned ISBN, or "" when it does not validate.
func (q Query) NormalizedISBN() string {
	value, ok := isbn.Normalize(q.ISBN)
	if !ok {
		return ""
	}
	return value
}

func (q Query) empty() bool {
	return q.NormalizedISBN() == "" && strings.TrimSpace(q.Title) == ""
}

// Fetcher returns a merged metadata document for a query. A nil document
// with a nil error means no provider knew the book.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) (catalogue.Document, error)
}

// Provider is one bibliographic source.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, q Query) (catalogue.Document, error)
}

// HTTPDoer describes the HTTP client used by providers.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
