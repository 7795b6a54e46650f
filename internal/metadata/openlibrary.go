package metadata

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"accession/internal/catalogue"
)

const (
	openLibraryName  = "openlibrary"
	maxSubjectCount  = 10
	openLibraryDelay = 250 * time.Millisecond
)

var yearPattern = regexp.MustCompile(`\b(1[5-9]\d{2}|20\d{2})\b`)

// OpenLibrary looks books up by ISBN through the Open Library Books API.
type OpenLibrary struct {
	baseURL string
	req     requester
}

// NewOpenLibrary constructs an Open Library provider.
func NewOpenLibrary(baseURL string, client HTTPDoer, attempts int) *OpenLibrary {
	return &OpenLibrary{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		req: requester{
			provider: openLibraryName,
			client:   client,
			attempts: attempts,
			delay:    openLibraryDelay,
		},
	}
}

func (o *OpenLibrary) Name() string { return openLibraryName }

type openLibraryNamed struct {
	Name string `json:"name"`
}

type openLibraryBook struct {
	Title       string             `json:"title"`
	Subtitle    string             `json:"subtitle"`
	Authors     []openLibraryNamed `json:"authors"`
	Publishers  []openLibraryNamed `json:"publishers"`
	PublishDate string             `json:"publish_date"`
	Subjects    []openLibraryNamed `json:"subjects"`
	Identifiers struct {
		ISBN10 []string `json:"isbn_10"`
		ISBN13 []string `json:"isbn_13"`
	} `json:"identifiers"`
	Cover struct {
		Small  string `json:"small"`
		Medium string `json:"medium"`
		Large  string `json:"large"`
	} `json:"cover"`
	Notes any `json:"notes"`
}

// Lookup returns nil without a request when q carries no usable ISBN.
func (o *OpenLibrary) Lookup(ctx context.Context, q Query) (catalogue.Document, error) {
	code := q.NormalizedISBN()
	if code == "" {
		return nil, nil
	}
	params := url.Values{}
	params.Set("bibkeys", "ISBN:"+code)
	params.Set("format", "json")
	params.Set("jscmd", "data")

	var payload map[string]openLibraryBook
	err := o.req.getJSON(ctx, o.baseURL+"/api/books?"+params.Encode(), &payload)
	if errors.Is(err, errNoRecord) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	book, ok := payload["ISBN:"+code]
	if !ok || strings.TrimSpace(book.Title) == "" {
		return nil, nil
	}
	return book.document(), nil
}

func (b openLibraryBook) document() catalogue.Document {
	doc := catalogue.Document{
		catalogue.KeySource: openLibraryName,
	}
	title := strings.TrimSpace(b.Title)
	if subtitle := strings.TrimSpace(b.Subtitle); subtitle != "" {
		title += ": " + subtitle
	}
	doc[catalogue.KeyTitle] = title
	if authors := names(b.Authors); len(authors) > 0 {
		doc[catalogue.KeyAuthors] = authors
	}
	if publishers := names(b.Publishers); len(publishers) > 0 {
		doc[catalogue.KeyPublisher] = publishers[0]
	}
	if year, ok := parseYear(b.PublishDate); ok {
		doc[catalogue.KeyPublicationYear] = year
	}
	if len(b.Identifiers.ISBN10) > 0 {
		doc[catalogue.KeyISBN10] = b.Identifiers.ISBN10[0]
	}
	if len(b.Identifiers.ISBN13) > 0 {
		doc[catalogue.KeyISBN13] = b.Identifiers.ISBN13[0]
	}
	for _, cover := range []string{b.Cover.Large, b.Cover.Medium, b.Cover.Small} {
		if cover != "" {
			doc[catalogue.KeyCoverURL] = cover
			break
		}
	}
	if subjects := names(b.Subjects); len(subjects) > 0 {
		if len(subjects) > maxSubjectCount {
			subjects = subjects[:maxSubjectCount]
		}
		doc[catalogue.KeyCategories] = subjects
	}
	switch notes := b.Notes.(type) {
	case string:
		if notes != "" {
			doc[catalogue.KeyDescription] = notes
		}
	case map[string]any:
		if value, ok := notes["value"].(string); ok && value != "" {
			doc[catalogue.KeyDescription] = value
		}
	}
	return doc
}

func names(items []openLibraryNamed) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if name := strings.TrimSpace(item.Name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// parseYear pulls a four-digit year out of free-form dates like
// "March 2008" or "2008-08-01".
func parseYear(value string) (int, bool) {
	match := yearPattern.FindString(value)
	if match == "" {
		return 0, false
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return year, true
}
