package metadata

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"accession/internal/catalogue"
)

const (
	googleBooksName  = "googlebooks"
	googleBooksDelay = 250 * time.Millisecond
)

// GoogleBooks searches the Google Books volumes API by ISBN or by title and
// author.
type GoogleBooks struct {
	baseURL string
	apiKey  string
	req     requester
}

// NewGoogleBooks constructs a Google Books provider. apiKey may be empty.
func NewGoogleBooks(baseURL, apiKey string, client HTTPDoer, attempts int) *GoogleBooks {
	return &GoogleBooks{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		req: requester{
			provider: googleBooksName,
			client:   client,
			attempts: attempts,
			delay:    googleBooksDelay,
		},
	}
}

func (g *GoogleBooks) Name() string { return googleBooksName }

type googleVolumes struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo googleVolumeInfo `json:"volumeInfo"`
	} `json:"items"`
}

type googleVolumeInfo struct {
	Title               string   `json:"title"`
	Subtitle            string   `json:"subtitle"`
	Authors             []string `json:"authors"`
	Publisher           string   `json:"publisher"`
	PublishedDate       string   `json:"publishedDate"`
	Description         string   `json:"description"`
	Categories          []string `json:"categories"`
	IndustryIdentifiers []struct {
		Type       string `json:"type"`
		Identifier string `json:"identifier"`
	} `json:"industryIdentifiers"`
	ImageLinks struct {
		SmallThumbnail string `json:"smallThumbnail"`
		Thumbnail      string `json:"thumbnail"`
	} `json:"imageLinks"`
}

// Lookup searches by ISBN when q has one, otherwise by title and authors.
func (g *GoogleBooks) Lookup(ctx context.Context, q Query) (catalogue.Document, error) {
	search := searchTerms(q)
	if search == "" {
		return nil, nil
	}
	params := url.Values{}
	params.Set("q", search)
	params.Set("maxResults", "1")
	if g.apiKey != "" {
		params.Set("key", g.apiKey)
	}

	var payload googleVolumes
	err := g.req.getJSON(ctx, g.baseURL+"/books/v1/volumes?"+params.Encode(), &payload)
	if errors.Is(err, errNoRecord) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(payload.Items) == 0 || strings.TrimSpace(payload.Items[0].VolumeInfo.Title) == "" {
		return nil, nil
	}
	return payload.Items[0].VolumeInfo.document(), nil
}

func searchTerms(q Query) string {
	if code := q.NormalizedISBN(); code != "" {
		return "isbn:" + code
	}
	title := strings.TrimSpace(q.Title)
	if title == "" {
		return ""
	}
	terms := []string{"intitle:" + title}
	for _, author := range q.Authors {
		if author = strings.TrimSpace(author); author != "" {
			terms = append(terms, "inauthor:"+author)
			break
		}
	}
	return strings.Join(terms, "+")
}

func (v googleVolumeInfo) document() catalogue.Document {
	doc := catalogue.Document{
		catalogue.KeySource: googleBooksName,
	}
	title := strings.TrimSpace(v.Title)
	if subtitle := strings.TrimSpace(v.Subtitle); subtitle != "" {
		title += ": " + subtitle
	}
	doc[catalogue.KeyTitle] = title
	if len(v.Authors) > 0 {
		doc[catalogue.KeyAuthors] = append([]string(nil), v.Authors...)
	}
	if publisher := strings.TrimSpace(v.Publisher); publisher != "" {
		doc[catalogue.KeyPublisher] = publisher
	}
	if year, ok := parseYear(v.PublishedDate); ok {
		doc[catalogue.KeyPublicationYear] = year
	}
	if description := strings.TrimSpace(v.Description); description != "" {
		doc[catalogue.KeyDescription] = description
	}
	if len(v.Categories) > 0 {
		doc[catalogue.KeyCategories] = append([]string(nil), v.Categories...)
	}
	for _, id := range v.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_10":
			doc[catalogue.KeyISBN10] = id.Identifier
		case "ISBN_13":
			doc[catalogue.KeyISBN13] = id.Identifier
		}
	}
	cover := v.ImageLinks.Thumbnail
	if cover == "" {
		cover = v.ImageLinks.SmallThumbnail
	}
	if cover != "" {
		doc[catalogue.KeyCoverURL] = strings.Replace(cover, "http://", "https://", 1)
	}
	return doc
}
