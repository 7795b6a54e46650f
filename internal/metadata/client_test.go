package metadata_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"accession/internal/catalogue"
	"accession/internal/logging"
	"accession/internal/metadata"
	"accession/internal/services"
)

const openLibraryPayload = `{
  "ISBN:9780132350884": {
    "title": "Clean Code",
    "subtitle": "A Handbook of Agile Software Craftsmanship",
    "authors": [{"name": "Robert C. Martin"}],
    "publishers": [{"name": "Prentice Hall"}],
    "publish_date": "August 2008",
    "identifiers": {"isbn_10": ["0132350882"], "isbn_13": ["9780132350884"]},
    "cover": {"large": "https://covers.openlibrary.org/b/id/1-L.jpg"}
  }
}`

const googleBooksPayload = `{
  "totalItems": 1,
  "items": [{
    "volumeInfo": {
      "title": "Clean Code",
      "authors": ["Robert C. Martin"],
      "publisher": "Pearson Education",
      "publishedDate": "2008-08-01",
      "description": "A book about writing readable code.",
      "categories": ["Computers"],
      "industryIdentifiers": [{"type": "ISBN_13", "identifier": "9780132350884"}],
      "imageLinks": {"thumbnail": "http://books.google.com/cover.jpg"}
    }
  }]
}`

func newProviderServer(t *testing.T, olStatus int, gbBody string) (*httptest.Server, *int32, *int32) {
	t.Helper()
	var olCalls, gbCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/books":
			atomic.AddInt32(&olCalls, 1)
			if got := r.URL.Query().Get("bibkeys"); got != "ISBN:9780132350884" {
				t.Errorf("unexpected bibkeys %q", got)
			}
			w.WriteHeader(olStatus)
			if olStatus == http.StatusOK {
				_, _ = w.Write([]byte(openLibraryPayload))
			}
		case "/books/v1/volumes":
			atomic.AddInt32(&gbCalls, 1)
			_, _ = w.Write([]byte(gbBody))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server, &olCalls, &gbCalls
}

func newClient(baseURL string, cache *metadata.Cache) *metadata.Client {
	httpClient := &http.Client{Timeout: 5 * time.Second}
	return metadata.NewClient(
		metadata.NewOpenLibrary(baseURL, httpClient, 1),
		metadata.NewGoogleBooks(baseURL, "", httpClient, 1),
		metadata.BreakerSettings{FailureThreshold: 3, OpenTimeout: time.Minute},
		cache,
		logging.NewNop(),
	)
}

func TestFetchMergesPrimaryAndFallback(t *testing.T) {
	server, _, _ := newProviderServer(t, http.StatusOK, googleBooksPayload)
	client := newClient(server.URL, nil)

	doc, err := client.Fetch(context.Background(), metadata.Query{ISBN: "978-0-13-235088-4"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if doc == nil {
		t.Fatal("expected merged document")
	}
	if got := doc.String(catalogue.KeyPublisher); got != "Prentice Hall" {
		t.Fatalf("expected primary publisher to win, got %q", got)
	}
	if got := doc.String(catalogue.KeyDescription); got != "A book about writing readable code." {
		t.Fatalf("expected fallback description to fill gap, got %q", got)
	}
	if got := doc.String(catalogue.KeyPublicationYear); got != "2008" {
		t.Fatalf("unexpected year %q", got)
	}
	if got := doc.String(catalogue.KeySource); got != "openlibrary+googlebooks" {
		t.Fatalf("unexpected source %q", got)
	}
	if got := doc.String(catalogue.KeyISBN10); got != "0132350882" {
		t.Fatalf("unexpected isbn_10 %q", got)
	}
}

func TestFetchWithoutISBNSkipsOpenLibrary(t *testing.T) {
	server, olCalls, gbCalls := newProviderServer(t, http.StatusOK, googleBooksPayload)
	client := newClient(server.URL, nil)

	doc, err := client.Fetch(context.Background(), metadata.Query{Title: "Clean Code", Authors: []string{"Robert C. Martin"}})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if doc.String(catalogue.KeySource) != "googlebooks" {
		t.Fatalf("unexpected source %q", doc.String(catalogue.KeySource))
	}
	if atomic.LoadInt32(olCalls) != 0 || atomic.LoadInt32(gbCalls) != 1 {
		t.Fatalf("unexpected call counts ol=%d gb=%d", *olCalls, *gbCalls)
	}
}

func TestFetchNoResult(t *testing.T) {
	server, _, _ := newProviderServer(t, http.StatusNotFound, `{"totalItems": 0}`)
	client := newClient(server.URL, nil)

	doc, err := client.Fetch(context.Background(), metadata.Query{ISBN: "9780132350884"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if doc != nil {
		t.Fatalf("expected no result, got %v", doc)
	}
}

func TestFetchAllProvidersFailingIsExternalError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()
	client := newClient(server.URL, nil)

	_, err := client.Fetch(context.Background(), metadata.Query{ISBN: "9780132350884"})
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected external error, got %v", err)
	}
}

func TestFetchUsesCacheForISBNQueries(t *testing.T) {
	server, olCalls, _ := newProviderServer(t, http.StatusOK, googleBooksPayload)
	cache, err := metadata.OpenCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	client := newClient(server.URL, cache)
	defer client.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		doc, err := client.Fetch(ctx, metadata.Query{ISBN: "9780132350884"})
		if err != nil {
			t.Fatalf("Fetch %d: %v", i, err)
		}
		if doc.String(catalogue.KeyTitle) == "" {
			t.Fatalf("Fetch %d: missing title", i)
		}
	}
	if got := atomic.LoadInt32(olCalls); got != 1 {
		t.Fatalf("expected second fetch to hit cache, open library called %d times", got)
	}
}

func TestMergeFillsFromQuery(t *testing.T) {
	fallback := catalogue.Document{"source": "googlebooks", "publisher": "Tor"}
	merged := metadata.Merge(nil, fallback, metadata.Query{ISBN: "0-13-235088-2", Title: "Given Title", Authors: []string{"Given Author"}})
	if merged.String(catalogue.KeyTitle) != "Given Title" {
		t.Fatalf("expected query title, got %v", merged)
	}
	if merged.String(catalogue.KeyISBN10) != "0132350882" {
		t.Fatalf("expected query isbn in isbn_10 slot, got %v", merged)
	}
	if merged.Has(catalogue.KeyISBN13) {
		t.Fatalf("did not expect isbn_13, got %v", merged)
	}
	if metadata.Merge(nil, nil, metadata.Query{Title: "x"}) != nil {
		t.Fatal("expected nil merge when both providers are empty")
	}
}
