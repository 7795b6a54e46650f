package enrichment_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"accession/internal/enrichment"
	"accession/internal/logging"
	"accession/internal/testsupport"
)

func TestWebhookPostsBookID(t *testing.T) {
	var body []byte
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		contentType = r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	handler := enrichment.NewWebhookHandler(srv.URL, srv.Client(), 1)
	if err := handler.Handle(context.Background(), 42); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if contentType != "application/json" {
		t.Fatalf("unexpected content type %q", contentType)
	}
	var payload map[string]int64
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode payload %q: %v", body, err)
	}
	if payload["book_id"] != 42 {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestWebhookRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	handler := enrichment.NewWebhookHandler(srv.URL, srv.Client(), 3)
	if err := handler.Handle(context.Background(), 7); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
}

func TestWebhookDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "unknown book", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	handler := enrichment.NewWebhookHandler(srv.URL, srv.Client(), 5)
	if err := handler.Handle(context.Background(), 7); err == nil {
		t.Fatal("expected error for 422 response")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single call, got %d", got)
	}
}

func TestDispatcherServeRunsJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[int64]bool{}
	done := make(chan struct{}, 3)
	handler := enrichment.HandlerFunc(func(_ context.Context, bookID int64) error {
		mu.Lock()
		seen[bookID] = true
		mu.Unlock()
		done <- struct{}{}
		return nil
	})
	dispatcher := enrichment.NewDispatcher(handler, enrichment.Options{QueueSize: 8, Workers: 2}, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- dispatcher.Serve(ctx) }()

	for _, id := range []int64{1, 2, 3} {
		dispatcher.Enqueue(id)
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	cancel()
	if err := <-served; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled from Serve, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Fatalf("expected 3 distinct jobs, got %v", seen)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	var handled atomic.Int32
	handler := enrichment.HandlerFunc(func(context.Context, int64) error {
		handled.Add(1)
		return nil
	})
	dispatcher := enrichment.NewDispatcher(handler, enrichment.Options{QueueSize: 1, Workers: 1}, logging.NewNop())

	dispatcher.Enqueue(1)
	dispatcher.Enqueue(2)
	if got := dispatcher.Pending(); got != 1 {
		t.Fatalf("expected 1 queued job, got %d", got)
	}

	dispatcher.Drain(context.Background())
	if got := handled.Load(); got != 1 {
		t.Fatalf("expected 1 handled job, got %d", got)
	}

	dispatcher.Enqueue(3)
	if got := dispatcher.Pending(); got != 0 {
		t.Fatalf("enqueue after drain must be dropped, %d queued", got)
	}
}

func TestDispatcherSurvivesHandlerFailures(t *testing.T) {
	var handled atomic.Int32
	handler := enrichment.HandlerFunc(func(_ context.Context, bookID int64) error {
		handled.Add(1)
		switch bookID {
		case 1:
			return errors.New("enrichment backend down")
		case 2:
			panic("handler bug")
		}
		return nil
	})
	dispatcher := enrichment.NewDispatcher(handler, enrichment.Options{QueueSize: 4, Workers: 1}, logging.NewNop())
	for _, id := range []int64{1, 2, 3} {
		dispatcher.Enqueue(id)
	}
	dispatcher.Drain(context.Background())
	if got := handled.Load(); got != 3 {
		t.Fatalf("expected all 3 jobs attempted, got %d", got)
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if d := enrichment.NewFromConfig(cfg, logging.NewNop()); d != nil {
		t.Fatal("expected nil dispatcher when enrichment is disabled")
	}

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg = testsupport.NewConfig(t, testsupport.WithEnrichmentWebhook(srv.URL))
	dispatcher := enrichment.NewFromConfig(cfg, logging.NewNop())
	if dispatcher == nil {
		t.Fatal("expected dispatcher when a webhook is configured")
	}
	dispatcher.Enqueue(9)
	dispatcher.Drain(context.Background())
	if calls.Load() != 1 {
		t.Fatalf("expected webhook delivery, got %d calls", calls.Load())
	}
}
