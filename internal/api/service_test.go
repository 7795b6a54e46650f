package api_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"accession/internal/api"
	"accession/internal/logging"
	"accession/internal/metadata"
	"accession/internal/services"
	"accession/internal/testsupport"
	"accession/internal/workflow"
)

const openLibraryCleanCode = `{"ISBN:9780132350884": {
	"title": "Clean Code",
	"authors": [{"name": "Robert C. Martin"}],
	"publishers": [{"name": "Prentice Hall"}],
	"publish_date": "August 2008",
	"identifiers": {"isbn_13": ["9780132350884"], "isbn_10": ["0132350882"]}
}}`

func newProviderServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/books"):
			_, _ = io.WriteString(w, openLibraryCleanCode)
		case strings.HasPrefix(r.URL.Path, "/books/v1/volumes"):
			_, _ = io.WriteString(w, `{"totalItems": 0, "items": []}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRuntimeEndToEnd(t *testing.T) {
	providers := newProviderServer(t)
	var webhookCalls atomic.Int32
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		webhookCalls.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer webhook.Close()

	cfg := testsupport.NewConfig(t,
		testsupport.WithMetadataServer(providers.URL),
		testsupport.WithEnrichmentWebhook(webhook.URL),
	)
	rt, err := api.OpenRuntime(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("OpenRuntime: %v", err)
	}
	ctx := context.Background()
	svc := rt.Service

	intake, err := svc.Intake(ctx, workflow.IntakeRequest{ISBN: "978-0-13-235088-4", TotalCopies: 2})
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}
	if !intake.MetadataFound || intake.Entry.Status != "awaiting_confirmation" {
		t.Fatalf("unexpected intake response %#v", intake)
	}
	if intake.Entry.Metadata.String("publisher") != "Prentice Hall" {
		t.Fatalf("expected fetched publisher, got %v", intake.Entry.Metadata)
	}

	pending, err := svc.List(ctx)
	if err != nil || len(pending) != 1 || pending[0].ID != intake.Entry.ID {
		t.Fatalf("unexpected pending list %#v (%v)", pending, err)
	}

	edition := "1st"
	confirmed, err := svc.Confirm(ctx, intake.Entry.ID, workflow.Decision{
		Approved: true,
		Edits:    &workflow.Edits{Metadata: map[string]any{"edition": edition}},
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if confirmed.Status != "approved" || confirmed.Output.String("edition") != edition {
		t.Fatalf("unexpected confirmed entry %#v", confirmed)
	}

	inserted, err := svc.Insert(ctx, intake.Entry.ID)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !inserted.Success || inserted.Action != "inserted" || inserted.TotalCopies != 2 {
		t.Fatalf("unexpected insert result %#v", inserted)
	}

	trail, err := svc.AuditTrail(ctx, intake.Entry.ID)
	if err != nil {
		t.Fatalf("AuditTrail: %v", err)
	}
	actions := make([]string, 0, len(trail))
	for _, entry := range trail {
		actions = append(actions, entry.Action)
	}
	want := "input_received,metadata_extracted,approved,inserted,pending_completed"
	if got := strings.Join(actions, ","); got != want {
		t.Fatalf("unexpected audit actions\n got: %s\nwant: %s", got, want)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Counts["completed"] != 1 || stats.Total != 1 || len(stats.Counts) != 6 {
		t.Fatalf("unexpected stats %#v", stats)
	}

	if err := rt.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if webhookCalls.Load() != 1 {
		t.Fatalf("expected enrichment webhook after insert, got %d calls", webhookCalls.Load())
	}
}

func TestLookupPreviewsWithoutCreatingEntries(t *testing.T) {
	providers := newProviderServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithMetadataServer(providers.URL))
	rt, err := api.OpenRuntime(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("OpenRuntime: %v", err)
	}
	defer rt.Close()
	ctx := context.Background()

	resp, err := rt.Service.Lookup(ctx, metadata.Query{ISBN: "9780132350884"})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !resp.Found || resp.Metadata.String("title") != "Clean Code" {
		t.Fatalf("unexpected lookup %#v", resp)
	}
	stats, _ := rt.Service.Stats(ctx)
	if stats.Total != 0 {
		t.Fatalf("lookup created entries: %#v", stats)
	}

	if _, err := rt.Service.Lookup(ctx, metadata.Query{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty query, got %v", err)
	}
}

func TestLookupDisabled(t *testing.T) {
	rt, err := api.OpenRuntime(testsupport.NewConfig(t), logging.NewNop())
	if err != nil {
		t.Fatalf("OpenRuntime: %v", err)
	}
	defer rt.Close()
	if rt.Dispatcher != nil {
		t.Fatal("expected no dispatcher when enrichment is disabled")
	}
	_, err = rt.Service.Lookup(context.Background(), metadata.Query{ISBN: "9780132350884"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	rt, err := api.OpenRuntime(testsupport.NewConfig(t), logging.NewNop())
	if err != nil {
		t.Fatalf("OpenRuntime: %v", err)
	}
	defer rt.Close()
	_, err = rt.Service.List(context.Background(), "approved,shelved")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseStatuses(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  string
	}{
		{name: "empty", input: nil, want: ""},
		{name: "single", input: []string{"failed"}, want: "failed"},
		{name: "comma separated", input: []string{"approved, completed"}, want: "approved,completed"},
		{name: "repeated flags", input: []string{"Pending", "rejected"}, want: "pending,rejected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := api.ParseStatuses(tt.input)
			if err != nil {
				t.Fatalf("ParseStatuses: %v", err)
			}
			parts := make([]string, 0, len(got))
			for _, status := range got {
				parts = append(parts, string(status))
			}
			if joined := strings.Join(parts, ","); joined != tt.want {
				t.Fatalf("got %q, want %q", joined, tt.want)
			}
		})
	}
}

func TestErrorForUsesKind(t *testing.T) {
	body := api.ErrorFor(services.Wrap(services.ErrNotFound, "workflow", "get", "pending entry 9", nil))
	if body.Error.Code != services.KindNotFound {
		t.Fatalf("unexpected code %q", body.Error.Code)
	}
	if !strings.Contains(body.Error.Message, "pending entry 9") {
		t.Fatalf("unexpected message %q", body.Error.Message)
	}
}
