package daemon

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"accession/internal/api"
	"accession/internal/config"
	"accession/internal/logging"
	"accession/internal/testsupport"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	rt, err := api.OpenRuntime(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("OpenRuntime: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	srv, err := newAPIServer(cfg, rt.Service, logging.NewNop())
	if err != nil {
		t.Fatalf("newAPIServer: %v", err)
	}
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string, out any) int {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestAPIWorkflow(t *testing.T) {
	ts := newTestServer(t, nil)

	var intake api.IntakeResponse
	code := do(t, ts, http.MethodPost, "/api/v1/entries", `{"title":"Field Notes","authors":["A. Walker"],"total_copies":2}`, &intake)
	if code != http.StatusCreated {
		t.Fatalf("intake: expected 201, got %d", code)
	}
	if intake.Entry.Status != "failed" || intake.MetadataFound {
		t.Fatalf("metadata disabled: expected failed entry, got %#v", intake)
	}
	path := "/api/v1/entries/" + jsonID(intake.Entry.ID)

	var list api.EntryListResponse
	if code := do(t, ts, http.MethodGet, "/api/v1/entries", "", &list); code != http.StatusOK || len(list.Items) != 1 {
		t.Fatalf("list: %d %#v", code, list)
	}

	var edited api.Entry
	code = do(t, ts, http.MethodPatch, path, `{"raw_metadata":{"publisher":"Tin House","publication_year":2019}}`, &edited)
	if code != http.StatusOK || edited.Metadata.String("publisher") != "Tin House" {
		t.Fatalf("edit: %d %#v", code, edited)
	}

	var confirmed api.Entry
	if code := do(t, ts, http.MethodPost, path+"/confirm", `{"approved":true}`, &confirmed); code != http.StatusOK || confirmed.Status != "approved" {
		t.Fatalf("confirm: %d %#v", code, confirmed)
	}

	var inserted api.InsertResult
	if code := do(t, ts, http.MethodPost, path+"/insert", "", &inserted); code != http.StatusOK || inserted.Action != "inserted" {
		t.Fatalf("insert: %d %#v", code, inserted)
	}
	var again api.InsertResult
	if code := do(t, ts, http.MethodPost, path+"/insert", "", &again); code != http.StatusOK || again.Action != "already_completed" || again.BookID != inserted.BookID {
		t.Fatalf("repeat insert: %d %#v", code, again)
	}

	var trail api.AuditTrailResponse
	if code := do(t, ts, http.MethodGet, path+"/audit", "", &trail); code != http.StatusOK {
		t.Fatalf("audit: %d", code)
	}
	if last := trail.Items[len(trail.Items)-1]; last.Action != "pending_completed" {
		t.Fatalf("expected pending_completed last, got %#v", last)
	}

	var stats api.StatsResponse
	if code := do(t, ts, http.MethodGet, "/api/v1/stats", "", &stats); code != http.StatusOK || stats.Counts["completed"] != 1 {
		t.Fatalf("stats: %d %#v", code, stats)
	}
}

func TestAPIErrorMapping(t *testing.T) {
	ts := newTestServer(t, nil)

	var intake api.IntakeResponse
	do(t, ts, http.MethodPost, "/api/v1/entries", `{"title":"Field Notes","total_copies":1}`, &intake)
	path := "/api/v1/entries/" + jsonID(intake.Entry.ID)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{name: "unknown entry", method: http.MethodGet, path: "/api/v1/entries/999", status: http.StatusNotFound, code: "not_found"},
		{name: "bad id", method: http.MethodGet, path: "/api/v1/entries/abc", status: http.StatusBadRequest, code: "validation"},
		{name: "insert before approval", method: http.MethodPost, path: path + "/insert", status: http.StatusBadRequest, code: "invalid_state"},
		{name: "missing copies", method: http.MethodPost, path: "/api/v1/entries", body: `{"title":"X"}`, status: http.StatusBadRequest, code: "validation"},
		{name: "unknown field", method: http.MethodPost, path: "/api/v1/entries", body: `{"title":"X","total_copies":1,"shelf":"A"}`, status: http.StatusBadRequest, code: "validation"},
		{name: "empty confirm body", method: http.MethodPost, path: path + "/confirm", status: http.StatusBadRequest, code: "validation"},
		{name: "unknown status filter", method: http.MethodGet, path: "/api/v1/entries?status=shelved", status: http.StatusBadRequest, code: "validation"},
		{name: "lookup disabled", method: http.MethodPost, path: "/api/v1/lookup", body: `{"isbn":"9780132350884"}`, status: http.StatusBadRequest, code: "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body api.ErrorBody
			status := do(t, ts, tt.method, tt.path, tt.body, &body)
			if status != tt.status {
				t.Fatalf("expected %d, got %d (%#v)", tt.status, status, body)
			}
			if body.Error.Code != tt.code || body.Error.Message == "" {
				t.Fatalf("unexpected error body %#v", body)
			}
		})
	}
}

func TestAPIRequiresToken(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) { cfg.API.Token = "s3cret" })

	if code := do(t, ts, http.MethodGet, "/api/v1/health", "", nil); code != http.StatusOK {
		t.Fatalf("health must stay open, got %d", code)
	}
	var body api.ErrorBody
	if code := do(t, ts, http.MethodGet, "/api/v1/stats", "", &body); code != http.StatusUnauthorized || body.Error.Code != "unauthorized" {
		t.Fatalf("expected 401, got %d %#v", code, body)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/stats", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("authorized request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}
}

func TestAPICORSPreflight(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.API.Token = "s3cret"
		cfg.API.CORSOrigins = []string{"http://localhost:5173"}
	})

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/entries", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected allowed origin, got %q (status %d)", got, resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/api/v1/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	resp, err = ts.Client().Do(req)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allowed origin %q", got)
	}
}

func TestMetricsAndRequestID(t *testing.T) {
	ts := newTestServer(t, nil)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("expected request id echoed, got %q", got)
	}

	resp, err = ts.Client().Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "accession_http_requests_total") {
		t.Fatalf("expected http request counter in metrics output")
	}
}

func jsonID(id int64) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}
