package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"accession/internal/api"
	"accession/internal/services"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting an existing file")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("ACCESSION_API_TOKEN", "s3cret")

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "data_dir")
	requireContains(t, out, "********")
	if strings.Contains(out, "s3cret") {
		t.Fatalf("token leaked in config show output: %q", out)
	}
}

func TestCLIWorkflow(t *testing.T) {
	env := setupCLITestEnv(t)

	var intake api.IntakeResponse
	runJSON(t, env, &intake, "intake", "--title", "Field Notes", "--author", "A. Walker", "--copies", "2")
	if intake.Entry.Status != "failed" || intake.MetadataFound {
		t.Fatalf("metadata disabled: expected failed entry, got %#v", intake)
	}
	id := strconv.FormatInt(intake.Entry.ID, 10)

	var pending api.EntryListResponse
	runJSON(t, env, &pending, "pending")
	if len(pending.Items) != 1 || pending.Items[0].ID != intake.Entry.ID {
		t.Fatalf("pending: %#v", pending)
	}

	out, _, err := runCLI(t, []string{"edit", id, "--set", "publisher=Tin House", "--set", "publication_year=2019"}, env.configPath)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	requireContains(t, out, "Tin House")

	out, _, err = runCLI(t, []string{"confirm", id}, env.configPath)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	requireContains(t, out, "approved")

	var inserted api.InsertResult
	runJSON(t, env, &inserted, "insert", id)
	if inserted.Action != "inserted" || inserted.BookID == 0 {
		t.Fatalf("insert: %#v", inserted)
	}

	out, _, err = runCLI(t, []string{"insert", id}, env.configPath)
	if err != nil {
		t.Fatalf("repeat insert: %v", err)
	}
	requireContains(t, out, "already completed")

	var trail api.AuditTrailResponse
	runJSON(t, env, &trail, "audit", id)
	if len(trail.Items) == 0 || trail.Items[len(trail.Items)-1].Action != "pending_completed" {
		t.Fatalf("audit trail: %#v", trail)
	}

	var stats api.StatsResponse
	runJSON(t, env, &stats, "status")
	if stats.Counts["completed"] != 1 || stats.Total != 1 {
		t.Fatalf("stats: %#v", stats)
	}

	out, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status table: %v", err)
	}
	requireContains(t, out, "awaiting_confirmation")
	requireContains(t, out, "total")
}

func TestRejectRecordsReason(t *testing.T) {
	env := setupCLITestEnv(t)

	var intake api.IntakeResponse
	runJSON(t, env, &intake, "intake", "--title", "Duplicate Donation")
	id := strconv.FormatInt(intake.Entry.ID, 10)

	var rejected api.Entry
	runJSON(t, env, &rejected, "confirm", id, "--reject", "--reason", "damaged copy")
	if rejected.Status != "rejected" {
		t.Fatalf("expected rejected, got %q", rejected.Status)
	}

	_, _, err := runCLI(t, []string{"insert", id}, env.configPath)
	if services.Kind(err) != services.KindInvalidState {
		t.Fatalf("insert rejected entry: expected invalid_state, got %v", err)
	}
}

func TestCommandErrors(t *testing.T) {
	env := setupCLITestEnv(t)

	tests := []struct {
		name string
		args []string
		kind string
	}{
		{name: "unknown entry", args: []string{"show", "42"}, kind: services.KindNotFound},
		{name: "unknown status", args: []string{"pending", "--status", "shelved"}, kind: services.KindValidation},
		{name: "intake without title or isbn", args: []string{"intake"}, kind: services.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args, env.configPath)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := services.Kind(err); got != tt.kind {
				t.Fatalf("expected kind %s, got %s (%v)", tt.kind, got, err)
			}
		})
	}

	if _, _, err := runCLI(t, []string{"show", "abc"}, env.configPath); err == nil {
		t.Fatal("expected invalid id error")
	}
	if _, _, err := runCLI(t, []string{"edit", "1"}, env.configPath); err == nil {
		t.Fatal("expected edit without flags to fail")
	}
}

func TestDoctorReportsChecks(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	requireContains(t, out, "Data directory")
	requireContains(t, out, "Database")
	requireContains(t, out, "OK")
}

func TestLogsFiltersByEntry(t *testing.T) {
	env := setupCLITestEnv(t)
	logDir := filepath.Join(filepath.Dir(env.dataDir), "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := `{"ts":"2026-03-04T10:00:00Z","level":"info","msg":"entry inserted","entry_id":4}
{"ts":"2026-03-04T10:00:01Z","level":"info","msg":"entry confirmed","entry_id":5}
plain text line
`
	if err := os.WriteFile(filepath.Join(logDir, "accessiond.log"), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--entry", "4"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "entry inserted")
	requireContains(t, out, "plain text line")
	if strings.Contains(out, "entry confirmed") {
		t.Fatalf("filter leaked other entry: %q", out)
	}
}
