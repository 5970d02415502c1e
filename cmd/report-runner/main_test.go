package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type cli struct {
	t       *testing.T
	db      string
	storage string
}

func newCLI(t *testing.T) *cli {
	dir := t.TempDir()
	return &cli{t: t, db: filepath.Join(dir, "reports.db"), storage: filepath.Join(dir, "storage")}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(append(args, "--db", c.db, "--storage", c.storage))

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(c.t.Context())
	return stdout.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("%v: %v", args, err)
	}
	return out
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestEndToEnd(t *testing.T) {
	c := newCLI(t)
	profilePath := writeFile(t, "payments.yaml", "name: payments\nversion: \"4.2\"\nllm:\n  type: dummy\n")

	out := c.mustRun("project", "add", "-f", profilePath)
	if !strings.Contains(out, "Created project 1: payments (llm=dummy)") {
		t.Fatalf("unexpected output %q", out)
	}

	out = c.mustRun("test", "create", "--project", "payments", "--type", "max_search",
		"--from", "2026-03-01 10:00", "--to", "2026-03-01T11:00:00Z")
	if !strings.Contains(out, "Created test 1 (max_search)") {
		t.Fatalf("unexpected output %q", out)
	}

	logPath := writeFile(t, "app.log", "ERROR connection pool exhausted\n")
	out = c.mustRun("artifact", "upload", "--test", "1", "--kind", "custom_java_log", "--file", logPath)
	if !strings.Contains(out, "app.log (custom_java_log)") {
		t.Fatalf("unexpected output %q", out)
	}

	out = c.mustRun("analyze", "1")
	if !strings.Contains(out, "test 1: PASS") || !strings.Contains(out, "1 passed, 0 failed") {
		t.Fatalf("unexpected output %q", out)
	}

	out = c.mustRun("report", "show", "--test", "1", "--artifacts")
	if !strings.Contains(out, "Report produced by the dummy backend.") || !strings.Contains(out, "[x] 1 custom_java_log app.log") {
		t.Fatalf("unexpected report %q", out)
	}

	out = c.mustRun("test", "list")
	if !strings.Contains(out, "done") || !strings.Contains(out, "2026-03-01T10:00:00Z .. 2026-03-01T11:00:00Z") {
		t.Fatalf("unexpected test list %q", out)
	}
}

func TestAnalyzeReportsFailures(t *testing.T) {
	c := newCLI(t)
	profilePath := writeFile(t, "empty.yaml", "name: empty\nllm:\n  type: dummy\n")
	c.mustRun("project", "add", "-f", profilePath)
	c.mustRun("test", "create", "--project", "empty", "--type", "reliability")

	out, err := c.run("analyze", "--test", "1")
	if err == nil {
		t.Fatal("expected analyze to fail without artifacts")
	}
	if !strings.Contains(out, "test 1: FAIL") {
		t.Errorf("unexpected output %q", out)
	}

	if _, err := c.run("report", "show", "--test", "1"); err == nil || !strings.Contains(err.Error(), "no report yet") {
		t.Errorf("expected missing report error, got %v", err)
	}
}

func TestUploadRejectsCollectedKinds(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("artifact", "upload", "--test", "1", "--kind", "k8s_logs", "--file", "x")
	if err == nil || !strings.Contains(err.Error(), "collected automatically") {
		t.Errorf("expected kind rejection, got %v", err)
	}
}

func TestParseTime(t *testing.T) {
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, in := range []string{"2026-03-01 10:00", "2026-03-01T10:00:00Z", "2026-03-01T12:00:00+02:00"} {
		got, err := parseTime("from", in)
		if err != nil {
			t.Errorf("parseTime(%q): %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("parseTime(%q) = %v, want %v", in, got, want)
		}
	}

	if got, err := parseTime("from", ""); err != nil || !got.IsZero() {
		t.Errorf("expected zero time for empty input, got %v %v", got, err)
	}
	if _, err := parseTime("from", "yesterday"); err == nil {
		t.Error("expected error for invalid time")
	}
}

func TestUnknownLogFormat(t *testing.T) {
	c := newCLI(t)
	if _, err := c.run("project", "list", "--log-format", "xml"); err == nil {
		t.Error("expected error for unknown log format")
	}
}
