package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/redhat/perf-tests-reporter/framework/artifact"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "reports.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedTest(t *testing.T, s *Store) (*Project, *Test) {
	t.Helper()
	ctx := context.Background()
	p, err := s.CreateProject(ctx, Project{Name: "checkout", Version: "1.4.2"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	tst, err := s.CreateTest(ctx, Test{ProjectID: p.ID, Type: TestMaxSearch, StartedAt: &start, EndedAt: &end})
	if err != nil {
		t.Fatalf("CreateTest: %v", err)
	}
	return p, tst
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.CreateProject(context.Background(), Project{Name: "mem"}); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	projects, err := s.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 1 {
		t.Errorf("expected 1 project, got %d", len(projects))
	}
}

func TestProjects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, Project{
		Name:           "  payments ",
		GrafanaSources: []GrafanaSource{{Name: "main", URL: "http://grafana:3000", Token: "t"}},
		K8s:            &K8sConfig{Namespace: "payments", LabelSelector: "app=api"},
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if p.Name != "payments" {
		t.Errorf("expected trimmed name, got %q", p.Name)
	}
	if p.LLMType != "ollama" {
		t.Errorf("expected default llm type ollama, got %q", p.LLMType)
	}
	if len(p.GrafanaSources) != 1 || p.GrafanaSources[0].URL != "http://grafana:3000" {
		t.Errorf("unexpected grafana sources: %+v", p.GrafanaSources)
	}
	if p.K8s == nil || p.K8s.Namespace != "payments" {
		t.Errorf("unexpected k8s config: %+v", p.K8s)
	}

	byName, err := s.GetProjectByName(ctx, "payments")
	if err != nil {
		t.Fatalf("GetProjectByName: %v", err)
	}
	if byName.ID != p.ID {
		t.Errorf("expected id %d, got %d", p.ID, byName.ID)
	}

	if _, err := s.CreateProject(ctx, Project{Name: "payments"}); err == nil {
		t.Error("expected duplicate name to fail")
	}
	if _, err := s.CreateProject(ctx, Project{Name: " "}); err == nil {
		t.Error("expected empty name to fail")
	}
	if _, err := s.GetProject(ctx, 999); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestCreateTest_Validation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, _ := seedTest(t, s)

	if _, err := s.CreateTest(ctx, Test{ProjectID: p.ID, Type: "soak"}); err == nil {
		t.Error("expected unknown test type to fail")
	}
	if _, err := s.CreateTest(ctx, Test{ProjectID: 42, Type: TestReliability}); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}

	start := time.Now()
	end := start.Add(-time.Minute)
	if _, err := s.CreateTest(ctx, Test{ProjectID: p.ID, Type: TestReliability, StartedAt: &start, EndedAt: &end}); err == nil {
		t.Error("expected inverted window to fail")
	}
}

func TestTest_Fields(t *testing.T) {
	s := newTestStore(t)
	_, tst := seedTest(t, s)

	if tst.Status != StatusPending {
		t.Errorf("expected pending, got %s", tst.Status)
	}
	if tst.TimeRange() != "2026-03-01T10:00:00Z - 2026-03-01T11:00:00Z" {
		t.Errorf("unexpected time range %q", tst.TimeRange())
	}

	tests, err := s.ListTests(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListTests: %v", err)
	}
	if len(tests) != 1 || tests[0].ID != tst.ID {
		t.Errorf("unexpected tests: %+v", tests)
	}
}

func TestTransitionTest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, tst := seedTest(t, s)

	if err := s.TransitionTest(ctx, tst.ID, StatusDone, ""); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
	}

	steps := []struct {
		to     Status
		errMsg string
	}{
		{StatusCollecting, ""},
		{StatusAnalyzing, ""},
		{StatusFailed, "model unreachable"},
		{StatusAnalyzing, ""},
		{StatusDone, ""},
	}
	for _, step := range steps {
		if err := s.TransitionTest(ctx, tst.ID, step.to, step.errMsg); err != nil {
			t.Fatalf("transition to %s: %v", step.to, err)
		}
		got, err := s.GetTest(ctx, tst.ID)
		if err != nil {
			t.Fatalf("GetTest: %v", err)
		}
		if got.Status != step.to {
			t.Errorf("expected %s, got %s", step.to, got.Status)
		}
		if got.ErrorMessage != step.errMsg {
			t.Errorf("expected error message %q, got %q", step.errMsg, got.ErrorMessage)
		}
	}

	if err := s.TransitionTest(ctx, 999, StatusCollecting, ""); !errors.Is(err, ErrTestNotFound) {
		t.Errorf("expected ErrTestNotFound, got %v", err)
	}
}

func TestIsValidStatusTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusCollecting, true},
		{StatusPending, StatusAnalyzing, true},
		{StatusPending, StatusDone, false},
		{StatusCollecting, StatusPending, true},
		{StatusAnalyzing, StatusPending, false},
		{StatusDone, StatusAnalyzing, true},
		{StatusFailed, StatusCollecting, true},
		{Status("unknown"), StatusDone, false},
	}
	for _, tt := range tests {
		if got := IsValidStatusTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("IsValidStatusTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestArtifacts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, tst := seedTest(t, s)

	first, err := s.AddArtifact(ctx, Artifact{TestID: tst.ID, Kind: artifact.KindCustomJavaLog, DisplayName: "app.log", FilePath: "1/app.log"})
	if err != nil {
		t.Fatalf("AddArtifact: %v", err)
	}
	second, err := s.AddArtifact(ctx, Artifact{
		TestID:   tst.ID,
		Kind:     artifact.KindGrafanaSlice,
		FilePath: "grafana_snapshots/1/latency.json",
		Metadata: map[string]any{"dashboard": "latency"},
	})
	if err != nil {
		t.Fatalf("AddArtifact: %v", err)
	}

	if _, err := s.AddArtifact(ctx, Artifact{TestID: tst.ID, Kind: "core_dump"}); err == nil {
		t.Error("expected unknown kind to fail")
	}

	list, err := s.ListArtifacts(ctx, tst.ID)
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("expected artifacts in id order, got %+v", list)
	}
	if list[0].Label() != "app.log" {
		t.Errorf("expected display name label, got %q", list[0].Label())
	}
	if list[1].Label() != "latency.json" {
		t.Errorf("expected file name label, got %q", list[1].Label())
	}
	if list[1].Metadata["dashboard"] != "latency" {
		t.Errorf("unexpected metadata %+v", list[1].Metadata)
	}

	if err := s.DeleteArtifact(ctx, first.ID); err != nil {
		t.Fatalf("DeleteArtifact: %v", err)
	}
	if _, err := s.GetArtifact(ctx, first.ID); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("expected ErrArtifactNotFound, got %v", err)
	}
	if err := s.DeleteArtifact(ctx, first.ID); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("expected ErrArtifactNotFound on second delete, got %v", err)
	}
}

func TestReports_Upsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, tst := seedTest(t, s)

	if _, err := s.GetReport(ctx, tst.ID); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}

	r, err := s.UpsertReport(ctx, Report{
		TestID:        tst.ID,
		Text:          "first",
		ArtifactsUsed: []ArtifactSnapshot{{ID: 1, Kind: "custom_java_log", Used: true}},
	})
	if err != nil {
		t.Fatalf("UpsertReport: %v", err)
	}
	if r.Text != "first" || len(r.ArtifactsUsed) != 1 {
		t.Errorf("unexpected report %+v", r)
	}

	r2, err := s.UpsertReport(ctx, Report{TestID: tst.ID, Text: "second", PDFPath: "reports/1.pdf"})
	if err != nil {
		t.Fatalf("UpsertReport: %v", err)
	}
	if r2.ID != r.ID {
		t.Errorf("expected the report row to be replaced in place")
	}
	if r2.Text != "second" || r2.PDFPath != "reports/1.pdf" || len(r2.ArtifactsUsed) != 0 {
		t.Errorf("unexpected report %+v", r2)
	}
}

func TestDeleteTest_Cascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, tst := seedTest(t, s)

	a, err := s.AddArtifact(ctx, Artifact{TestID: tst.ID, Kind: artifact.KindCustomGC, FilePath: "1/gc.log"})
	if err != nil {
		t.Fatalf("AddArtifact: %v", err)
	}
	if _, err := s.UpsertReport(ctx, Report{TestID: tst.ID, Text: "x"}); err != nil {
		t.Fatalf("UpsertReport: %v", err)
	}

	if err := s.DeleteTest(ctx, tst.ID); err != nil {
		t.Fatalf("DeleteTest: %v", err)
	}
	if _, err := s.GetArtifact(ctx, a.ID); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("expected artifact to be deleted, got %v", err)
	}
	if _, err := s.GetReport(ctx, tst.ID); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("expected report to be deleted, got %v", err)
	}
}

func TestEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, tst := seedTest(t, s)

	if _, err := s.LogEvent(ctx, tst.ID, "artifact_skipped", map[string]any{"label": "app.log"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	if _, err := s.LogEvent(ctx, tst.ID, "model_invoked", nil); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	if _, err := s.LogEvent(ctx, 0, "global", nil); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	events, err := s.ListEvents(ctx, tst.ID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != "artifact_skipped" || events[0].Payload["label"] != "app.log" {
		t.Errorf("unexpected first event %+v", events[0])
	}
	if events[1].Payload != nil {
		t.Errorf("expected nil payload, got %+v", events[1].Payload)
	}
}
