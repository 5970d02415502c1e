package framework

import (
	"context"
	"fmt"
	"time"

	"github.com/redhat/perf-tests-reporter/framework/artifact"
	"github.com/redhat/perf-tests-reporter/framework/concurrent"
	"github.com/redhat/perf-tests-reporter/framework/llm"
	"github.com/redhat/perf-tests-reporter/framework/pipeline"
	"github.com/redhat/perf-tests-reporter/framework/report"
	"github.com/redhat/perf-tests-reporter/framework/storage"
	"github.com/redhat/perf-tests-reporter/framework/store"
)

// Metadata keys passed to the report prompt
const (
	MetaProjectName = "project_name"
	MetaTestType    = "test_type"
	MetaVersion     = "version"
	MetaTimeRange   = "time_range"
)

// Analysis is a completed analysis of one test
type Analysis struct {
	TestID int64
	Report *store.Report
	Result *pipeline.Result
}

// AnalyzeTest produces and stores the report of a test. The test moves to
// analyzing, then to done, or to failed with the error message.
func (f *Framework) AnalyzeTest(ctx context.Context, testID int64) (*Analysis, error) {
	test, project, err := f.loadTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	if err := f.store.TransitionTest(ctx, testID, store.StatusAnalyzing, ""); err != nil {
		return nil, err
	}

	analysis, err := f.analyze(ctx, test, project)

	ctx = context.WithoutCancel(ctx)
	if err != nil {
		if terr := f.store.TransitionTest(ctx, testID, store.StatusFailed, err.Error()); terr != nil {
			f.logger.Error("failed to record analysis failure", "test_id", testID, "error", terr)
		}
		return nil, &AnalysisError{TestID: testID, Err: err}
	}
	if err := f.store.TransitionTest(ctx, testID, store.StatusDone, ""); err != nil {
		return nil, err
	}
	return analysis, nil
}

// AnalyzeTests analyses independent tests concurrently, at most
// Config.MaxConcurrentRuns at a time. Outcomes keep the order of ids.
func (f *Framework) AnalyzeTests(ctx context.Context, ids []int64) []concurrent.Outcome[*Analysis] {
	return concurrent.Settle(ctx, ids, f.config.MaxConcurrentRuns, f.AnalyzeTest)
}

func (f *Framework) analyze(ctx context.Context, test *store.Test, project *store.Project) (*Analysis, error) {
	logger := f.logger.With("test_id", test.ID, "project", project.Name)

	artifacts, err := f.store.ListArtifacts(ctx, test.ID)
	if err != nil {
		return nil, err
	}
	refs, onDisk := f.refsFor(artifacts)
	if onDisk == 0 {
		return nil, fmt.Errorf("test %d: %w", test.ID, ErrNoArtifacts)
	}

	sel := f.selectorFor(project)
	budget := f.config.BudgetFor(llm.IsLocal(sel.Type))

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithSink(testSink{f: f, testID: test.ID}),
		pipeline.WithPerArtifactLimit(f.config.ArtifactCharLimit),
	}
	if f.backendFactory != nil {
		opts = append(opts, pipeline.WithBackendFactory(f.backendFactory))
	}
	p := pipeline.New(opts...)

	meta := map[string]string{
		MetaProjectName: project.Name,
		MetaTestType:    string(test.Type),
		MetaVersion:     project.Version,
		MetaTimeRange:   test.TimeRange(),
	}
	rc := pipeline.NewRunContext(meta, test.SystemPrompt, budget)
	logger.Info("analysis started", "run_id", rc.RunID(), "artifacts", len(refs), "backend", sel.Type, "budget", budget)

	result, err := p.RunWith(ctx, rc, refs, sel)
	if err != nil {
		return nil, err
	}

	textPath := storage.ReportPath(test.ID, ".txt")
	if err := report.WriteText(f.storage.Resolve(textPath), result.Text); err != nil {
		return nil, err
	}
	pdfPath := storage.ReportPath(test.ID, ".pdf")
	err = report.WritePDF(f.storage.Resolve(pdfPath), report.PDFInput{
		Title: report.Title,
		Meta: report.Meta{
			Project:   project.Name,
			TestType:  string(test.Type),
			Version:   project.Version,
			TimeRange: test.TimeRange(),
		},
		Sections: result.Sections,
		FullText: result.Raw,
		FontPath: f.config.PDFFont,
	})
	if err != nil {
		// the text report is the primary output
		logger.Warn("pdf report not written", "error", err)
		pdfPath = ""
	}

	stored, err := f.store.UpsertReport(ctx, store.Report{
		TestID:        test.ID,
		Text:          result.Text,
		TextPath:      textPath,
		PDFPath:       pdfPath,
		ArtifactsUsed: snapshot(artifacts, result.Labels),
	})
	if err != nil {
		return nil, err
	}

	logger.Info("analysis done",
		"run_id", result.RunID,
		"degraded", result.Degraded,
		"truncated", result.Truncated,
		"skipped", len(result.Skipped),
		"duration", result.Duration.Round(time.Millisecond))
	return &Analysis{TestID: test.ID, Report: stored, Result: result}, nil
}

// refsFor builds aggregator refs in stored (ascending id) order and counts the
// ones whose file exists. Missing files stay in so they show up as skipped.
func (f *Framework) refsFor(artifacts []*store.Artifact) ([]artifact.Ref, int) {
	refs := make([]artifact.Ref, 0, len(artifacts))
	onDisk := 0
	for _, a := range artifacts {
		if a.FilePath == "" {
			continue
		}
		if f.storage.Exists(a.FilePath) {
			onDisk++
		}
		refs = append(refs, artifact.FromFile(a.ID, a.DisplayName, a.Kind, f.storage.Resolve(a.FilePath)))
	}
	return refs, onDisk
}

func (f *Framework) selectorFor(project *store.Project) llm.Selector {
	sel := llm.Selector{
		Type:    project.LLMType,
		Model:   project.LLMModel,
		APIKey:  project.LLMAPIKey,
		BaseURL: project.LLMBaseURL,
		Timeout: f.config.ModelTimeout,
	}
	if llm.IsLocal(sel.Type) {
		sel.NumCtx = f.config.LocalNumCtx
		if sel.BaseURL == "" {
			sel.BaseURL = f.config.LocalModelURL
		}
	}
	return sel
}

func snapshot(artifacts []*store.Artifact, used []string) []store.ArtifactSnapshot {
	usedSet := make(map[string]bool, len(used))
	for _, l := range used {
		usedSet[l] = true
	}
	out := make([]store.ArtifactSnapshot, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, store.ArtifactSnapshot{
			ID:          a.ID,
			Kind:        string(a.Kind),
			DisplayName: a.DisplayName,
			FilePath:    a.FilePath,
			Used:        usedSet[a.Label()],
		})
	}
	return out
}
