// Package framework turns load-test evidence into a structured written report.
//
// A project describes the system under test and the model that writes its
// reports. Each test of a project collects artifacts (uploaded logs and
// dumps, Kubernetes pod inventories and container logs, Grafana panel
// exports) and is then analysed: the artifacts are aggregated under a
// character budget, sent to the model with a fixed section contract, and the
// reply is parsed into a text and a PDF report.
//
// # Quick Start
//
//	fw, err := framework.New(framework.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer fw.Close()
//
//	p, _ := profile.Load("profiles/checkout.yaml")
//	project, _ := fw.ImportProfile(ctx, p)
//
//	test, _ := fw.Store().CreateTest(ctx, store.Test{
//	    ProjectID: project.ID,
//	    Type:      store.TestMaxSearch,
//	    StartedAt: &start,
//	    EndedAt:   &end,
//	})
//
//	fw.UploadArtifactFile(ctx, test.ID, artifact.KindCustomGC, "gc.log", "")
//	fw.CollectKubernetes(ctx, test.ID, time.Time{}, time.Time{}, "")
//	fw.CollectGrafana(ctx, test.ID, time.Time{}, time.Time{}, "service-overview", "")
//
//	analysis, err := fw.AnalyzeTest(ctx, test.ID)
//	fmt.Println(analysis.Report.Text)
//
// # Configuration
//
// Budgets, timeouts and locations come from config.FromEnv (PERF_REPORT_*
// variables) unless WithConfig is given.
//
// # Package Structure
//
//   - artifact: artifact references and budgeted aggregation
//   - prompt: the model prompt and its section contract
//   - llm: model backends (ollama, gigachat, openai, gemini, dummy)
//   - report: section parsing, report assembly, text and PDF rendering
//   - pipeline: the sequential report run and its state machine
//   - store: SQLite persistence of projects, tests, artifacts and reports
//   - storage: artifact files on disk
//   - grafana: dashboard panel export
//   - config: centralized configuration with environment variable support
//   - profile: project profiles in YAML
//   - concurrent: bounded concurrent execution helpers
//   - retry: retry logic with exponential backoff
//   - events: diagnostic event sinks
package framework
