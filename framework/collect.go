package framework

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/redhat/perf-tests-reporter/framework/artifact"
	"github.com/redhat/perf-tests-reporter/framework/events"
	"github.com/redhat/perf-tests-reporter/framework/grafana"
	"github.com/redhat/perf-tests-reporter/framework/storage"
	"github.com/redhat/perf-tests-reporter/framework/store"
)

// GrafanaCollection is the result of CollectGrafana
type GrafanaCollection struct {
	TestID    int64
	Source    string
	Dashboard string
	Panels    []grafana.PanelSnapshot
	Artifacts []*store.Artifact
}

// CollectGrafana exports every panel of a dashboard for the test window and
// registers one grafana_slice artifact per panel. The artifact file is the
// JSON descriptor; the PNG path is kept in its metadata. An empty source name
// picks the project's first Grafana source.
func (f *Framework) CollectGrafana(ctx context.Context, testID int64, from, to time.Time, dashboardUID, sourceName string) (*GrafanaCollection, error) {
	test, project, err := f.loadTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	from, to, err = collectionWindow(test, from, to)
	if err != nil {
		return nil, err
	}
	src, err := grafanaSource(project, sourceName)
	if err != nil {
		return nil, err
	}

	var result *GrafanaCollection
	err = f.collecting(ctx, test, func() error {
		client, err := grafana.NewClient(src.URL, src.Token,
			grafana.WithHTTPClient(f.httpClient),
			grafana.WithLogger(f.logger.With("test_id", testID, "grafana", src.Name)),
			grafana.WithConcurrency(f.config.MaxConcurrentRuns),
		)
		if err != nil {
			return err
		}

		dir := storage.SnapshotDir(testID)
		snaps, err := client.SliceDashboard(ctx, dashboardUID, from, to, f.storage.Resolve(dir))
		if err != nil {
			return err
		}

		result = &GrafanaCollection{TestID: testID, Source: src.Name, Dashboard: dashboardUID, Panels: snaps}
		for _, snap := range snaps {
			a, err := f.store.AddArtifact(ctx, store.Artifact{
				TestID:   testID,
				Kind:     artifact.KindGrafanaSlice,
				FilePath: filepath.Join(dir, snap.DescriptorFile),
				Metadata: map[string]any{
					"dashboard_uid": snap.DashboardUID,
					"panel_id":      snap.PanelID,
					"panel_title":   snap.PanelTitle,
					"image_path":    filepath.Join(dir, snap.ImageFile),
				},
			})
			if err != nil {
				return err
			}
			result.Artifacts = append(result.Artifacts, a)
		}
		return nil
	})
	return result, err
}

func grafanaSource(project *store.Project, name string) (*store.GrafanaSource, error) {
	for i, src := range project.GrafanaSources {
		if name == "" || src.Name == name {
			return &project.GrafanaSources[i], nil
		}
	}
	if name == "" {
		return nil, fmt.Errorf("project %s: %w", project.Name, ErrNoGrafanaSource)
	}
	return nil, fmt.Errorf("project %s has no grafana source %q: %w", project.Name, name, ErrNoGrafanaSource)
}

func (f *Framework) loadTest(ctx context.Context, testID int64) (*store.Test, *store.Project, error) {
	test, err := f.store.GetTest(ctx, testID)
	if err != nil {
		return nil, nil, err
	}
	project, err := f.store.GetProject(ctx, test.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return test, project, nil
}

// collectionWindow fills a zero bound from the recorded test window
func collectionWindow(test *store.Test, from, to time.Time) (time.Time, time.Time, error) {
	if from.IsZero() && test.StartedAt != nil {
		from = *test.StartedAt
	}
	if to.IsZero() && test.EndedAt != nil {
		to = *test.EndedAt
	}
	if from.IsZero() || to.IsZero() {
		return from, to, fmt.Errorf("%w: test %d has no recorded window, pass from and to", ErrInvalidTimeRange, test.ID)
	}
	if !to.After(from) {
		return from, to, fmt.Errorf("%w: %s is not after %s", ErrInvalidTimeRange, to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	return from, to, nil
}

// collecting moves the test to collecting for the duration of fn, then back
// to pending, or to failed when fn fails
func (f *Framework) collecting(ctx context.Context, test *store.Test, fn func() error) error {
	if err := f.store.TransitionTest(ctx, test.ID, store.StatusCollecting, ""); err != nil {
		return err
	}

	err := fn()

	// the outcome is recorded even when ctx was cancelled
	ctx = context.WithoutCancel(ctx)
	if err != nil {
		if terr := f.store.TransitionTest(ctx, test.ID, store.StatusFailed, err.Error()); terr != nil {
			f.logger.Error("failed to record collection failure", "test_id", test.ID, "error", terr)
		}
		f.emit(ctx, test.ID, events.CollectionFailed, map[string]any{"error": err.Error()})
		return err
	}
	return f.store.TransitionTest(ctx, test.ID, store.StatusPending, "")
}

// emit persists a diagnostic event; a storage failure is only logged
func (f *Framework) emit(ctx context.Context, testID int64, name string, attrs map[string]any) {
	if _, err := f.store.LogEvent(context.WithoutCancel(ctx), testID, name, attrs); err != nil {
		f.logger.Debug("failed to store event", "test_id", testID, "event", name, "error", err)
	}
}

// testSink persists pipeline events against a test
type testSink struct {
	f      *Framework
	testID int64
}

func (s testSink) Emit(ctx context.Context, name string, attrs map[string]any) {
	s.f.emit(ctx, s.testID, name, attrs)
}
