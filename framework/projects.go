package framework

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/redhat/perf-tests-reporter/framework/artifact"
	"github.com/redhat/perf-tests-reporter/framework/profile"
	"github.com/redhat/perf-tests-reporter/framework/store"
)

// ImportProfile creates a project from a loaded profile
func (f *Framework) ImportProfile(ctx context.Context, p *profile.Profile) (*store.Project, error) {
	if err := profile.Validate(p); err != nil {
		return nil, err
	}
	project := store.Project{
		Name:        p.Name,
		Description: p.Description,
		Version:     p.Version,
		LLMType:     p.LLM.Type,
		LLMModel:    p.LLM.Model,
		LLMAPIKey:   p.LLM.APIKey,
		LLMBaseURL:  p.LLM.BaseURL,
	}
	for _, src := range p.Grafana {
		project.GrafanaSources = append(project.GrafanaSources, store.GrafanaSource{
			Name:  src.Name,
			URL:   src.URL,
			Token: src.Token,
		})
	}
	if k := p.Kubernetes; k != nil {
		project.K8s = &store.K8sConfig{
			KubeconfigBase64:   k.KubeconfigBase64,
			KubeconfigPath:     k.KubeconfigPath,
			Server:             k.Server,
			Token:              k.Token,
			InsecureSkipVerify: k.InsecureSkipVerify,
			Namespace:          k.Namespace,
			LabelSelector:      k.LabelSelector,
		}
	}

	created, err := f.store.CreateProject(ctx, project)
	if err != nil {
		return nil, err
	}
	f.logger.Info("project created", "project", created.Name, "id", created.ID, "llm", created.LLMType)
	return created, nil
}

// UploadArtifact stores an engineer-provided file for a test and registers it
func (f *Framework) UploadArtifact(ctx context.Context, testID int64, kind artifact.Kind, name string, content io.Reader) (*store.Artifact, error) {
	if _, err := f.store.GetTest(ctx, testID); err != nil {
		return nil, err
	}
	rel, meta, err := f.storage.SaveCustom(testID, kind, name, content)
	if err != nil {
		return nil, err
	}
	a, err := f.store.AddArtifact(ctx, store.Artifact{
		TestID:      testID,
		Kind:        kind,
		DisplayName: name,
		FilePath:    rel,
		Metadata:    meta,
	})
	if err != nil {
		os.Remove(f.storage.Resolve(rel))
		return nil, err
	}
	f.logger.Info("artifact uploaded", "test_id", testID, "artifact_id", a.ID, "kind", kind, "label", a.Label())
	return a, nil
}

// UploadArtifactFile uploads a local file. An empty name uses the file name.
func (f *Framework) UploadArtifactFile(ctx context.Context, testID int64, kind artifact.Kind, path, name string) (*store.Artifact, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	if name == "" {
		info, err := file.Stat()
		if err != nil {
			return nil, err
		}
		name = info.Name()
	}
	return f.UploadArtifact(ctx, testID, kind, name, file)
}

// DeleteTest removes a test with its stored files, artifacts and report
func (f *Framework) DeleteTest(ctx context.Context, testID int64) error {
	if err := f.store.DeleteTest(ctx, testID); err != nil {
		return err
	}
	return f.storage.DeleteTest(testID)
}
