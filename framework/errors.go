package framework

import (
	"errors"
	"fmt"

	"github.com/redhat/perf-tests-reporter/framework/pipeline"
	"github.com/redhat/perf-tests-reporter/framework/store"
)

// Sentinel errors for framework operations
var (
	// ErrProjectNotFound indicates that a project does not exist
	ErrProjectNotFound = store.ErrProjectNotFound

	// ErrTestNotFound indicates that a test does not exist
	ErrTestNotFound = store.ErrTestNotFound

	// ErrInvalidStatusTransition indicates a test status change the lifecycle forbids
	ErrInvalidStatusTransition = store.ErrInvalidStatusTransition

	// ErrNoArtifacts indicates that a test has no artifact file to analyse
	ErrNoArtifacts = errors.New("no artifacts available for analysis")

	// ErrNoKubernetesConfig indicates that no way to reach a cluster was found
	ErrNoKubernetesConfig = errors.New("no kubernetes configuration")

	// ErrNoGrafanaSource indicates that a project has no matching Grafana source
	ErrNoGrafanaSource = errors.New("no grafana source configured")

	// ErrClusterConnection indicates failure to connect to the cluster
	ErrClusterConnection = errors.New("failed to connect to cluster")

	// ErrInvalidTimeRange indicates a missing or inverted collection window
	ErrInvalidTimeRange = errors.New("invalid time range")
)

// ResourceError represents an error related to a specific cluster resource
type ResourceError struct {
	Kind      string
	Namespace string
	Name      string
	Err       error
}

func (e *ResourceError) Error() string {
	if e.Namespace != "" {
		return fmt.Sprintf("%s %s/%s: %v", e.Kind, e.Namespace, e.Name, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Name, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(kind, namespace, name string, err error) *ResourceError {
	return &ResourceError{
		Kind:      kind,
		Namespace: namespace,
		Name:      name,
		Err:       err,
	}
}

// CollectionError reports evidence that could not be collected for a test.
// Collection continues past these; they are returned joined.
type CollectionError struct {
	TestID int64
	Source string
	Errs   []error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("test %d: %d %s item(s) failed: %v", e.TestID, len(e.Errs), e.Source, errors.Join(e.Errs...))
}

func (e *CollectionError) Unwrap() []error {
	return e.Errs
}

// AnalysisError wraps a failed analysis of one test
type AnalysisError struct {
	TestID int64
	Err    error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis of test %d failed: %v", e.TestID, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates a missing project or test
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProjectNotFound) || errors.Is(err, ErrTestNotFound) ||
		errors.Is(err, store.ErrArtifactNotFound) || errors.Is(err, store.ErrReportNotFound)
}

// IsConfiguration returns true if the error comes from configuration rather
// than from an external system
func IsConfiguration(err error) bool {
	return pipeline.IsConfiguration(err) || errors.Is(err, ErrNoKubernetesConfig) || errors.Is(err, ErrNoGrafanaSource)
}

// IsModelInvocation returns true if the model call failed
func IsModelInvocation(err error) bool {
	return pipeline.IsModelInvocation(err)
}
