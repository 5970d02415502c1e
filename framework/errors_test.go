package framework

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/redhat/perf-tests-reporter/framework/pipeline"
	"github.com/redhat/perf-tests-reporter/framework/store"
)

func TestResourceError(t *testing.T) {
	baseErr := errors.New("base error")
	resErr := NewResourceError("Pod", "default", "my-pod", baseErr)

	expected := "Pod default/my-pod: base error"
	if resErr.Error() != expected {
		t.Errorf("expected %q, got %q", expected, resErr.Error())
	}

	if !errors.Is(resErr, baseErr) {
		t.Error("expected ResourceError to wrap base error")
	}
}

func TestResourceError_ClusterScoped(t *testing.T) {
	resErr := NewResourceError("PodList", "", "app=api", errors.New("forbidden"))

	expected := "PodList app=api: forbidden"
	if resErr.Error() != expected {
		t.Errorf("expected %q, got %q", expected, resErr.Error())
	}
}

func TestCollectionError(t *testing.T) {
	err1 := errors.New("pod a gone")
	err2 := errors.New("pod b gone")
	collErr := &CollectionError{TestID: 3, Source: "k8s_logs", Errs: []error{err1, err2}}

	if !errors.Is(collErr, err1) || !errors.Is(collErr, err2) {
		t.Error("expected CollectionError to wrap every error")
	}
	if !strings.Contains(collErr.Error(), "2 k8s_logs item(s) failed") {
		t.Errorf("unexpected message %q", collErr.Error())
	}
}

func TestAnalysisError(t *testing.T) {
	inner := &pipeline.Error{Kind: pipeline.ErrModelInvocation, State: pipeline.StateInvoking, Err: errors.New("503")}
	err := &AnalysisError{TestID: 9, Err: inner}

	if !IsModelInvocation(err) {
		t.Error("expected AnalysisError to expose the model invocation kind")
	}
	if IsConfiguration(err) {
		t.Error("expected model failure not to be a configuration error")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("load: %w", store.ErrTestNotFound)) {
		t.Error("expected wrapped ErrTestNotFound to be not found")
	}
	if !IsNotFound(ErrProjectNotFound) {
		t.Error("expected ErrProjectNotFound to be not found")
	}
	if IsNotFound(ErrNoArtifacts) {
		t.Error("expected ErrNoArtifacts not to be not found")
	}
}

func TestIsConfiguration(t *testing.T) {
	if !IsConfiguration(fmt.Errorf("project x: %w", ErrNoGrafanaSource)) {
		t.Error("expected missing grafana source to be a configuration error")
	}
	if !IsConfiguration(&pipeline.Error{Kind: pipeline.ErrConfiguration, Err: errors.New("unknown backend")}) {
		t.Error("expected pipeline configuration error")
	}
}
