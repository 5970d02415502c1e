package framework

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/redhat/perf-tests-reporter/framework/artifact"
	"github.com/redhat/perf-tests-reporter/framework/concurrent"
	"github.com/redhat/perf-tests-reporter/framework/events"
	"github.com/redhat/perf-tests-reporter/framework/retry"
	"github.com/redhat/perf-tests-reporter/framework/storage"
	"github.com/redhat/perf-tests-reporter/framework/store"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// PodsListFile is the name of the pod inventory artifact
const PodsListFile = "pods_list.json"

const logFetchConcurrency = 4

// ContainerInfo is one container of a pod inventory
type ContainerInfo struct {
	Name            string            `json:"name"`
	Image           string            `json:"image"`
	Limits          map[string]string `json:"limits,omitempty"`
	Requests        map[string]string `json:"requests,omitempty"`
	Restarts        int32             `json:"restarts"`
	LastTermination string            `json:"last_termination,omitempty"`
}

// PodInfo is one pod of a pod inventory
type PodInfo struct {
	Namespace  string          `json:"namespace"`
	Name       string          `json:"name"`
	Phase      string          `json:"phase"`
	Ready      bool            `json:"ready"`
	CreatedAt  time.Time       `json:"created_at"`
	Containers []ContainerInfo `json:"containers"`
}

// ContainerLog is the outcome of one container log fetch
type ContainerLog struct {
	Namespace string
	Pod       string
	Container string
	Artifact  *store.Artifact
	Err       error
}

// KubernetesCollection is the result of CollectKubernetes
type KubernetesCollection struct {
	TestID    int64
	Namespace string
	Pods      []PodInfo
	PodsList  *store.Artifact
	Logs      []ContainerLog
}

// Collected counts the container logs stored
func (c *KubernetesCollection) Collected() int {
	n := 0
	for _, l := range c.Logs {
		if l.Err == nil {
			n++
		}
	}
	return n
}

// ListPods returns the pod inventory of a namespace. An empty namespace
// lists every namespace and falls back to "default" when that is forbidden.
func ListPods(ctx context.Context, client kubernetes.Interface, namespace, selector string) ([]PodInfo, error) {
	list, err := listPods(ctx, client, namespace, selector)
	if err != nil && namespace == metav1.NamespaceAll && apierrors.IsForbidden(err) {
		list, err = listPods(ctx, client, metav1.NamespaceDefault, selector)
	}
	if err != nil {
		return nil, NewResourceError("PodList", namespace, selector, err)
	}

	pods := make([]PodInfo, 0, len(list.Items))
	for _, pod := range list.Items {
		info := PodInfo{
			Namespace: pod.Namespace,
			Name:      pod.Name,
			Phase:     string(pod.Status.Phase),
			Ready:     isPodReady(&pod),
			CreatedAt: pod.CreationTimestamp.UTC(),
		}
		states := containerStates(&pod)
		for _, c := range pod.Spec.Containers {
			status := states[c.Name]
			info.Containers = append(info.Containers, ContainerInfo{
				Name:            c.Name,
				Image:           c.Image,
				Limits:          resourceStrings(c.Resources.Limits),
				Requests:        resourceStrings(c.Resources.Requests),
				Restarts:        status.RestartCount,
				LastTermination: lastTermination(status),
			})
		}
		pods = append(pods, info)
	}
	sort.Slice(pods, func(i, j int) bool {
		if pods[i].Namespace != pods[j].Namespace {
			return pods[i].Namespace < pods[j].Namespace
		}
		return pods[i].Name < pods[j].Name
	})
	return pods, nil
}

func listPods(ctx context.Context, client kubernetes.Interface, namespace, selector string) (*corev1.PodList, error) {
	return retry.DoWithData(ctx, func(ctx context.Context) (*corev1.PodList, error) {
		list, err := client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
		if err != nil && !isTransientAPIError(err) {
			return nil, retry.Permanent(err)
		}
		return list, err
	}, retry.WithMaxAttempts(3))
}

func isTransientAPIError(err error) bool {
	return apierrors.IsServerTimeout(err) || apierrors.IsTimeout(err) ||
		apierrors.IsTooManyRequests(err) || apierrors.IsServiceUnavailable(err) ||
		apierrors.IsInternalError(err)
}

func resourceStrings(list corev1.ResourceList) map[string]string {
	if len(list) == 0 {
		return nil
	}
	out := make(map[string]string, len(list))
	for name, q := range list {
		out[string(name)] = q.String()
	}
	return out
}

// ListProjectPods lists pods of a project's cluster. Namespace resolution:
// explicit argument, then the project namespace, then all namespaces.
func (f *Framework) ListProjectPods(ctx context.Context, projectID int64, namespace string) ([]PodInfo, error) {
	project, err := f.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	client, err := f.kubeClients(project.K8s)
	if err != nil {
		return nil, err
	}
	ns, selector := resolveScope(project, namespace)
	return ListPods(ctx, client, ns, selector)
}

func resolveScope(project *store.Project, namespace string) (string, string) {
	var selector string
	if project.K8s != nil {
		selector = project.K8s.LabelSelector
		if namespace == "" {
			namespace = project.K8s.Namespace
		}
	}
	return namespace, selector
}

// CollectKubernetes stores the pod inventory and the container logs of the
// test window as artifacts. A failing log fetch is logged and skipped.
func (f *Framework) CollectKubernetes(ctx context.Context, testID int64, from, to time.Time, namespace string) (*KubernetesCollection, error) {
	test, project, err := f.loadTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	from, to, err = collectionWindow(test, from, to)
	if err != nil {
		return nil, err
	}

	var result *KubernetesCollection
	err = f.collecting(ctx, test, func() error {
		client, err := f.kubeClients(project.K8s)
		if err != nil {
			return err
		}
		ns, selector := resolveScope(project, namespace)
		result, err = f.collectKubernetes(ctx, client, testID, ns, selector, from, to)
		return err
	})
	return result, err
}

func (f *Framework) collectKubernetes(ctx context.Context, client kubernetes.Interface, testID int64, namespace, selector string, from, to time.Time) (*KubernetesCollection, error) {
	logger := f.logger.With("test_id", testID, "namespace", namespace)

	pods, err := ListPods(ctx, client, namespace, selector)
	if err != nil {
		return nil, err
	}

	inventory, err := json.MarshalIndent(pods, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pod inventory: %w", err)
	}
	rel := filepath.Join(storage.TestDir(testID), PodsListFile)
	if err := f.storage.Write(rel, inventory); err != nil {
		return nil, err
	}
	podsList, err := f.store.AddArtifact(ctx, store.Artifact{
		TestID:      testID,
		Kind:        artifact.KindK8sPods,
		DisplayName: PodsListFile,
		FilePath:    rel,
		Metadata:    map[string]any{"namespace": namespace, "pods": len(pods)},
	})
	if err != nil {
		return nil, err
	}

	var targets []ContainerLog
	for _, pod := range pods {
		for _, c := range pod.Containers {
			targets = append(targets, ContainerLog{Namespace: pod.Namespace, Pod: pod.Name, Container: c.Name})
		}
	}

	since := int64(to.Sub(from).Seconds())
	outcomes := concurrent.Settle(ctx, targets, logFetchConcurrency, func(ctx context.Context, t ContainerLog) (*store.Artifact, error) {
		return f.collectContainerLog(ctx, client, testID, t, since)
	})

	result := &KubernetesCollection{
		TestID:    testID,
		Namespace: namespace,
		Pods:      pods,
		PodsList:  podsList,
		Logs:      make([]ContainerLog, len(targets)),
	}
	for i, o := range outcomes {
		entry := targets[i]
		entry.Artifact, entry.Err = o.Value, o.Err
		result.Logs[i] = entry
		if o.Err != nil {
			logger.Warn("container log skipped",
				"pod", entry.Pod,
				"container", entry.Container,
				"error", o.Err)
			f.emit(ctx, testID, events.CollectionFailed, map[string]any{
				"source":    "k8s_logs",
				"namespace": entry.Namespace,
				"pod":       entry.Pod,
				"container": entry.Container,
				"error":     o.Err.Error(),
			})
		}
	}

	logger.Info("kubernetes evidence collected",
		"pods", len(pods),
		"logs", result.Collected(),
		"skipped", len(targets)-result.Collected())
	return result, nil
}

func (f *Framework) collectContainerLog(ctx context.Context, client kubernetes.Interface, testID int64, t ContainerLog, sinceSeconds int64) (*store.Artifact, error) {
	text, err := f.fetchContainerLog(ctx, client, t.Namespace, t.Pod, t.Container, sinceSeconds)
	if err != nil {
		return nil, NewResourceError("Pod", t.Namespace, t.Pod, err)
	}

	name := fmt.Sprintf("logs_%s_%s_%s.txt", t.Namespace, t.Pod, t.Container)
	rel := filepath.Join(storage.TestDir(testID), storage.SanitizeName(name))
	if err := f.storage.Write(rel, []byte(text)); err != nil {
		return nil, err
	}
	return f.store.AddArtifact(ctx, store.Artifact{
		TestID:      testID,
		Kind:        artifact.KindK8sLogs,
		DisplayName: name,
		FilePath:    rel,
		Metadata: map[string]any{
			"namespace": t.Namespace,
			"pod":       t.Pod,
			"container": t.Container,
		},
	})
}

// fetchContainerLog reads one container log bounded by the configured tail
// and fetch timeout
func (f *Framework) fetchContainerLog(ctx context.Context, client kubernetes.Interface, namespace, pod, container string, sinceSeconds int64) (string, error) {
	opts := &corev1.PodLogOptions{Container: container}
	if sinceSeconds > 0 {
		opts.SinceSeconds = &sinceSeconds
	}
	if tail := f.config.LogTailLines; tail > 0 {
		opts.TailLines = &tail
	}

	ctx, cancel := context.WithTimeout(ctx, f.config.LogFetchTimeout)
	defer cancel()

	stream, err := client.CoreV1().Pods(namespace).GetLogs(pod, opts).Stream(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to stream logs of %s: %w", container, err)
	}
	defer stream.Close()

	var logs strings.Builder
	if _, err := io.Copy(&logs, stream); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read logs of %s: %w", container, err)
	}
	return logs.String(), nil
}
