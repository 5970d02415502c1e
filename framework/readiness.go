package framework

import (
	corev1 "k8s.io/api/core/v1"
)

// isPodReady checks if a pod is in Ready state
func isPodReady(pod *corev1.Pod) bool {
	if pod.Status.Phase != corev1.PodRunning {
		return false
	}

	for _, condition := range pod.Status.Conditions {
		if condition.Type == corev1.PodReady {
			return condition.Status == corev1.ConditionTrue
		}
	}

	return false
}

// containerStates indexes container statuses by name
func containerStates(pod *corev1.Pod) map[string]corev1.ContainerStatus {
	states := make(map[string]corev1.ContainerStatus, len(pod.Status.ContainerStatuses))
	for _, s := range pod.Status.ContainerStatuses {
		states[s.Name] = s
	}
	return states
}

func lastTermination(s corev1.ContainerStatus) string {
	if t := s.LastTerminationState.Terminated; t != nil {
		return t.Reason
	}
	return ""
}
