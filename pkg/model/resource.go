package model

import corev1 "k8s.io/api/core/v1"

// NodeResource is the slice of a cluster node that the graph needs.
type NodeResource struct {
	Name  string
	Ready bool
	// HasTaints is the only control-plane signal the upstream node list
	// exposes without extra configuration. It is a heuristic.
	HasTaints bool
	Labels    map[string]string
}

// PodResource is the slice of a pod that the graph needs.
type PodResource struct {
	Name     string
	Deleting bool
	Phase    corev1.PodPhase
	// ReadyCondition is the status of the pod's Ready condition:
	// "True", "False", "Unknown", or "" when the condition is absent.
	ReadyCondition corev1.ConditionStatus
	RestartCounts  []int32
	NodeName       string
	GroupKey       string
	Containers     []corev1.ContainerStatus

	// MissingContainerStatus is set when the upstream object carried no
	// container statuses at all (freshly scheduled pods, or a schema change).
	MissingContainerStatus bool
}

// TotalRestarts sums the restart counts of all containers.
func (p PodResource) TotalRestarts() int32 {
	var sum int32
	for _, c := range p.RestartCounts {
		sum += c
	}
	return sum
}
