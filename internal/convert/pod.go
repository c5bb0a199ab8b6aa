package convert

import (
	corev1 "k8s.io/api/core/v1"

	"github.com/kubeadapt/kubeviz/pkg/model"
)

// Labels used to group pods by color, in order of preference.
const (
	LabelApp = "app"
	LabelRun = "run"
)

// PodToResource converts a Kubernetes Pod object to a model.PodResource.
// Pure function.
func PodToResource(pod *corev1.Pod) model.PodResource {
	statuses := pod.Status.ContainerStatuses

	res := model.PodResource{
		Name:                   pod.Name,
		Deleting:               pod.DeletionTimestamp != nil,
		Phase:                  pod.Status.Phase,
		ReadyCondition:         podReadyCondition(pod.Status.Conditions),
		NodeName:               pod.Spec.NodeName,
		GroupKey:               GroupKey(pod.Labels),
		Containers:             statuses,
		MissingContainerStatus: len(statuses) == 0,
	}

	if len(statuses) > 0 {
		res.RestartCounts = make([]int32, len(statuses))
		for i, s := range statuses {
			res.RestartCounts[i] = s.RestartCount
		}
	}

	return res
}

// PodsToResources converts a PodList, preserving list order.
func PodsToResources(list *corev1.PodList) []model.PodResource {
	if list == nil {
		return nil
	}
	out := make([]model.PodResource, len(list.Items))
	for i := range list.Items {
		out[i] = PodToResource(&list.Items[i])
	}
	return out
}

// GroupKey returns the "app" label, else the "run" label, else "".
// A nil map is fine.
func GroupKey(labels map[string]string) string {
	if v, ok := labels[LabelApp]; ok {
		return v
	}
	return labels[LabelRun]
}

// podReadyCondition returns the status of the Ready condition, or "" if the
// pod has none.
func podReadyCondition(conditions []corev1.PodCondition) corev1.ConditionStatus {
	for _, c := range conditions {
		if c.Type == corev1.PodReady {
			return c.Status
		}
	}
	return ""
}
