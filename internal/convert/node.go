package convert

import (
	corev1 "k8s.io/api/core/v1"

	"github.com/kubeadapt/kubeviz/pkg/model"
)

// NodeToResource converts a Kubernetes Node object to a model.NodeResource.
// Pure function.
func NodeToResource(node *corev1.Node) model.NodeResource {
	return model.NodeResource{
		Name:      node.Name,
		Ready:     nodeReady(node.Status.Conditions),
		HasTaints: len(node.Spec.Taints) > 0,
		Labels:    node.Labels,
	}
}

// NodesToResources converts a NodeList, preserving list order.
func NodesToResources(list *corev1.NodeList) []model.NodeResource {
	if list == nil {
		return nil
	}
	out := make([]model.NodeResource, len(list.Items))
	for i := range list.Items {
		out[i] = NodeToResource(&list.Items[i])
	}
	return out
}

// nodeReady returns true if the node has a Ready condition with status True.
// A missing Ready condition counts as not ready.
func nodeReady(conditions []corev1.NodeCondition) bool {
	for _, c := range conditions {
		if c.Type == corev1.NodeReady {
			return c.Status == corev1.ConditionTrue
		}
	}
	return false
}
