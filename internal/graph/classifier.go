package graph

import (
	"fmt"

	"github.com/kubeadapt/kubeviz/pkg/model"
)

// RoleClassifier decides whether a node is the control-plane node.
type RoleClassifier interface {
	IsMaster(node model.NodeResource) bool
}

// TaintClassifier treats any node carrying taints as the master. This
// matches stock single-master clusters where only the control plane is
// tainted, and misfires on clusters that taint workers.
type TaintClassifier struct{}

// IsMaster implements RoleClassifier.
func (TaintClassifier) IsMaster(node model.NodeResource) bool {
	return node.HasTaints
}

// DefaultRoleLabels are the well-known control-plane role labels.
var DefaultRoleLabels = []string{
	"node-role.kubernetes.io/control-plane",
	"node-role.kubernetes.io/master",
}

// LabelClassifier treats a node as master when it carries any of Labels
// (the value is ignored). An empty Labels uses DefaultRoleLabels.
type LabelClassifier struct {
	Labels []string
}

// IsMaster implements RoleClassifier.
func (c LabelClassifier) IsMaster(node model.NodeResource) bool {
	labels := c.Labels
	if len(labels) == 0 {
		labels = DefaultRoleLabels
	}
	for _, l := range labels {
		if _, ok := node.Labels[l]; ok {
			return true
		}
	}
	return false
}

// ClassifierByName resolves a configured classifier name.
func ClassifierByName(name string) (RoleClassifier, error) {
	switch name {
	case "", "taint":
		return TaintClassifier{}, nil
	case "label":
		return LabelClassifier{}, nil
	default:
		return nil, fmt.Errorf("graph: unknown master classifier %q", name)
	}
}
