package graph

import (
	"fmt"
	"strconv"

	corev1 "k8s.io/api/core/v1"

	vizerrors "github.com/kubeadapt/kubeviz/internal/errors"
	"github.com/kubeadapt/kubeviz/pkg/model"
)

// Component is the error-collector component name for graph warnings.
const Component = "graph"

// Options controls sizes, link lengths, padding and role detection.
type Options struct {
	MasterSize       int
	MinionSize       int
	PodSize          int
	PodLinkLength    int
	MasterLinkLength int
	DummyNodes       int
	Classifier       RoleClassifier
}

// BuildGraph turns node and pod resources into a GraphSnapshot.
// It does no I/O and reads no clock. Soft problems are returned as
// warnings; the snapshot is always usable.
//
// Node order is infra nodes, then dummy nodes, then pods, each group in
// input order. Every pod links to its NodeName even when that node is not
// in the snapshot. When a master is identified every other infra node
// links to it.
func BuildGraph(nodes []model.NodeResource, pods []model.PodResource, opts Options) (*model.GraphSnapshot, []vizerrors.VizError) {
	classifier := opts.Classifier
	if classifier == nil {
		classifier = TaintClassifier{}
	}

	var warnings []vizerrors.VizError

	infra := make([]model.GraphNode, 0, max(len(nodes), opts.DummyNodes))
	taken := make(map[string]struct{}, len(nodes))
	master := ""
	for _, n := range nodes {
		gn := model.GraphNode{
			ID:     n.Name,
			Text:   n.Name,
			Size:   opts.MinionSize,
			Color:  n.Name,
			Type:   model.NodeTypeNode,
			Status: infraStatus(n.Ready),
		}
		if classifier.IsMaster(n) {
			// Last classified node wins the master links.
			master = n.Name
			gn.Type = model.NodeTypeMaster
			gn.Size = opts.MasterSize
		}
		taken[n.Name] = struct{}{}
		infra = append(infra, gn)
	}

	if master == "" {
		warnings = append(warnings, vizerrors.VizError{
			Code:      vizerrors.ErrIncompleteGraph,
			Message:   "Could not identify master node. Please check if k8s update was a breaking change.",
			Component: Component,
		})
	}

	for i := 0; len(infra) < opts.DummyNodes; i++ {
		id := "dummy" + strconv.Itoa(i)
		if _, ok := taken[id]; ok {
			continue
		}
		infra = append(infra, model.GraphNode{
			ID:    id,
			Size:  opts.MinionSize,
			Color: model.DummyColor,
			Type:  model.NodeTypeNode,
		})
	}

	out := &model.GraphSnapshot{
		Nodes: make([]model.GraphNode, 0, len(infra)+len(pods)),
		Links: make([]model.GraphLink, 0, len(pods)+len(infra)),
	}
	out.Nodes = append(out.Nodes, infra...)

	missing := 0
	for _, p := range pods {
		restarts := p.TotalRestarts()
		if p.MissingContainerStatus {
			missing++
		}
		out.Nodes = append(out.Nodes, model.GraphNode{
			ID:         p.Name,
			Text:       p.Name,
			Size:       opts.PodSize,
			Color:      p.GroupKey,
			Type:       model.NodeTypePod,
			Status:     PodStatus(p),
			Restarts:   &restarts,
			Containers: p.Containers,
		})
		out.Links = append(out.Links, model.GraphLink{
			Source: p.Name,
			Target: p.NodeName,
			Length: opts.PodLinkLength,
			Dotted: true,
		})
	}

	if master != "" {
		for _, n := range infra {
			if n.ID == master {
				continue
			}
			out.Links = append(out.Links, model.GraphLink{
				Source: n.ID,
				Target: master,
				Length: opts.MasterLinkLength,
				Dotted: false,
			})
		}
	}

	if missing > 0 {
		warnings = append(warnings, vizerrors.VizError{
			Code:      vizerrors.ErrMissingContainerStatus,
			Message:   fmt.Sprintf("%d pod(s) carry no container statuses; their restart count is 0", missing),
			Component: Component,
		})
	}

	return out, warnings
}

// PodStatus classifies a pod. The order is significant: a pod being
// deleted is "delete" whatever its phase, and a Pending pod is "start"
// whatever its conditions.
func PodStatus(p model.PodResource) string {
	switch {
	case p.Deleting:
		return model.StatusDelete
	case p.Phase == corev1.PodPending:
		return model.StatusStart
	case p.ReadyCondition == corev1.ConditionFalse:
		return model.StatusNotReady
	default:
		return model.StatusReady
	}
}

func infraStatus(ready bool) string {
	if ready {
		return model.StatusNone
	}
	return model.StatusPulse
}
