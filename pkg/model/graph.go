package model

import corev1 "k8s.io/api/core/v1"

// NodeType discriminates the variants of a GraphNode.
type NodeType string

// Graph node variants.
const (
	NodeTypeMaster NodeType = "Master"
	NodeTypeNode   NodeType = "Node"
	NodeTypePod    NodeType = "Pod"
)

// Status tags rendered by viewers. Infra nodes use StatusNone or
// StatusPulse; pods use one of the four pod statuses.
const (
	StatusNone     = ""
	StatusPulse    = "pulse"
	StatusDelete   = "delete"
	StatusStart    = "start"
	StatusNotReady = "notReady"
	StatusReady    = "ready"
)

// DummyColor is the color key shared by all synthesized placeholder nodes.
const DummyColor = "dummy"

// GraphNode is one vertex of a GraphSnapshot. Restarts and Containers are
// only set for pods; an empty Status is left out of the JSON.
type GraphNode struct {
	ID         string                   `json:"id"`
	Text       string                   `json:"text,omitempty"`
	Size       int                      `json:"size"`
	Color      string                   `json:"color,omitempty"`
	Type       NodeType                 `json:"type"`
	Status     string                   `json:"status,omitempty"`
	Restarts   *int32                   `json:"restarts,omitempty"`
	Containers []corev1.ContainerStatus `json:"containers,omitempty"`
}

// GraphLink is a directed edge between two GraphNode ids.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Length int    `json:"length"`
	Dotted bool   `json:"dotted"`
}

// GraphSnapshot is the unit of broadcast. Each snapshot fully replaces the
// previous one on the viewer.
type GraphSnapshot struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}


// CountByType returns how many nodes of each variant the snapshot holds.
func (s *GraphSnapshot) CountByType() map[NodeType]int {
	counts := make(map[NodeType]int, 3)
	for _, n := range s.Nodes {
		counts[n.Type]++
	}
	return counts
}
