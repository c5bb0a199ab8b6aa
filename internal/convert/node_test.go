package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// makeNode returns a test node with the given Ready status and taints.
func makeNode(name string, ready corev1.ConditionStatus, taints ...corev1.Taint) *corev1.Node {
	node := &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: map[string]string{"kubernetes.io/os": "linux"},
		},
		Spec: corev1.NodeSpec{Taints: taints},
	}
	if ready != "" {
		node.Status.Conditions = []corev1.NodeCondition{
			{Type: corev1.NodeMemoryPressure, Status: corev1.ConditionFalse},
			{Type: corev1.NodeReady, Status: ready},
		}
	}
	return node
}

func TestNodeToResource_Ready(t *testing.T) {
	got := NodeToResource(makeNode("n1", corev1.ConditionTrue))

	assert.Equal(t, "n1", got.Name)
	assert.True(t, got.Ready)
	assert.False(t, got.HasTaints)
	assert.Equal(t, "linux", got.Labels["kubernetes.io/os"])
}

func TestNodeToResource_NotReadyStatuses(t *testing.T) {
	for _, status := range []corev1.ConditionStatus{corev1.ConditionFalse, corev1.ConditionUnknown} {
		t.Run(string(status), func(t *testing.T) {
			assert.False(t, NodeToResource(makeNode("n1", status)).Ready)
		})
	}
}

func TestNodeToResource_MissingReadyCondition(t *testing.T) {
	node := makeNode("n1", "")
	node.Status.Conditions = []corev1.NodeCondition{
		{Type: corev1.NodeDiskPressure, Status: corev1.ConditionFalse},
	}
	assert.False(t, NodeToResource(node).Ready)

	node.Status.Conditions = nil
	assert.False(t, NodeToResource(node).Ready)
}

func TestNodeToResource_Taints(t *testing.T) {
	got := NodeToResource(makeNode("cp", corev1.ConditionTrue, corev1.Taint{
		Key:    "node-role.kubernetes.io/control-plane",
		Effect: corev1.TaintEffectNoSchedule,
	}))
	assert.True(t, got.HasTaints)

	empty := makeNode("n1", corev1.ConditionTrue)
	empty.Spec.Taints = []corev1.Taint{}
	assert.False(t, NodeToResource(empty).HasTaints)
}

func TestNodesToResources_PreservesOrder(t *testing.T) {
	list := &corev1.NodeList{Items: []corev1.Node{
		*makeNode("b", corev1.ConditionTrue),
		*makeNode("a", corev1.ConditionFalse),
		*makeNode("c", corev1.ConditionTrue),
	}}

	got := NodesToResources(list)
	if assert.Len(t, got, 3) {
		assert.Equal(t, "b", got[0].Name)
		assert.Equal(t, "a", got[1].Name)
		assert.Equal(t, "c", got[2].Name)
	}
	assert.Nil(t, NodesToResources(nil))
}

func TestNamespaceNames(t *testing.T) {
	list := &corev1.NamespaceList{Items: []corev1.Namespace{
		{ObjectMeta: metav1.ObjectMeta{Name: "default"}},
		{ObjectMeta: metav1.ObjectMeta{Name: "kube-system"}},
	}}
	assert.Equal(t, []string{"default", "kube-system"}, NamespaceNames(list))
	assert.Nil(t, NamespaceNames(nil))
}
