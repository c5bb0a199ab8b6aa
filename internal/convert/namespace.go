package convert

import corev1 "k8s.io/api/core/v1"

// NamespaceNames returns the namespace names in list order.
func NamespaceNames(list *corev1.NamespaceList) []string {
	if list == nil {
		return nil
	}
	names := make([]string, len(list.Items))
	for i, ns := range list.Items {
		names[i] = ns.Name
	}
	return names
}
