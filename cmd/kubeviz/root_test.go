package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespacesCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"kind":"NamespaceList","apiVersion":"v1","items":[{"metadata":{"name":"default"}},{"metadata":{"name":"shop"}}]}`))
	}))
	defer srv.Close()
	t.Setenv("KUBEVIZ_NAMESPACES_URL", srv.URL+"/api/v1/namespaces/")
	t.Setenv("KUBEVIZ_CONFIG_FILE", "")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"namespaces"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Equal(t, "default\nshop\n", out.String())
}

func TestInvalidConfigFailsBeforeRunning(t *testing.T) {
	t.Setenv("KUBEVIZ_MASTER_SIZE", "-1")
	t.Setenv("KUBEVIZ_CONFIG_FILE", "")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"namespaces"})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
