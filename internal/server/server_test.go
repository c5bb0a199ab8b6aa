package server

import (
	"compress/gzip"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/kubeadapt/kubeviz/internal/errors"
	"github.com/kubeadapt/kubeviz/internal/observability"
	"github.com/kubeadapt/kubeviz/internal/poller"
	"github.com/kubeadapt/kubeviz/pkg/model"
)

// --- Mock implementations ---

type mockReadiness struct{ ready bool }

func (m *mockReadiness) IsReady() bool { return m.ready }

type mockSnapshots struct {
	snap *model.GraphSnapshot
	age  time.Duration
}

func (m *mockSnapshots) LatestSnapshot() *model.GraphSnapshot { return m.snap }
func (m *mockSnapshots) SnapshotAge() time.Duration          { return m.age }

type mockLister struct {
	names []string
	err   error
}

func (m *mockLister) FetchNamespaces(context.Context) ([]string, error) {
	return m.names, m.err
}

type mockBroadcaster struct {
	mu   sync.Mutex
	msgs []string
}

func (m *mockBroadcaster) BroadcastError(msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

type mockViewers struct{ count int }

func (m *mockViewers) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusTeapot)
}

func (m *mockViewers) Count() int { return m.count }

type mockCycles struct{}

func (mockCycles) Status() poller.TrackerStatus {
	return poller.TrackerStatus{LastState: poller.StateIdle, LastReason: "MALFORMED_RESPONSE"}
}

type fixture struct {
	server      *Server
	readiness   *mockReadiness
	snapshots   *mockSnapshots
	lister      *mockLister
	broadcaster *mockBroadcaster
	viewers     *mockViewers
	errors      *errors.ErrorCollector
}

func newFixture(enableDebug bool) *fixture {
	clk := testingclock.NewFakeClock(time.Now())
	f := &fixture{
		readiness:   &mockReadiness{},
		snapshots:   &mockSnapshots{},
		lister:      &mockLister{},
		broadcaster: &mockBroadcaster{},
		viewers:     &mockViewers{},
		errors:      errors.NewErrorCollector(clk),
	}
	f.server = NewServer(0, Deps{
		Metrics:     observability.NewMetrics(),
		Readiness:   f.readiness,
		Snapshots:   f.snapshots,
		Namespaces:  f.lister,
		Broadcaster: f.broadcaster,
		Viewers:     f.viewers,
		Errors:      f.errors,
		Cycles:      mockCycles{},
		Clock:       clk,
	}, enableDebug)
	return f
}

func (f *fixture) do(method, path string, header http.Header) *http.Response {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w.Result()
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// --- Tests ---

func TestHealthz(t *testing.T) {
	f := newFixture(false)
	resp := f.do(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestReadyz(t *testing.T) {
	f := newFixture(false)

	resp := f.do(http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, false, body["ready"])

	f.readiness.ready = true
	f.snapshots.age = 1500 * time.Millisecond
	resp = f.do(http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body = nil
	decode(t, resp, &body)
	assert.Equal(t, true, body["ready"])
	assert.InDelta(t, 1.5, body["snapshot_age_seconds"], 0.001)
}

func TestReadyz_ReportsViewersAndActiveErrors(t *testing.T) {
	f := newFixture(false)
	f.readiness.ready = true
	f.viewers.count = 3
	f.errors.Report(*errors.Unreachable("fetcher.pods", stderrors.New("connection refused")))
	f.errors.Report(*errors.Unreachable("fetcher.nodes", stderrors.New("connection refused")))

	resp := f.do(http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, float64(3), body["viewers"])
	assert.Equal(t, []any{string(errors.ErrUpstreamUnreachable)}, body["active_errors"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(false)
	resp := f.do(http.MethodGet, "/metrics", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "kubeviz_viewers_connected")
}

func TestWebsocketRouteMounted(t *testing.T) {
	f := newFixture(false)
	resp := f.do(http.MethodGet, "/ws", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}

func TestNamespaces_Success(t *testing.T) {
	f := newFixture(false)
	f.lister.names = []string{"default", "kube-system"}

	resp := f.do(http.MethodGet, "/api/namespaces", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-Kubeviz-Stale"))

	var names []string
	decode(t, resp, &names)
	assert.Equal(t, []string{"default", "kube-system"}, names)
	assert.Empty(t, f.broadcaster.msgs)
}

func TestNamespaces_FailureServesCachedList(t *testing.T) {
	f := newFixture(false)
	f.lister.names = []string{"default"}
	f.do(http.MethodGet, "/api/namespaces", nil).Body.Close()

	f.lister.names = nil
	f.lister.err = errors.Unreachable("fetcher.namespaces", stderrors.New("connection refused"))

	resp := f.do(http.MethodGet, "/api/namespaces", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get("X-Kubeviz-Stale"))

	var names []string
	decode(t, resp, &names)
	assert.Equal(t, []string{"default"}, names)
	require.Len(t, f.broadcaster.msgs, 1)
	assert.Equal(t, "Request to k8s failed.\nError message: connection refused", f.broadcaster.msgs[0])
}

func TestNamespaces_FailureWithoutCache(t *testing.T) {
	f := newFixture(false)
	f.lister.err = stderrors.New("boom")

	resp := f.do(http.MethodGet, "/api/namespaces", nil)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(body))
}

func TestNamespaces_Gzip(t *testing.T) {
	f := newFixture(false)
	for i := 0; i < 200; i++ {
		f.lister.names = append(f.lister.names, fmt.Sprintf("team-namespace-%03d", i))
	}

	resp := f.do(http.MethodGet, "/api/namespaces", http.Header{"Accept-Encoding": {"gzip"}})
	defer resp.Body.Close()
	require.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

	zr, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	var names []string
	require.NoError(t, json.NewDecoder(zr).Decode(&names))
	assert.Len(t, names, 200)
}

func TestRefreshNamespaces_WarmsCache(t *testing.T) {
	f := newFixture(false)
	f.lister.names = []string{"a", "b"}

	names, err := f.server.RefreshNamespaces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	f.lister.err = stderrors.New("down")
	names, err = f.server.RefreshNamespaces(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestDebugEndpointsDisabled(t *testing.T) {
	f := newFixture(false)
	for _, path := range []string{"/debug/snapshot", "/debug/errors", "/debug/cycles", "/debug/pprof/"} {
		resp := f.do(http.MethodGet, path, nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestDebugSnapshot(t *testing.T) {
	f := newFixture(true)

	resp := f.do(http.MethodGet, "/debug/snapshot", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	f.snapshots.snap = &model.GraphSnapshot{
		Nodes: []model.GraphNode{{ID: "cp", Type: model.NodeTypeMaster, Size: 15}},
		Links: []model.GraphLink{},
	}
	resp = f.do(http.MethodGet, "/debug/snapshot", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap model.GraphSnapshot
	decode(t, resp, &snap)
	require.Len(t, snap.Nodes, 1)
	assert.Equal(t, model.NodeTypeMaster, snap.Nodes[0].Type)
}

func TestDebugErrors(t *testing.T) {
	f := newFixture(true)
	f.errors.Report(errors.VizError{Code: errors.ErrIncompleteGraph, Component: "graph", Message: "no master"})

	resp := f.do(http.MethodGet, "/debug/errors", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var active []errors.VizError
	decode(t, resp, &active)
	require.Len(t, active, 1)
	assert.Equal(t, errors.ErrIncompleteGraph, active[0].Code)
}

func TestDebugCycles(t *testing.T) {
	f := newFixture(true)
	resp := f.do(http.MethodGet, "/debug/cycles", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st map[string]any
	decode(t, resp, &st)
	assert.Equal(t, "MALFORMED_RESPONSE", st["last_reason"])
}

func TestStartStop(t *testing.T) {
	f := newFixture(false)
	require.NoError(t, f.server.Start())
	assert.False(t, strings.HasSuffix(f.server.Addr(), ":0"))

	resp, err := http.Get("http://" + f.server.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.server.Stop(ctx))
}
