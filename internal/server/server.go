// Package server exposes the viewer websocket, the namespace list, and the
// health, metrics and debug endpoints on one HTTP listener.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/utils/clock"

	"github.com/kubeadapt/kubeviz/internal/errors"
	"github.com/kubeadapt/kubeviz/internal/observability"
	"github.com/kubeadapt/kubeviz/internal/poller"
	"github.com/kubeadapt/kubeviz/internal/store"
	"github.com/kubeadapt/kubeviz/pkg/model"
)

// ReadinessChecker reports whether a graph has been built yet.
type ReadinessChecker interface {
	IsReady() bool
}

// SnapshotProvider returns the last built graph.
type SnapshotProvider interface {
	LatestSnapshot() *model.GraphSnapshot
	SnapshotAge() time.Duration
}

// NamespaceLister fetches namespace names from the cluster.
type NamespaceLister interface {
	FetchNamespaces(ctx context.Context) ([]string, error)
}

// ErrorBroadcaster tells viewers about failures.
type ErrorBroadcaster interface {
	BroadcastError(msg string) error
}

// ViewerHub serves the viewer websocket and counts connected viewers.
type ViewerHub interface {
	http.Handler
	Count() int
}

// CycleStatusProvider reports poll cycle progress for debugging.
type CycleStatusProvider interface {
	Status() poller.TrackerStatus
}

// Deps are the collaborators a Server serves from. Metrics, Readiness,
// Namespaces and Broadcaster are required.
type Deps struct {
	Metrics     *observability.Metrics
	Readiness   ReadinessChecker
	Snapshots   SnapshotProvider
	Namespaces  NamespaceLister
	Broadcaster ErrorBroadcaster
	Viewers     ViewerHub
	Errors      *errors.ErrorCollector
	Cycles      CycleStatusProvider
	Clock       clock.PassiveClock
}

// Server is the kubeviz HTTP server.
type Server struct {
	httpServer *http.Server
	deps       Deps
	namespaces *store.Latest[[]string]
	listener   net.Listener
}

// NewServer creates a server on the given port. Pass port=0 to let the OS
// pick a free port. When enableDebug is true, pprof and debug endpoints are
// registered.
func NewServer(port int, deps Deps, enableDebug bool) *Server {
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}
	s := &Server{
		deps:       deps,
		namespaces: store.NewLatest[[]string](deps.Clock),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("GET /api/namespaces", gzhttp.GzipHandler(http.HandlerFunc(s.handleNamespaces)))
	if deps.Viewers != nil {
		mux.Handle("/ws", deps.Viewers)
	}

	if enableDebug {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

		mux.Handle("GET /debug/snapshot", gzhttp.GzipHandler(http.HandlerFunc(s.handleDebugSnapshot)))
		mux.HandleFunc("GET /debug/errors", s.handleDebugErrors)
		mux.HandleFunc("GET /debug/cycles", s.handleDebugCycles)
	}

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
		// No read or write timeout: viewer websockets set their own deadlines.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address; after Start it is the bound address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start begins listening and serving HTTP in a background goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server listen: %w", err)
	}
	s.listener = ln
	s.httpServer.Addr = ln.Addr().String()

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http server exited", "error", err)
		}
	}()
	slog.Info("http server listening", "addr", s.httpServer.Addr)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// RefreshNamespaces fetches the namespace list and caches it. On failure the
// error is broadcast to viewers and the cached list, if any, is returned
// along with the error.
func (s *Server) RefreshNamespaces(ctx context.Context) ([]string, error) {
	names, err := s.deps.Namespaces.FetchNamespaces(ctx)
	if err == nil {
		s.namespaces.Store(names)
		return names, nil
	}

	slog.Warn("namespace fetch failed, serving cached list", "code", errors.CodeOf(err), "error", err)
	if berr := s.deps.Broadcaster.BroadcastError(err.Error()); berr != nil {
		slog.Error("failed to broadcast namespace error", "error", berr)
	}
	cached, _ := s.namespaces.Load()
	return cached, err
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	ready := s.deps.Readiness.IsReady()
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	body := map[string]any{"ready": ready}
	if ready && s.deps.Snapshots != nil {
		body["snapshot_age_seconds"] = s.deps.Snapshots.SnapshotAge().Seconds()
	}
	if s.deps.Viewers != nil {
		body["viewers"] = s.deps.Viewers.Count()
	}
	if s.deps.Errors != nil {
		body["active_errors"] = s.deps.Errors.GetActiveErrorCodes()
	}
	writeJSON(w, status, body)
}

func (s *Server) handleNamespaces(w http.ResponseWriter, r *http.Request) {
	names, err := s.RefreshNamespaces(r.Context())
	if names == nil {
		names = []string{}
	}
	if err != nil {
		w.Header().Set("X-Kubeviz-Stale", "true")
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleDebugSnapshot(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Snapshots == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	snap := s.deps.Snapshots.LatestSnapshot()
	if snap == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDebugErrors(w http.ResponseWriter, _ *http.Request) {
	active := []errors.VizError{}
	if s.deps.Errors != nil {
		active = s.deps.Errors.GetActiveErrors()
	}
	writeJSON(w, http.StatusOK, active)
}

func (s *Server) handleDebugCycles(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Cycles == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Cycles.Status())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
