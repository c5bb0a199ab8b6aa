package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for kubeviz self-monitoring.
// It uses a custom registry to avoid polluting the global default.
type Metrics struct {
	Registry *prometheus.Registry

	// Poll loop metrics
	PollCyclesTotal   *prometheus.CounterVec
	PollTicksSkipped  prometheus.Counter
	PollCycleDuration prometheus.Histogram
	CycleState        *prometheus.GaugeVec

	// Upstream fetch metrics
	FetchDuration    *prometheus.HistogramVec
	FetchErrorsTotal *prometheus.CounterVec
	UpstreamBytes    *prometheus.CounterVec

	// Graph metrics
	GraphBuildDuration prometheus.Histogram
	GraphNodes         *prometheus.GaugeVec
	GraphLinks         prometheus.Gauge
	GraphWarningsTotal *prometheus.CounterVec

	// Viewer channel metrics
	ViewersConnected      prometheus.Gauge
	BroadcastTotal        *prometheus.CounterVec
	BroadcastDropped      prometheus.Counter
	NamespaceChangesTotal prometheus.Counter

	// Runtime
	MemoryLimitRatio       prometheus.Gauge
	MemoryPressureReleases prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all Prometheus metrics
// registered on a custom registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		PollCyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kubeviz_poll_cycles_total",
			Help: "Total number of poll cycles by trigger and result.",
		}, []string{"trigger", "result"}),
		PollTicksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kubeviz_poll_ticks_skipped_total",
			Help: "Timer ticks skipped because the previous timer cycle was still running.",
		}),
		PollCycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kubeviz_poll_cycle_duration_seconds",
			Help:    "Duration of complete poll cycles in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		CycleState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kubeviz_cycle_state",
			Help: "Number of poll cycles currently in each state.",
		}, []string{"state"}),

		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kubeviz_fetch_duration_seconds",
			Help:    "Duration of upstream fetches in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource"}),
		FetchErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kubeviz_fetch_errors_total",
			Help: "Total number of failed upstream fetches.",
		}, []string{"resource", "code"}),
		UpstreamBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kubeviz_upstream_response_bytes_total",
			Help: "Total bytes read from upstream responses.",
		}, []string{"resource"}),

		GraphBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kubeviz_graph_build_duration_seconds",
			Help:    "Duration of graph builds in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		GraphNodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kubeviz_graph_nodes",
			Help: "Nodes in the latest graph snapshot by type.",
		}, []string{"type"}),
		GraphLinks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kubeviz_graph_links",
			Help: "Links in the latest graph snapshot.",
		}),
		GraphWarningsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kubeviz_graph_warnings_total",
			Help: "Total number of soft warnings raised while building graphs.",
		}, []string{"code"}),

		ViewersConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kubeviz_viewers_connected",
			Help: "Number of currently connected viewers.",
		}),
		BroadcastTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kubeviz_broadcast_total",
			Help: "Total number of events broadcast to viewers.",
		}, []string{"event"}),
		BroadcastDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kubeviz_broadcast_dropped_total",
			Help: "Messages dropped because a viewer's send queue was full.",
		}),
		NamespaceChangesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kubeviz_namespace_changes_total",
			Help: "Total number of namespace change requests from viewers.",
		}),

		MemoryLimitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kubeviz_memory_limit_ratio",
			Help: "Memory in use as a fraction of GOMEMLIMIT (0 when no limit is set).",
		}),
		MemoryPressureReleases: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kubeviz_memory_pressure_releases_total",
			Help: "Times memory was returned to the OS because usage crossed the pressure threshold.",
		}),
	}

	reg.MustRegister(
		m.PollCyclesTotal,
		m.PollTicksSkipped,
		m.PollCycleDuration,
		m.CycleState,
		m.FetchDuration,
		m.FetchErrorsTotal,
		m.UpstreamBytes,
		m.GraphBuildDuration,
		m.GraphNodes,
		m.GraphLinks,
		m.GraphWarningsTotal,
		m.ViewersConnected,
		m.BroadcastTotal,
		m.BroadcastDropped,
		m.NamespaceChangesTotal,
		m.MemoryLimitRatio,
		m.MemoryPressureReleases,
	)

	return m
}
