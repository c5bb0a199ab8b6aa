// Package poller runs the fetch, build and broadcast cycle on a fixed
// interval and on demand.
package poller

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/utils/clock"

	"github.com/kubeadapt/kubeviz/internal/config"
	"github.com/kubeadapt/kubeviz/internal/convert"
	"github.com/kubeadapt/kubeviz/internal/errors"
	"github.com/kubeadapt/kubeviz/internal/observability"
	"github.com/kubeadapt/kubeviz/internal/store"
	"github.com/kubeadapt/kubeviz/pkg/model"
)

// Cycle triggers, used as metric labels.
const (
	TriggerStartup = "startup"
	TriggerTimer   = "timer"
	TriggerConnect = "connect"
)

// Fetcher reads the cluster resources a cycle needs.
type Fetcher interface {
	FetchPods(ctx context.Context, namespace string) (*corev1.PodList, error)
	FetchNodes(ctx context.Context) (*corev1.NodeList, error)
}

// GraphBuilder turns resources into a graph.
type GraphBuilder interface {
	Build(nodes []model.NodeResource, pods []model.PodResource) *model.GraphSnapshot
}

// Broadcaster delivers cycle results to viewers.
type Broadcaster interface {
	BroadcastUpdate(snap *model.GraphSnapshot) error
	BroadcastError(msg string) error
}

// NamespaceSource returns the namespace to poll.
type NamespaceSource interface {
	Current() string
}

// Poller owns the poll loop.
type Poller struct {
	fetcher        Fetcher
	builder        GraphBuilder
	broadcaster    Broadcaster
	namespaces     NamespaceSource
	clock          clock.WithTicker
	interval       time.Duration
	serializeTicks bool
	tracker        *CycleTracker
	errorCollector *errors.ErrorCollector
	metrics        *observability.Metrics

	latest      *store.Latest[*model.GraphSnapshot]
	ready       atomic.Bool
	timerActive atomic.Bool
	baseCtx     atomic.Pointer[context.Context]
}

// New creates a Poller. metrics and errCollector may be nil.
func New(
	cfg *config.Config,
	fetcher Fetcher,
	builder GraphBuilder,
	broadcaster Broadcaster,
	namespaces NamespaceSource,
	clk clock.WithTicker,
	metrics *observability.Metrics,
	errCollector *errors.ErrorCollector,
) *Poller {
	return &Poller{
		fetcher:        fetcher,
		builder:        builder,
		broadcaster:    broadcaster,
		namespaces:     namespaces,
		clock:          clk,
		interval:       cfg.PollingInterval,
		serializeTicks: cfg.SerializeTicks,
		tracker:        NewCycleTracker(clk, metrics),
		errorCollector: errCollector,
		metrics:        metrics,
		latest:         store.NewLatest[*model.GraphSnapshot](clk),
	}
}

// IsReady reports whether at least one cycle has completed successfully.
func (p *Poller) IsReady() bool {
	return p.ready.Load()
}

// LatestSnapshot returns the last successfully built graph, or nil.
func (p *Poller) LatestSnapshot() *model.GraphSnapshot {
	snap, _ := p.latest.Load()
	return snap
}

// SnapshotAge returns how long ago the last graph was built.
func (p *Poller) SnapshotAge() time.Duration {
	return p.latest.Age()
}

// Tracker returns the cycle tracker.
func (p *Poller) Tracker() *CycleTracker {
	return p.tracker
}

// Run starts a cycle immediately and then one per interval until ctx is
// canceled. Each timer cycle runs in its own goroutine.
func (p *Poller) Run(ctx context.Context) error {
	p.baseCtx.Store(&ctx)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	slog.Info("poll loop started", "interval", p.interval, "serialize_ticks", p.serializeTicks)
	p.tick(ctx, TriggerStartup)

	for {
		select {
		case <-ctx.Done():
			slog.Info("poll loop stopped")
			return ctx.Err()
		case <-ticker.C():
			p.tick(ctx, TriggerTimer)
		}
	}
}

// tick launches a timer-driven cycle, skipping it when serialization is on
// and the previous timer cycle has not finished.
func (p *Poller) tick(ctx context.Context, trigger string) {
	if p.serializeTicks && !p.timerActive.CompareAndSwap(false, true) {
		slog.Debug("previous cycle still running, skipping tick")
		if p.metrics != nil {
			p.metrics.PollTicksSkipped.Inc()
		}
		return
	}
	go func() {
		if p.serializeTicks {
			defer p.timerActive.Store(false)
		}
		_ = p.RunCycle(ctx, trigger)
	}()
}

// Trigger starts an out-of-band cycle. It does not wait for, or dedupe
// against, cycles already running.
func (p *Poller) Trigger() {
	ctx := context.Background()
	if c := p.baseCtx.Load(); c != nil {
		ctx = *c
	}
	if ctx.Err() != nil {
		return
	}
	go func() { _ = p.RunCycle(ctx, TriggerConnect) }()
}

// RunCycle performs one fetch, build and broadcast pass synchronously.
// A failure aborts the cycle, is broadcast as an error event and returned.
func (p *Poller) RunCycle(ctx context.Context, trigger string) error {
	start := p.clock.Now()
	cycleID := uuid.NewString()
	ns := p.namespaces.Current()
	log := slog.With("cycle_id", cycleID, "trigger", trigger, "namespace", ns)
	cycle := p.tracker.Begin()

	err := p.runCycle(ctx, cycle, ns)

	result := "success"
	switch {
	case err == nil:
		cycle.Succeed()
		log.Debug("poll cycle completed", "duration_ms", p.clock.Since(start).Milliseconds())
	case ctx.Err() != nil:
		result = "canceled"
		cycle.Fail("canceled")
		log.Debug("poll cycle canceled", "error", err)
	default:
		result = "error"
		p.handleFailure(log, cycle, err)
	}

	if p.metrics != nil {
		p.metrics.PollCyclesTotal.WithLabelValues(trigger, result).Inc()
		p.metrics.PollCycleDuration.Observe(p.clock.Since(start).Seconds())
	}
	return err
}

func (p *Poller) runCycle(ctx context.Context, cycle *Cycle, ns string) error {
	cycle.TransitionTo(StateFetchingPods)
	pods, err := p.fetcher.FetchPods(ctx, ns)
	if err != nil {
		return err
	}

	cycle.TransitionTo(StateFetchingNodes)
	nodes, err := p.fetcher.FetchNodes(ctx)
	if err != nil {
		return err
	}

	cycle.TransitionTo(StateBuilding)
	snap := p.builder.Build(convert.NodesToResources(nodes), convert.PodsToResources(pods))
	p.latest.Store(snap)

	cycle.TransitionTo(StateBroadcasting)
	if err := p.broadcaster.BroadcastUpdate(snap); err != nil {
		slog.Error("failed to broadcast graph update", "error", err)
	}

	if p.ready.CompareAndSwap(false, true) {
		slog.Info("first graph built", "nodes", len(snap.Nodes), "links", len(snap.Links))
	}
	return nil
}

// handleFailure logs, reports and broadcasts a failed cycle.
func (p *Poller) handleFailure(log *slog.Logger, cycle *Cycle, err error) {
	var ve *errors.VizError
	if !stderrors.As(err, &ve) {
		ve = errors.Unreachable("poller", err)
	}
	cycle.Fail(string(ve.Code))

	log.Error("poll cycle failed", "code", ve.Code, "component", ve.Component, "error", err)
	if p.errorCollector != nil {
		p.errorCollector.Report(*ve)
	}
	if berr := p.broadcaster.BroadcastError(ve.Message); berr != nil {
		log.Error("failed to broadcast cycle error", "error", berr)
	}
}
