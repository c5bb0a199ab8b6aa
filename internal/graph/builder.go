package graph

import (
	"log/slog"
	"time"

	"github.com/kubeadapt/kubeviz/internal/config"
	"github.com/kubeadapt/kubeviz/internal/errors"
	"github.com/kubeadapt/kubeviz/internal/observability"
	"github.com/kubeadapt/kubeviz/pkg/model"
)

// Builder wraps BuildGraph with metrics, logging and error reporting.
type Builder struct {
	opts           Options
	metrics        *observability.Metrics
	errorCollector *errors.ErrorCollector
}

// NewBuilder creates a Builder. metrics and errCollector may be nil.
func NewBuilder(opts Options, metrics *observability.Metrics, errCollector *errors.ErrorCollector) *Builder {
	return &Builder{
		opts:           opts,
		metrics:        metrics,
		errorCollector: errCollector,
	}
}

// OptionsFromConfig maps configuration onto builder options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	classifier, err := ClassifierByName(cfg.MasterClassifier)
	if err != nil {
		return Options{}, err
	}
	return Options{
		MasterSize:       cfg.MasterSize,
		MinionSize:       cfg.MinionSize,
		PodSize:          cfg.PodSize,
		PodLinkLength:    cfg.LinkSizePodToMinion,
		MasterLinkLength: cfg.LinkSizeMinionToMaster,
		DummyNodes:       cfg.DummyNodes,
		Classifier:       classifier,
	}, nil
}

// Build produces a snapshot and records what it saw. Warnings are logged
// and reported but never fail the build.
func (b *Builder) Build(nodes []model.NodeResource, pods []model.PodResource) *model.GraphSnapshot {
	start := time.Now()
	snap, warnings := BuildGraph(nodes, pods, b.opts)
	elapsed := time.Since(start)

	seen := make(map[errors.Code]bool, len(warnings))
	for _, w := range warnings {
		seen[w.Code] = true
		slog.Warn("graph built with warning", "code", w.Code, "message", w.Message)
		if b.metrics != nil {
			b.metrics.GraphWarningsTotal.WithLabelValues(string(w.Code)).Inc()
		}
		if b.errorCollector != nil {
			w.Timestamp = time.Now().UnixMilli()
			b.errorCollector.Report(w)
		}
	}
	if b.errorCollector != nil {
		for _, code := range errors.Codes {
			if !code.Hard() && !seen[code] {
				b.errorCollector.Resolve(code, Component)
			}
		}
	}

	if b.metrics != nil {
		b.metrics.GraphBuildDuration.Observe(elapsed.Seconds())
		counts := snap.CountByType()
		for _, t := range []model.NodeType{model.NodeTypeMaster, model.NodeTypeNode, model.NodeTypePod} {
			b.metrics.GraphNodes.WithLabelValues(string(t)).Set(float64(counts[t]))
		}
		b.metrics.GraphLinks.Set(float64(len(snap.Links)))
	}

	return snap
}
