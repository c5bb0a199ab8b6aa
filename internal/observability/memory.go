package observability

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/debug"
	"time"

	"k8s.io/utils/clock"
)

// MemStatsReader abstracts runtime.ReadMemStats for tests.
type MemStatsReader func(*runtime.MemStats)

// MemoryWatcher samples memory usage against GOMEMLIMIT and calls Release
// when usage crosses Threshold. With no limit set it only exports zero.
type MemoryWatcher struct {
	Threshold float64 // 0.8 = 80%
	Interval  time.Duration
	Release   func()

	clock    clock.WithTicker
	metrics  *Metrics
	readMem  MemStatsReader
	memLimit func() int64
}

// NewMemoryWatcher creates a watcher that frees OS memory on pressure.
// metrics may be nil.
func NewMemoryWatcher(threshold float64, interval time.Duration, clk clock.WithTicker, metrics *Metrics) *MemoryWatcher {
	return &MemoryWatcher{
		Threshold: threshold,
		Interval:  interval,
		Release:   debug.FreeOSMemory,
		clock:     clk,
		metrics:   metrics,
		readMem:   runtime.ReadMemStats,
		memLimit:  func() int64 { return debug.SetMemoryLimit(-1) },
	}
}

// Run samples until ctx is canceled.
func (w *MemoryWatcher) Run(ctx context.Context) {
	ticker := w.clock.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if ratio := w.sample(); ratio > w.Threshold {
				slog.Warn("memory pressure detected, releasing memory", "ratio", ratio, "threshold", w.Threshold)
				w.Release()
				if w.metrics != nil {
					w.metrics.MemoryPressureReleases.Inc()
				}
			}
		}
	}
}

// sample returns usage / GOMEMLIMIT, or 0 when no limit is set.
func (w *MemoryWatcher) sample() float64 {
	limit := w.memLimit()
	// math.MaxInt64 is the runtime's "no limit" value.
	if limit <= 0 || limit == 1<<63-1 {
		if w.metrics != nil {
			w.metrics.MemoryLimitRatio.Set(0)
		}
		return 0
	}

	var stats runtime.MemStats
	w.readMem(&stats)
	ratio := float64(stats.Sys-stats.HeapReleased) / float64(limit)
	if w.metrics != nil {
		w.metrics.MemoryLimitRatio.Set(ratio)
	}
	return ratio
}
