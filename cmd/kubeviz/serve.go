package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/utils/clock"

	"github.com/kubeadapt/kubeviz/internal/broadcast"
	"github.com/kubeadapt/kubeviz/internal/config"
	vizerrors "github.com/kubeadapt/kubeviz/internal/errors"
	"github.com/kubeadapt/kubeviz/internal/fetcher"
	"github.com/kubeadapt/kubeviz/internal/graph"
	"github.com/kubeadapt/kubeviz/internal/namespace"
	"github.com/kubeadapt/kubeviz/internal/observability"
	"github.com/kubeadapt/kubeviz/internal/poller"
	"github.com/kubeadapt/kubeviz/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Poll the cluster and serve the live graph (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), &opts.cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	slog.Info("kubeviz starting",
		"version", version,
		"nodes_url", cfg.NodesURL,
		"namespaces_url", cfg.NamespacesURL,
		"namespace", cfg.DefaultNamespace,
		"polling_interval", cfg.PollingInterval,
		"port", cfg.Port,
	)

	// 1. Shared infrastructure.
	clk := clock.RealClock{}
	metrics := observability.NewMetrics()
	errCollector := vizerrors.NewErrorCollector(clk)

	// 2. Pipeline: fetch -> build -> broadcast.
	graphOpts, err := graph.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	builder := graph.NewBuilder(graphOpts, metrics, errCollector)
	client := fetcher.NewClient(cfg, metrics, errCollector)
	registry := namespace.NewRegistry(cfg.DefaultNamespace)
	hub := broadcast.NewHub(registry, metrics, broadcast.DefaultOptions())
	p := poller.New(cfg, client, builder, hub, registry, clk, metrics, errCollector)
	hub.OnConnect(p.Trigger)

	// 3. HTTP surface.
	srv := server.NewServer(cfg.Port, server.Deps{
		Metrics:     metrics,
		Readiness:   p,
		Snapshots:   p,
		Namespaces:  client,
		Broadcaster: hub,
		Viewers:     hub,
		Errors:      errCollector,
		Cycles:      p.Tracker(),
		Clock:       clk,
	}, cfg.DebugEndpoints)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting http server: %w", err)
	}

	go func() {
		if _, err := srv.RefreshNamespaces(ctx); err != nil {
			slog.Warn("initial namespace fetch failed", "error", err)
		}
	}()

	go observability.NewMemoryWatcher(0.8, 30*time.Second, clk, metrics).Run(ctx)

	// 4. Poll until shutdown.
	if err := p.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("poll loop exited with error", "error", err)
	}

	// 5. Graceful shutdown.
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("kubeviz stopped")
	return nil
}
