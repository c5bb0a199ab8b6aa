package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kubeadapt/kubeviz/internal/config"
	"github.com/kubeadapt/kubeviz/internal/observability"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configFile string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "kubeviz",
		Short:         "Live graph of cluster nodes and pods for browser viewers",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			opts.cfg = cfg
			slog.SetDefault(observability.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat))
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), &opts.cfg)
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "",
		"path to a YAML config file (default $KUBEVIZ_CONFIG_FILE)")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newNamespacesCmd(opts))
	return root
}
