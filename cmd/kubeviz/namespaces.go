package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kubeadapt/kubeviz/internal/fetcher"
)

func newNamespacesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "namespaces",
		Short: "Fetch and print the cluster's namespace names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := fetcher.NewClient(&opts.cfg, nil, nil).FetchNamespaces(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
