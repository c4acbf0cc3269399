// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/scholar-graph/internal/graph"
)

func newRelationshipsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compute-relationships",
		Short: "Derive inter-paper relationship edges from the ingested graph",
		Long: "Scans ingested papers and writes USES_SAME_THEORY, USES_SAME_METHOD,\n" +
			"USES_SAME_VARIABLES and TEMPORAL_SEQUENCE edges. Safe to re-run; each\n" +
			"pass replaces its own edge kind.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := newLogger(cmd)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := graph.NewStore(ctx, cfg.Graph, log)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			return graph.ComputeRelationships(ctx, store, log)
		},
	}
}
