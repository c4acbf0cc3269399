// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/scholar-graph/internal/graph"
)

func newEmbeddingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate-embeddings",
		Short: "Backfill embedding vectors onto graph nodes",
		Long: "Embeds Paper, Theory, Phenomenon, Method and ResearchQuestion nodes\n" +
			"that have no vector yet, or whose vector came from a different model.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cfg.Embedding.Enabled {
				return fmt.Errorf("embeddings are disabled; set embedding.enabled or EMBEDDINGS_ENABLED")
			}

			embedder, closeEmbedder, err := buildEmbedder(cfg.Embedding)
			if err != nil {
				return err
			}
			defer closeEmbedder()

			log := newLogger(cmd)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := graph.NewStore(ctx, cfg.Graph, log)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			return graph.GenerateEmbeddings(ctx, store, embedder, log)
		},
	}
}
