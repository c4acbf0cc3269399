// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/scholar-graph/internal/corpus"
	"github.com/pdiddy/scholar-graph/internal/embed"
	"github.com/pdiddy/scholar-graph/internal/extract"
	"github.com/pdiddy/scholar-graph/internal/graph"
	"github.com/pdiddy/scholar-graph/internal/normalize"
	"github.com/pdiddy/scholar-graph/internal/pipeline"
	"github.com/pdiddy/scholar-graph/pkg/types"
)

func newPipelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline [corpus_root]",
		Short: "Run the extract-normalize-ingest pipeline over the corpus",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPipeline,
	}

	cmd.Flags().Int("workers", 0, "worker pool size (default 10)")
	cmd.Flags().Int("year-start", 0, "inclusive lower publication-year bound")
	cmd.Flags().Int("year-end", 0, "inclusive upper publication-year bound")
	cmd.Flags().Bool("no-resume", false, "reprocess papers already in the progress store")
	cmd.Flags().String("model", "", "override the primary LLM model")
	cmd.Flags().Bool("single-entity", false, "use single-entity extraction calls instead of combined mode")
	cmd.Flags().String("conflict-strategy", string(graph.StrategyHighestConfidence),
		"entity conflict strategy (highest_confidence, most_recent, merge, manual_review)")
	cmd.Flags().String("dictionary", "", "override entries of the embedded canonical dictionary")
	return cmd
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyPipelineFlags(cmd, args, &cfg)

	if cfg.Pipeline.CorpusRoot == "" {
		return fmt.Errorf("corpus root is required (argument, config, or CORPUS_ROOT)")
	}
	if cfg.Extraction.LLM.BaseURL == "" || cfg.Extraction.LLM.Model == "" {
		return fmt.Errorf("llm base_url and model are required")
	}

	log := newLogger(cmd)
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	embedder, closeEmbedder, err := buildEmbedder(cfg.Embedding)
	if err != nil {
		return err
	}
	defer closeEmbedder()

	dict, err := normalize.LoadDictionary(cfg.Normalizer.DictionaryPath)
	if err != nil {
		return err
	}
	normalizer := normalize.New(dict, embedder, cfg.Embedding.SimilarityThreshold)

	cache, err := extract.NewResponseCache(cfg.Extraction.CacheDir, cfg.Extraction.CacheTTL)
	if err != nil {
		return err
	}
	primary := extract.NewOpenAIBackend(cfg.Extraction.LLM)
	var fallback extract.LLMBackend
	if cfg.Extraction.UseFallback && cfg.Extraction.Fallback.Model != "" {
		fallback = extract.NewOpenAIBackend(cfg.Extraction.Fallback)
	}
	extractor := extract.New(cfg.Extraction, primary, fallback, cache, log)

	store, err := graph.NewStore(ctx, cfg.Graph, log)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())
	if err := store.EnsureConstraints(ctx); err != nil {
		return err
	}

	strategy, _ := cmd.Flags().GetString("conflict-strategy")
	ingester := graph.NewIngester(store, graph.Strategy(strategy), graph.NewStrengthScorer(embedder), log)

	progress, err := pipeline.LoadProgress(cfg.Pipeline.ProgressPath)
	if err != nil {
		return err
	}

	tasks, skipped, err := discoverTasks(cfg.Pipeline, progress)
	if err != nil {
		return err
	}

	reader := corpus.NewTextReader(cfg.Extraction.MinTextChars, cfg.Extraction.MaxTextChars)
	normalizeFunc := func(ctx context.Context, result *types.ExtractionResult) error {
		return normalize.Apply(ctx, normalizer, result)
	}
	runner := pipeline.NewRunner(cfg.Pipeline, reader, extractor, normalizeFunc, ingester, progress, log)

	stats, err := runner.Run(ctx, tasks, skipped)
	if err != nil {
		return err
	}
	if err := pipeline.WriteStats(cfg.Pipeline.StatsPath, stats); err != nil {
		log.Error().Err(err).Msg("writing stats file")
	}

	if stats.Cancelled {
		return errCancelled
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", errPartialFailure, stats.Failed, stats.Failed+stats.Processed)
	}
	return nil
}

func applyPipelineFlags(cmd *cobra.Command, args []string, cfg *types.Config) {
	if len(args) > 0 {
		cfg.Pipeline.CorpusRoot = args[0]
	}
	if n, _ := cmd.Flags().GetInt("workers"); n > 0 {
		cfg.Pipeline.Workers = n
	}
	if y, _ := cmd.Flags().GetInt("year-start"); y > 0 {
		cfg.Pipeline.YearStart = y
	}
	if y, _ := cmd.Flags().GetInt("year-end"); y > 0 {
		cfg.Pipeline.YearEnd = y
	}
	cfg.Pipeline.Resume = true
	if noResume, _ := cmd.Flags().GetBool("no-resume"); noResume {
		cfg.Pipeline.Resume = false
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.Extraction.LLM.Model = model
	}
	if cmd.Flags().Changed("single-entity") {
		single, _ := cmd.Flags().GetBool("single-entity")
		cfg.Extraction.SingleEntity = single
	}
	if dict, _ := cmd.Flags().GetString("dictionary"); dict != "" {
		cfg.Normalizer.DictionaryPath = dict
	}
}

// discoverTasks enumerates the corpus, applying resume filtering, and
// reports how many papers the filter skipped.
func discoverTasks(cfg types.PipelineConfig, progress *pipeline.ProgressStore) ([]types.PaperTask, int, error) {
	var processed map[string]bool
	if cfg.Resume {
		processed = progress.ProcessedSet()
	}
	tasks, err := corpus.Discover(cfg.CorpusRoot, cfg.YearStart, cfg.YearEnd, processed, cfg.MaxAttempts)
	if err != nil {
		return nil, 0, err
	}

	skipped := 0
	if len(processed) > 0 {
		all, err := corpus.Discover(cfg.CorpusRoot, cfg.YearStart, cfg.YearEnd, nil, cfg.MaxAttempts)
		if err != nil {
			return nil, 0, err
		}
		skipped = len(all) - len(tasks)
	}
	return tasks, skipped, nil
}

// buildEmbedder returns the configured embedder, or nil when embeddings
// are disabled. The close function releases the on-disk cache.
func buildEmbedder(cfg types.EmbeddingConfig) (embed.Embedder, func(), error) {
	if !cfg.Enabled {
		return nil, func() {}, nil
	}
	if cfg.BaseURL == "" || cfg.Model == "" {
		return nil, nil, fmt.Errorf("embeddings enabled but embedding base_url or model missing")
	}

	var embedder embed.Embedder = embed.NewHTTPEmbedder(cfg)
	if cfg.CachePath != "" {
		cache, err := embed.NewCache(embedder, cfg.CachePath)
		if err != nil {
			return nil, nil, err
		}
		return cache, func() { _ = cache.Close() }, nil
	}
	return embedder, func() {}, nil
}
