// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/scholar-graph/internal/embed"
)

// embeddingTargets lists the node labels enriched by the
// generate-embeddings command and the text fields encoded for each.
var embeddingTargets = []struct {
	label    string
	identity string
	parts    []string
}{
	{"Paper", "paper_id", []string{"title", "abstract"}},
	{"Theory", "name", []string{"name", "description"}},
	{"Phenomenon", "phenomenon_name", []string{"phenomenon_name", "description"}},
	{"Method", "name", []string{"name", "category"}},
	{"ResearchQuestion", "question_id", []string{"question"}},
}

// embeddingBatchWorkers bounds concurrent encode calls per label.
const embeddingBatchWorkers = 4

// GenerateEmbeddings encodes every node of the target labels that lacks a
// vector for the current model, and writes embedding, embedding_dim, and
// embedding_model back. Per prd007-embeddings.
func GenerateEmbeddings(ctx context.Context, store *Store, embedder embed.Embedder, log zerolog.Logger) error {
	log = log.With().Str("component", "embeddings").Logger()

	for _, target := range embeddingTargets {
		fields := make([]string, 0, len(target.parts)+1)
		fields = append(fields, fmt.Sprintf("n.%s AS identity", target.identity))
		for _, part := range target.parts {
			fields = append(fields, fmt.Sprintf("n.%s AS %s", part, part))
		}
		readCypher := fmt.Sprintf(
			`MATCH (n:%s) WHERE n.embedding IS NULL OR n.embedding_model <> $model RETURN %s`,
			target.label, strings.Join(fields, ", "))

		rows, err := store.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, readCypher, map[string]any{"model": embedder.Model()})
			if err != nil {
				return nil, err
			}
			return result.Collect(ctx)
		})
		if err != nil {
			return fmt.Errorf("reading %s nodes: %w", target.label, err)
		}
		records := rows.([]*neo4j.Record)
		if len(records) == 0 {
			continue
		}

		type encoded struct {
			identity string
			vector   []float32
		}
		results := make([]encoded, len(records))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(embeddingBatchWorkers)
		for i, rec := range records {
			g.Go(func() error {
				identity, text := nodeText(rec, target.parts)
				if identity == "" || text == "" {
					return nil
				}
				vector, err := embedder.Embed(gctx, text)
				if err != nil {
					return fmt.Errorf("encoding %s %q: %w", target.label, identity, err)
				}
				results[i] = encoded{identity: identity, vector: vector}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		writeCypher := fmt.Sprintf(`
			UNWIND $rows AS row
			MATCH (n:%s {%s: row.identity})
			SET n.embedding = row.embedding,
			    n.embedding_dim = $dim,
			    n.embedding_model = $model`,
			target.label, target.identity)

		batch := make([]map[string]any, 0, len(results))
		for _, r := range results {
			if r.identity == "" {
				continue
			}
			batch = append(batch, map[string]any{
				"identity":  r.identity,
				"embedding": toFloat64s(r.vector),
			})
		}
		if len(batch) == 0 {
			continue
		}
		_, err = store.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			return nil, run(ctx, tx, writeCypher, map[string]any{
				"rows":  batch,
				"dim":   embedder.Dimension(),
				"model": embedder.Model(),
			})
		})
		if err != nil {
			return fmt.Errorf("writing %s embeddings: %w", target.label, err)
		}
		log.Info().Str("label", target.label).Int("count", len(batch)).Msg("embeddings written")
	}
	return nil
}

// nodeText joins the configured text fields of one record.
func nodeText(rec *neo4j.Record, parts []string) (identity, text string) {
	if v, ok := rec.Get("identity"); ok {
		identity, _ = v.(string)
	}
	var sb strings.Builder
	for _, part := range parts {
		if v, ok := rec.Get(part); ok {
			if s, ok := v.(string); ok && s != "" {
				if sb.Len() > 0 {
					sb.WriteString(" ")
				}
				sb.WriteString(s)
			}
		}
	}
	return identity, sb.String()
}

// toFloat64s widens a vector for the driver, which transmits float64.
func toFloat64s(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
