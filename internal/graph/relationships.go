// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
)

// temporalWindowYears bounds TEMPORAL_SEQUENCE to close publication pairs.
const temporalWindowYears = 5

// relationshipPasses are the paper-to-paper statements run by the
// compute-relationships command. Each is idempotent.
var relationshipPasses = []struct {
	name   string
	cypher string
}{
	{
		name: "uses_same_theory",
		cypher: `
			MATCH (a:Paper)-[ra:USES_THEORY {role: 'primary'}]->(t:Theory)<-[rb:USES_THEORY {role: 'primary'}]-(b:Paper)
			WHERE a.paper_id < b.paper_id
			MERGE (a)-[r:USES_SAME_THEORY]->(b)
			SET r.theory = t.name`,
	},
	{
		name: "uses_same_method",
		cypher: `
			MATCH (a:Paper)-[:USES_METHOD]->(m:Method)<-[:USES_METHOD]-(b:Paper)
			WHERE a.paper_id < b.paper_id
			MERGE (a)-[r:USES_SAME_METHOD]->(b)
			SET r.method = m.name, r.method_type = m.method_type`,
	},
	{
		name: "uses_same_variables",
		cypher: `
			MATCH (a:Paper)-[:USES_VARIABLE]->(v:Variable)
			MATCH (b:Paper)-[:USES_VARIABLE]->(w:Variable)
			WHERE a.paper_id < b.paper_id AND v.variable_name = w.variable_name
			WITH a, b, count(DISTINCT v.variable_name) AS shared
			WHERE shared >= 2
			MERGE (a)-[r:USES_SAME_VARIABLES]->(b)
			SET r.shared_count = shared`,
	},
	{
		// Same primary theory within the publication window, earlier paper
		// pointing at the later one.
		name: "temporal_sequence",
		cypher: `
			MATCH (a:Paper)-[:USES_THEORY {role: 'primary'}]->(t:Theory)<-[:USES_THEORY {role: 'primary'}]-(b:Paper)
			WHERE a.publication_year < b.publication_year
			  AND b.publication_year - a.publication_year <= $window
			MERGE (a)-[r:TEMPORAL_SEQUENCE]->(b)
			SET r.theory = t.name, r.year_gap = b.publication_year - a.publication_year`,
	},
}

// ComputeRelationships runs the post-hoc paper-to-paper passes.
func ComputeRelationships(ctx context.Context, store *Store, log zerolog.Logger) error {
	for _, pass := range relationshipPasses {
		_, err := store.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			return nil, run(ctx, tx, pass.cypher, map[string]any{"window": temporalWindowYears})
		})
		if err != nil {
			return fmt.Errorf("relationship pass %s: %w", pass.name, err)
		}
		log.Info().Str("pass", pass.name).Msg("relationship pass complete")
	}
	return nil
}
