// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"

	"github.com/pdiddy/scholar-graph/pkg/types"
)

// paperScopedEdges are rewritten wholesale on re-ingestion of a paper.
// EXPLAINS_PHENOMENON and CITES are keyed by paper_id instead and deleted
// separately; cumulative author edges are never deleted.
const paperScopedEdges = "USES_THEORY|STUDIES_PHENOMENON|USES_METHOD|USES_VARIABLE|REPORTS|MAKES|ADDRESSES|USES_SOFTWARE|USES_DATASET"

// Ingester writes one extraction result as a single atomic graph
// transaction.
type Ingester struct {
	store    *Store
	strategy Strategy
	scorer   *StrengthScorer
	log      zerolog.Logger
}

// NewIngester builds an ingester using the given conflict strategy.
func NewIngester(store *Store, strategy Strategy, scorer *StrengthScorer, log zerolog.Logger) *Ingester {
	if strategy == "" {
		strategy = StrategyHighestConfidence
	}
	return &Ingester{
		store:    store,
		strategy: strategy,
		scorer:   scorer,
		log:      log.With().Str("component", "ingester").Logger(),
	}
}

// IngestPaper writes the paper and every entity it carries in one
// transaction. Any failure rolls the whole paper back (R1.1).
func (in *Ingester) IngestPaper(ctx context.Context, result *types.ExtractionResult) error {
	_, err := in.store.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := in.upsertPaper(ctx, tx, result); err != nil {
			return nil, err
		}
		if err := in.upsertAuthors(ctx, tx, result); err != nil {
			return nil, err
		}
		if err := in.clearPaperEdges(ctx, tx, result.PaperID); err != nil {
			return nil, err
		}
		if err := in.upsertTheories(ctx, tx, result); err != nil {
			return nil, err
		}
		if err := in.upsertPhenomena(ctx, tx, result); err != nil {
			return nil, err
		}
		if err := in.upsertMethods(ctx, tx, result); err != nil {
			return nil, err
		}
		if err := in.upsertSoftware(ctx, tx, result); err != nil {
			return nil, err
		}
		if err := in.upsertDatasets(ctx, tx, result); err != nil {
			return nil, err
		}
		if err := in.upsertStudyDesign(ctx, tx, result); err != nil {
			return nil, err
		}
		if err := in.linkTheoriesToPhenomena(ctx, tx, result); err != nil {
			return nil, err
		}
		if err := in.resolveCitations(ctx, tx, result); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("ingesting paper %s: %w", result.PaperID, err)
	}
	return nil
}

func run(ctx context.Context, tx neo4j.ManagedTransaction, cypher string, params map[string]any) error {
	result, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

func (in *Ingester) upsertPaper(ctx context.Context, tx neo4j.ManagedTransaction, result *types.ExtractionResult) error {
	p := result.Paper
	return run(ctx, tx, `
		MERGE (p:Paper {paper_id: $paper_id})
		SET p.title = $title,
		    p.abstract = $abstract,
		    p.publication_year = $publication_year,
		    p.journal = $journal,
		    p.doi = $doi,
		    p.keywords = $keywords,
		    p.paper_type = $paper_type`,
		map[string]any{
			"paper_id":         result.PaperID,
			"title":            p.Title,
			"abstract":         p.Abstract,
			"publication_year": p.PublicationYear,
			"journal":          p.Journal,
			"doi":              p.DOI,
			"keywords":         p.Keywords,
			"paper_type":       string(p.PaperType),
		})
}

func (in *Ingester) upsertAuthors(ctx context.Context, tx neo4j.ManagedTransaction, result *types.ExtractionResult) error {
	for _, a := range result.Authors {
		err := run(ctx, tx, `
			MATCH (p:Paper {paper_id: $paper_id})
			MERGE (a:Author {author_id: $author_id})
			ON CREATE SET a.full_name = $full_name,
			              a.given_name = $given_name,
			              a.family_name = $family_name
			SET a.orcid = CASE WHEN $orcid = '' THEN coalesce(a.orcid, '') ELSE $orcid END,
			    a.email = CASE WHEN $email = '' THEN coalesce(a.email, '') ELSE $email END
			MERGE (a)-[r:AUTHORED]->(p)
			SET r.position = $position, r.paper_id = $paper_id`,
			map[string]any{
				"paper_id":    result.PaperID,
				"author_id":   a.AuthorID,
				"full_name":   a.FullName,
				"given_name":  a.GivenName,
				"family_name": a.FamilyName,
				"orcid":       a.ORCID,
				"email":       a.Email,
				"position":    a.Position,
			})
		if err != nil {
			return err
		}
		for _, aff := range a.Affiliations {
			err := run(ctx, tx, `
				MATCH (a:Author {author_id: $author_id})
				MERGE (i:Institution {institution_id: $institution_id})
				ON CREATE SET i.institution_name = $institution_name,
				              i.department = $department,
				              i.city = $city,
				              i.country = $country
				MERGE (a)-[r:AFFILIATED_WITH]->(i)
				SET r.affiliation_type = $affiliation_type,
				    r.position_title = $position_title`,
				map[string]any{
					"author_id":        a.AuthorID,
					"institution_id":   types.StableID(aff.InstitutionName),
					"institution_name": aff.InstitutionName,
					"department":       aff.Department,
					"city":             aff.City,
					"country":          aff.Country,
					"affiliation_type": aff.AffiliationType,
					"position_title":   aff.PositionTitle,
				})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// clearPaperEdges realizes rewrite-on-re-ingestion: all paper-scoped edges
// are deleted in batched statements before the new set is written (R2.1).
func (in *Ingester) clearPaperEdges(ctx context.Context, tx neo4j.ManagedTransaction, paperID string) error {
	params := map[string]any{"paper_id": paperID}
	statements := []string{
		fmt.Sprintf(`MATCH (p:Paper {paper_id: $paper_id})-[r:%s]->() DELETE r`, paperScopedEdges),
		`MATCH (:Theory)-[r:EXPLAINS_PHENOMENON {paper_id: $paper_id}]->(:Phenomenon) DELETE r`,
		`MATCH (p:Paper {paper_id: $paper_id})-[r:CITES]->(:Paper) DELETE r`,
	}
	for _, stmt := range statements {
		if err := run(ctx, tx, stmt, params); err != nil {
			return err
		}
	}
	return nil
}

// readEntityRecord loads the conflict-relevant properties of an existing
// node, or nil when the node does not exist.
func readEntityRecord(ctx context.Context, tx neo4j.ManagedTransaction, cypher string, params map[string]any, enumFields []string) (*EntityRecord, error) {
	result, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	rec := records[0]

	entity := &EntityRecord{
		Enums:   map[string]string{},
		Scalars: map[string]string{},
		Lists:   map[string][]string{},
	}
	if v, ok := rec.Get("confidence"); ok {
		if f, ok := v.(float64); ok {
			entity.Confidence = f
		}
	}
	if v, ok := rec.Get("extracted_at"); ok {
		if s, ok := v.(string); ok {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				entity.ExtractedAt = t
			}
		}
	}
	if v, ok := rec.Get("description"); ok {
		if s, ok := v.(string); ok {
			entity.Description = s
		}
	}
	if v, ok := rec.Get("merge_count"); ok {
		if n, ok := v.(int64); ok {
			entity.MergeCount = int(n)
		}
	}
	for _, field := range enumFields {
		if v, ok := rec.Get(field); ok {
			if s, ok := v.(string); ok {
				entity.Enums[field] = s
			}
		}
	}
	return entity, nil
}

func (in *Ingester) upsertTheories(ctx context.Context, tx neo4j.ManagedTransaction, result *types.ExtractionResult) error {
	for _, t := range result.Theories {
		existing, err := readEntityRecord(ctx, tx, `
			MATCH (t:Theory {name: $name})
			RETURN t.confidence AS confidence, t.extracted_at AS extracted_at,
			       t.description AS description, t.merge_count AS merge_count,
			       t.theory_type AS theory_type`,
			map[string]any{"name": t.Name}, []string{"theory_type"})
		if err != nil {
			return err
		}

		incoming := &EntityRecord{
			Confidence:  t.Confidence,
			ExtractedAt: t.ExtractedAt,
			Description: t.Description,
			Enums:       map[string]string{"theory_type": string(t.TheoryType)},
			Scalars:     map[string]string{"domain": t.Domain},
		}
		resolution := Resolve(in.strategy, existing, incoming)
		in.log.Debug().Str("paper_id", result.PaperID).Str("theory", t.Name).
			Str("reason", resolution.Reason).Msg("theory conflict resolved")

		if err := in.writeResolvedNode(ctx, tx, nodeSpec{
			matchCypher: `MERGE (n:Theory {name: $identity})`,
			identity:    t.Name,
			original:    t.OriginalName,
			descKey:     "description",
			enums:       map[string]string{"theory_type": string(t.TheoryType)},
			scalars:     map[string]string{"domain": t.Domain},
			incoming:    incoming,
		}, resolution); err != nil {
			return err
		}

		err = run(ctx, tx, `
			MATCH (p:Paper {paper_id: $paper_id}), (t:Theory {name: $name})
			MERGE (p)-[r:USES_THEORY]->(t)
			SET r.paper_id = $paper_id,
			    r.role = $role,
			    r.section = $section,
			    r.usage_context = $usage_context,
			    r.confidence = $confidence,
			    r.validation_status = $validation_status`,
			map[string]any{
				"paper_id":          result.PaperID,
				"name":              t.Name,
				"role":              string(t.Role),
				"section":           t.Section,
				"usage_context":     t.UsageContext,
				"confidence":        t.Confidence,
				"validation_status": string(t.ValidationStatus),
			})
		if err != nil {
			return err
		}

		if err := in.bumpAuthorCumulative(ctx, tx, result, "USES_THEORY", "Theory", "name", t.Name); err != nil {
			return err
		}
	}
	return nil
}

func (in *Ingester) upsertPhenomena(ctx context.Context, tx neo4j.ManagedTransaction, result *types.ExtractionResult) error {
	for _, ph := range result.Phenomena {
		existing, err := readEntityRecord(ctx, tx, `
			MATCH (p:Phenomenon {phenomenon_name: $name})
			RETURN p.confidence AS confidence, p.extracted_at AS extracted_at,
			       p.description AS description, p.merge_count AS merge_count,
			       p.phenomenon_type AS phenomenon_type`,
			map[string]any{"name": ph.Name}, []string{"phenomenon_type"})
		if err != nil {
			return err
		}

		incoming := &EntityRecord{
			Confidence:  ph.Confidence,
			ExtractedAt: ph.ExtractedAt,
			Description: ph.Description,
			Enums:       map[string]string{"phenomenon_type": string(ph.PhenomenonType)},
			Scalars: map[string]string{
				"domain":            ph.Domain,
				"level_of_analysis": string(ph.LevelOfAnalysis),
			},
		}
		resolution := Resolve(in.strategy, existing, incoming)

		if err := in.writeResolvedNode(ctx, tx, nodeSpec{
			matchCypher: `MERGE (n:Phenomenon {phenomenon_name: $identity})`,
			identity:    ph.Name,
			original:    ph.OriginalName,
			descKey:     "description",
			enums:       map[string]string{"phenomenon_type": string(ph.PhenomenonType)},
			scalars: map[string]string{
				"domain":            ph.Domain,
				"level_of_analysis": string(ph.LevelOfAnalysis),
			},
			incoming: incoming,
		}, resolution); err != nil {
			return err
		}

		err = run(ctx, tx, `
			MATCH (p:Paper {paper_id: $paper_id}), (ph:Phenomenon {phenomenon_name: $name})
			MERGE (p)-[r:STUDIES_PHENOMENON]->(ph)
			SET r.paper_id = $paper_id,
			    r.section = $section,
			    r.context = $context,
			    r.confidence = $confidence`,
			map[string]any{
				"paper_id":   result.PaperID,
				"name":       ph.Name,
				"section":    ph.Section,
				"context":    ph.Context,
				"confidence": ph.Confidence,
			})
		if err != nil {
			return err
		}

		if err := in.bumpAuthorCumulative(ctx, tx, result, "STUDIES_PHENOMENON", "Phenomenon", "phenomenon_name", ph.Name); err != nil {
			return err
		}
	}
	return nil
}

// nodeSpec parameterizes writeResolvedNode across entity labels.
type nodeSpec struct {
	matchCypher string
	identity    string
	original    string
	descKey     string
	enums       map[string]string
	scalars     map[string]string
	incoming    *EntityRecord
}

// writeResolvedNode applies one conflict resolution to a canonical node.
// original_name is written on first creation only (R3.2).
func (in *Ingester) writeResolvedNode(ctx context.Context, tx neo4j.ManagedTransaction, spec nodeSpec, resolution Resolution) error {
	params := map[string]any{
		"identity":      spec.identity,
		"original_name": spec.original,
	}

	var sets []string
	record := spec.incoming
	switch {
	case resolution.Merged != nil:
		record = resolution.Merged
		params["merge_count"] = record.MergeCount
		sets = append(sets, "n.merge_count = $merge_count")
	case resolution.NeedsReview:
		snapshot, err := json.Marshal(spec.incoming)
		if err != nil {
			return fmt.Errorf("marshaling review snapshot: %w", err)
		}
		return run(ctx, tx, spec.matchCypher+`
			ON CREATE SET n.original_name = $original_name
			SET n.needs_review = true, n.review_snapshot = $snapshot`,
			map[string]any{
				"identity":      spec.identity,
				"original_name": spec.original,
				"snapshot":      string(snapshot),
			})
	case !resolution.UseIncoming:
		// Existing node wins: create it if somehow absent, touch nothing.
		return run(ctx, tx, spec.matchCypher+`
			ON CREATE SET n.original_name = $original_name,
			              n.confidence = $confidence,
			              n.extracted_at = $extracted_at`,
			map[string]any{
				"identity":      spec.identity,
				"original_name": spec.original,
				"confidence":    spec.incoming.Confidence,
				"extracted_at":  spec.incoming.ExtractedAt.UTC().Format(time.RFC3339),
			})
	}

	params["confidence"] = record.Confidence
	params["extracted_at"] = record.ExtractedAt.UTC().Format(time.RFC3339)
	params[spec.descKey] = record.Description
	sets = append(sets,
		"n.confidence = $confidence",
		"n.extracted_at = $extracted_at",
		fmt.Sprintf("n.%s = $%s", spec.descKey, spec.descKey),
	)
	for field := range spec.enums {
		value := record.Enums[field]
		params[field] = value
		sets = append(sets, fmt.Sprintf("n.%s = $%s", field, field))
	}
	for field := range spec.scalars {
		value := spec.scalars[field]
		if resolution.Merged != nil {
			value = record.Scalars[field]
		}
		params[field] = value
		sets = append(sets, fmt.Sprintf("n.%s = $%s", field, field))
	}

	cypher := spec.matchCypher + `
		ON CREATE SET n.original_name = $original_name
		SET ` + strings.Join(sets, ", ")
	return run(ctx, tx, cypher, params)
}

// authorCumulativeStatement builds the upsert for an author-scoped
// mirror edge. A papers list on the edge guards every counter, so
// re-ingesting a paper never double-counts it (R2.3).
func authorCumulativeStatement(relType, label, identityField string) string {
	return fmt.Sprintf(`
		MATCH (a:Author {author_id: $author_id}), (n:%s {%s: $identity})
		MERGE (a)-[r:%s]->(n)
		ON CREATE SET r.paper_count = 0, r.papers = [], r.first_used_year = $year
		SET r.paper_count = r.paper_count + CASE WHEN $paper_id IN r.papers THEN 0 ELSE 1 END,
		    r.papers = CASE WHEN $paper_id IN r.papers THEN r.papers ELSE r.papers + $paper_id END,
		    r.first_used_year = CASE WHEN $year < r.first_used_year THEN $year ELSE r.first_used_year END`,
		label, identityField, relType)
}

// authorCumulativeParams binds one author/entity pair to the statement.
func authorCumulativeParams(authorID, identity, paperID string, year int) map[string]any {
	return map[string]any{
		"author_id": authorID,
		"identity":  identity,
		"paper_id":  paperID,
		"year":      year,
	}
}

func (in *Ingester) bumpAuthorCumulative(ctx context.Context, tx neo4j.ManagedTransaction, result *types.ExtractionResult, relType, label, identityField, identity string) error {
	cypher := authorCumulativeStatement(relType, label, identityField)
	for _, a := range result.Authors {
		params := authorCumulativeParams(a.AuthorID, identity, result.PaperID, result.Paper.PublicationYear)
		if err := run(ctx, tx, cypher, params); err != nil {
			return err
		}
	}
	return nil
}

func (in *Ingester) upsertMethods(ctx context.Context, tx neo4j.ManagedTransaction, result *types.ExtractionResult) error {
	for _, m := range result.Methods {
		err := run(ctx, tx, `
			MATCH (p:Paper {paper_id: $paper_id})
			MERGE (m:Method {name: $name, method_type: $method_type})
			ON CREATE SET m.original_name = $original_name,
			              m.category = $category,
			              m.software = $software
			SET m.category = CASE WHEN $category = '' THEN coalesce(m.category, '') ELSE $category END
			MERGE (p)-[r:USES_METHOD]->(m)
			SET r.paper_id = $paper_id,
			    r.sample_size = $sample_size,
			    r.time_period = $time_period,
			    r.confidence = $confidence,
			    r.validation_status = $validation_status`,
			map[string]any{
				"paper_id":          result.PaperID,
				"name":              m.Name,
				"method_type":       string(m.MethodType),
				"original_name":     m.OriginalName,
				"category":          m.Category,
				"software":          emptyList(m.Software),
				"sample_size":       m.SampleSize,
				"time_period":       m.TimePeriod,
				"confidence":        m.Confidence,
				"validation_status": string(m.ValidationStatus),
			})
		if err != nil {
			return err
		}
	}
	return nil
}

func (in *Ingester) upsertSoftware(ctx context.Context, tx neo4j.ManagedTransaction, result *types.ExtractionResult) error {
	for _, s := range result.Software {
		err := run(ctx, tx, `
			MATCH (p:Paper {paper_id: $paper_id})
			MERGE (s:Software {software_name: $name})
			ON CREATE SET s.original_name = $original_name, s.software_type = $software_type
			SET s.version = CASE WHEN $version = '' THEN coalesce(s.version, '') ELSE $version END
			MERGE (p)-[r:USES_SOFTWARE]->(s)
			SET r.paper_id = $paper_id, r.version = $version`,
			map[string]any{
				"paper_id":      result.PaperID,
				"name":          s.Name,
				"original_name": s.OriginalName,
				"software_type": s.SoftwareType,
				"version":       s.Version,
			})
		if err != nil {
			return err
		}
	}
	return nil
}

func (in *Ingester) upsertDatasets(ctx context.Context, tx neo4j.ManagedTransaction, result *types.ExtractionResult) error {
	for _, d := range result.Datasets {
		err := run(ctx, tx, `
			MATCH (p:Paper {paper_id: $paper_id})
			MERGE (d:Dataset {dataset_name: $name})
			ON CREATE SET d.dataset_type = $dataset_type, d.access = $access
			MERGE (p)-[r:USES_DATASET]->(d)
			SET r.paper_id = $paper_id,
			    r.time_period = $time_period,
			    r.sample_size = $sample_size`,
			map[string]any{
				"paper_id":     result.PaperID,
				"name":         d.Name,
				"dataset_type": d.DatasetType,
				"access":       d.Access,
				"time_period":  d.TimePeriod,
				"sample_size":  d.SampleSize,
			})
		if err != nil {
			return err
		}
	}
	return nil
}

// upsertStudyDesign writes the per-paper entity lists with batched UNWIND
// statements (R2.2).
func (in *Ingester) upsertStudyDesign(ctx context.Context, tx neo4j.ManagedTransaction, result *types.ExtractionResult) error {
	if len(result.Variables) > 0 {
		rows := make([]map[string]any, 0, len(result.Variables))
		for _, v := range result.Variables {
			rows = append(rows, map[string]any{
				"variable_id":        v.VariableID,
				"name":               v.Name,
				"variable_type":      string(v.VariableType),
				"measurement":        v.Measurement,
				"operationalization": v.Operationalization,
				"confidence":         v.Confidence,
				"validation_status":  string(v.ValidationStatus),
			})
		}
		err := run(ctx, tx, `
			MATCH (p:Paper {paper_id: $paper_id})
			UNWIND $rows AS row
			MERGE (v:Variable {variable_id: row.variable_id})
			SET v.variable_name = row.name,
			    v.variable_type = row.variable_type,
			    v.measurement = row.measurement,
			    v.operationalization = row.operationalization
			MERGE (p)-[r:USES_VARIABLE]->(v)
			SET r.paper_id = $paper_id,
			    r.variable_type = row.variable_type,
			    r.confidence = row.confidence,
			    r.validation_status = row.validation_status`,
			map[string]any{"paper_id": result.PaperID, "rows": rows})
		if err != nil {
			return err
		}
	}

	if len(result.Findings) > 0 {
		rows := make([]map[string]any, 0, len(result.Findings))
		for _, f := range result.Findings {
			rows = append(rows, map[string]any{
				"finding_id":   f.FindingID,
				"text":         f.Text,
				"finding_type": string(f.FindingType),
				"significance": f.Significance,
				"effect_size":  f.EffectSize,
				"section":      f.Section,
				"confidence":   f.Confidence,
			})
		}
		err := run(ctx, tx, `
			MATCH (p:Paper {paper_id: $paper_id})
			UNWIND $rows AS row
			MERGE (f:Finding {finding_id: row.finding_id})
			SET f.finding_text = row.text,
			    f.finding_type = row.finding_type,
			    f.significance = row.significance,
			    f.effect_size = row.effect_size,
			    f.section = row.section
			MERGE (p)-[r:REPORTS]->(f)
			SET r.paper_id = $paper_id, r.confidence = row.confidence`,
			map[string]any{"paper_id": result.PaperID, "rows": rows})
		if err != nil {
			return err
		}
	}

	if len(result.Contributions) > 0 {
		rows := make([]map[string]any, 0, len(result.Contributions))
		for _, c := range result.Contributions {
			rows = append(rows, map[string]any{
				"contribution_id":   c.ContributionID,
				"text":              c.Text,
				"contribution_type": string(c.ContributionType),
				"section":           c.Section,
				"confidence":        c.Confidence,
			})
		}
		err := run(ctx, tx, `
			MATCH (p:Paper {paper_id: $paper_id})
			UNWIND $rows AS row
			MERGE (c:Contribution {contribution_id: row.contribution_id})
			SET c.contribution_text = row.text,
			    c.contribution_type = row.contribution_type,
			    c.section = row.section
			MERGE (p)-[r:MAKES]->(c)
			SET r.paper_id = $paper_id, r.confidence = row.confidence`,
			map[string]any{"paper_id": result.PaperID, "rows": rows})
		if err != nil {
			return err
		}
	}

	if len(result.ResearchQuestions) > 0 {
		rows := make([]map[string]any, 0, len(result.ResearchQuestions))
		for _, q := range result.ResearchQuestions {
			rows = append(rows, map[string]any{
				"question_id":       q.QuestionID,
				"question":          q.Question,
				"question_type":     string(q.QuestionType),
				"section":           q.Section,
				"confidence":        q.Confidence,
				"validation_status": string(q.ValidationStatus),
			})
		}
		err := run(ctx, tx, `
			MATCH (p:Paper {paper_id: $paper_id})
			UNWIND $rows AS row
			MERGE (q:ResearchQuestion {question_id: row.question_id})
			SET q.question = row.question,
			    q.question_type = row.question_type,
			    q.section = row.section
			MERGE (p)-[r:ADDRESSES]->(q)
			SET r.paper_id = $paper_id,
			    r.confidence = row.confidence,
			    r.validation_status = row.validation_status`,
			map[string]any{"paper_id": result.PaperID, "rows": rows})
		if err != nil {
			return err
		}
	}
	return nil
}

// linkTheoriesToPhenomena scores every (theory, phenomenon) pair and
// writes EXPLAINS_PHENOMENON edges for pairs at or above the strength
// threshold, with factor sub-scores persisted for re-weighing (R4.2).
func (in *Ingester) linkTheoriesToPhenomena(ctx context.Context, tx neo4j.ManagedTransaction, result *types.ExtractionResult) error {
	explicit := make(map[string]bool, len(result.TheoryPhenomenonLinks))
	for _, link := range result.TheoryPhenomenonLinks {
		explicit[pairKey(link.TheoryName, link.PhenomenonName)] = true
	}

	for _, t := range result.Theories {
		for _, ph := range result.Phenomena {
			factors := in.scorer.Score(ctx, t, ph, explicit[pairKey(t.Name, ph.Name)])
			if factors.Total < MinConnectionStrength {
				continue
			}
			err := run(ctx, tx, `
				MATCH (t:Theory {name: $theory}), (ph:Phenomenon {phenomenon_name: $phenomenon})
				MERGE (t)-[r:EXPLAINS_PHENOMENON {paper_id: $paper_id}]->(ph)
				SET r.theory_role = $theory_role,
				    r.section = $section,
				    r.connection_strength = $connection_strength,
				    r.role_score = $role_score,
				    r.section_score = $section_score,
				    r.keyword_score = $keyword_score,
				    r.semantic_score = $semantic_score,
				    r.explicit_bonus = $explicit_bonus`,
				map[string]any{
					"paper_id":            result.PaperID,
					"theory":              t.Name,
					"phenomenon":          ph.Name,
					"theory_role":         string(t.Role),
					"section":             t.Section,
					"connection_strength": factors.Total,
					"role_score":          factors.RoleScore,
					"section_score":       factors.SectionScore,
					"keyword_score":       factors.KeywordScore,
					"semantic_score":      factors.SemanticScore,
					"explicit_bonus":      factors.ExplicitBonus,
				})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveCitations matches extracted citations against papers already in
// the graph and writes CITES edges. Unresolved citations are dropped, not
// stubbed (R4.3).
func (in *Ingester) resolveCitations(ctx context.Context, tx neo4j.ManagedTransaction, result *types.ExtractionResult) error {
	if len(result.Citations) == 0 {
		return nil
	}

	refs, err := loadPaperRefs(ctx, tx)
	if err != nil {
		return err
	}

	for _, c := range result.Citations {
		ref, confidence, ok := ResolveCitation(c.CitedTitle, refs)
		if !ok || ref.PaperID == result.PaperID {
			continue
		}
		err := run(ctx, tx, `
			MATCH (p:Paper {paper_id: $paper_id}), (cited:Paper {paper_id: $cited_id})
			MERGE (p)-[r:CITES]->(cited)
			SET r.paper_id = $paper_id,
			    r.citation_type = $citation_type,
			    r.section = $section,
			    r.confidence = $confidence`,
			map[string]any{
				"paper_id":      result.PaperID,
				"cited_id":      ref.PaperID,
				"citation_type": c.CitationType,
				"section":       c.Section,
				"confidence":    confidence,
			})
		if err != nil {
			return err
		}
	}
	return nil
}

func loadPaperRefs(ctx context.Context, tx neo4j.ManagedTransaction) ([]PaperRef, error) {
	result, err := tx.Run(ctx, `MATCH (p:Paper) RETURN p.paper_id AS paper_id, p.title AS title`, nil)
	if err != nil {
		return nil, err
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, err
	}
	refs := make([]PaperRef, 0, len(records))
	for _, rec := range records {
		ref := PaperRef{}
		if v, ok := rec.Get("paper_id"); ok {
			ref.PaperID, _ = v.(string)
		}
		if v, ok := rec.Get("title"); ok {
			ref.Title, _ = v.(string)
		}
		if ref.PaperID != "" {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

func pairKey(theory, phenomenon string) string {
	return strings.ToLower(theory) + "|" + strings.ToLower(phenomenon)
}

func emptyList(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
