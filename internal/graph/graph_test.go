package graph

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pdiddy/scholar-graph/pkg/types"
)

// --- conflict resolution ---

func record(confidence float64, extractedAt time.Time, description string) *EntityRecord {
	return &EntityRecord{
		Confidence:  confidence,
		ExtractedAt: extractedAt,
		Description: description,
		Enums:       map[string]string{},
		Scalars:     map[string]string{},
		Lists:       map[string][]string{},
	}
}

var (
	earlier = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later   = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
)

func TestResolveNewEntity(t *testing.T) {
	r := Resolve(StrategyHighestConfidence, nil, record(0.9, later, ""))
	require.True(t, r.UseIncoming)
	require.Equal(t, ReasonNewEntity, r.Reason)
}

func TestResolveHighestConfidence(t *testing.T) {
	existing := record(0.8, earlier, "")

	r := Resolve(StrategyHighestConfidence, existing, record(0.9, later, ""))
	require.True(t, r.UseIncoming)
	require.Equal(t, ReasonNewHigherConf, r.Reason)

	r = Resolve(StrategyHighestConfidence, existing, record(0.7, later, ""))
	require.False(t, r.UseIncoming)
	require.Equal(t, ReasonExistingHigherConf, r.Reason)

	// Ties prefer the existing record.
	r = Resolve(StrategyHighestConfidence, existing, record(0.8, later, ""))
	require.False(t, r.UseIncoming)
}

func TestResolveMostRecent(t *testing.T) {
	existing := record(0.95, earlier, "")

	r := Resolve(StrategyMostRecent, existing, record(0.5, later, ""))
	require.True(t, r.UseIncoming, "recency wins regardless of confidence")
	require.Equal(t, ReasonNewMoreRecent, r.Reason)

	r = Resolve(StrategyMostRecent, record(0.5, later, ""), record(0.95, earlier, ""))
	require.False(t, r.UseIncoming)
	require.Equal(t, ReasonExistingMoreRecent, r.Reason)
}

func TestResolveMergeCompatible(t *testing.T) {
	existing := record(0.8, earlier, "firm resources drive sustained competitive advantage")
	existing.Enums["theory_type"] = "framework"
	existing.Lists["software"] = []string{"Stata"}
	existing.Scalars["domain"] = "strategic management"

	incoming := record(0.6, later, "resources drive sustained competitive advantage for firms")
	incoming.Enums["theory_type"] = "framework"
	incoming.Lists["software"] = []string{"Stata", "R"}
	incoming.Scalars["domain"] = ""

	r := Resolve(StrategyMerge, existing, incoming)
	require.Equal(t, ReasonMerged, r.Reason)
	require.NotNil(t, r.Merged)
	require.InDelta(t, 0.7, r.Merged.Confidence, 1e-9, "merge averages confidence")
	require.Equal(t, 1, r.Merged.MergeCount)
	require.ElementsMatch(t, []string{"Stata", "R"}, r.Merged.Lists["software"])
	require.Equal(t, "strategic management", r.Merged.Scalars["domain"], "non-empty scalar wins")
	require.Equal(t, later, r.Merged.ExtractedAt)
}

func TestResolveMergeIncompatibleFallsBack(t *testing.T) {
	existing := record(0.8, earlier, "governance structures minimize transaction costs")
	existing.Enums["theory_type"] = "framework"

	incoming := record(0.9, later, "executives characteristics shape strategic choices")
	incoming.Enums["theory_type"] = "perspective"

	r := Resolve(StrategyMerge, existing, incoming)
	require.Nil(t, r.Merged)
	require.Equal(t, ReasonIncompatible, r.Reason)
	require.True(t, r.UseIncoming, "fallback keeps the higher-confidence record")
}

func TestResolveManualReview(t *testing.T) {
	r := Resolve(StrategyManualReview, record(0.8, earlier, ""), record(0.9, later, ""))
	require.True(t, r.NeedsReview)
	require.False(t, r.UseIncoming)
	require.Equal(t, ReasonManualReview, r.Reason)
}

func TestTokenJaccard(t *testing.T) {
	require.Equal(t, 1.0, tokenJaccard("resource based view", "resource based view"))
	require.Equal(t, 0.0, tokenJaccard("resource based view", "transaction cost economics"))
	require.Equal(t, 0.0, tokenJaccard("", "anything"))

	// {resource, based, view, firm} vs {resource, based, view} = 3/4.
	overlap := tokenJaccard("resource based view firm", "resource based view")
	require.InDelta(t, 0.75, overlap, 1e-9)
}

// --- connection strength ---

func TestStrengthFactorsSumToTotal(t *testing.T) {
	scorer := NewStrengthScorer(nil)
	theory := types.Theory{
		Name:         "Resource-Based View",
		Role:         types.RolePrimary,
		Section:      "theory",
		UsageContext: "explains sustained competitive advantage from firm resources",
	}
	phenomenon := types.Phenomenon{
		Name:        "Competitive Advantage",
		Section:     "theory",
		Description: "sustained competitive advantage from valuable firm resources",
	}

	f := scorer.Score(context.Background(), theory, phenomenon, true)
	sum := f.RoleScore + f.SectionScore + f.KeywordScore + f.SemanticScore + f.ExplicitBonus
	require.InDelta(t, f.Total, sum, 1e-9)
	require.LessOrEqual(t, f.Total, 1.0)
	require.GreaterOrEqual(t, f.Total, MinConnectionStrength)
	require.Equal(t, f.KeywordScore, f.SemanticScore, "no embedder: semantic mirrors keyword")
	require.Equal(t, 0.2, f.ExplicitBonus)
}

func TestStrengthPrimarySameSectionClearsThreshold(t *testing.T) {
	scorer := NewStrengthScorer(nil)
	f := scorer.Score(context.Background(),
		types.Theory{Role: types.RolePrimary, Section: "theory"},
		types.Phenomenon{Section: "theory"},
		false)
	// role 0.30*1.0 + section 0.20*1.0 alone clear the gate.
	require.GreaterOrEqual(t, f.Total, MinConnectionStrength)
}

func TestStrengthWeakPairBelowThreshold(t *testing.T) {
	scorer := NewStrengthScorer(nil)
	f := scorer.Score(context.Background(),
		types.Theory{Role: types.RoleChallenging, Section: "discussion"},
		types.Phenomenon{Section: "methods"},
		false)
	// role 0.30*0.2 + section 0.20*0.2 + zero text overlap = 0.10.
	require.Less(t, f.Total, MinConnectionStrength)
}

func TestStrengthIntroLiteratureSections(t *testing.T) {
	scorer := NewStrengthScorer(nil)
	f := scorer.Score(context.Background(),
		types.Theory{Role: types.RoleSupporting, Section: "introduction"},
		types.Phenomenon{Section: "literature_review"},
		false)
	require.InDelta(t, sectionWeight*0.5, f.SectionScore, 1e-9)
}

// --- citation resolution ---

func TestResolveCitationExact(t *testing.T) {
	papers := []PaperRef{
		{PaperID: "1991_jom_0001", Title: "Firm Resources and Sustained Competitive Advantage"},
		{PaperID: "1984_smj_0002", Title: "A Resource-Based View of the Firm"},
	}

	ref, conf, ok := ResolveCitation("a resource-based view of the firm", papers)
	require.True(t, ok)
	require.Equal(t, "1984_smj_0002", ref.PaperID)
	require.Equal(t, 1.0, conf)
}

func TestResolveCitationFuzzyPrefix(t *testing.T) {
	papers := []PaperRef{
		{PaperID: "1997_smj_0003", Title: "Dynamic Capabilities and Strategic Management"},
	}

	// Reference lists truncate titles; the first 50 characters still match.
	ref, conf, ok := ResolveCitation("Dynamic capabilities and strategic management: organizing for innovation", papers)
	require.True(t, ok)
	require.Equal(t, "1997_smj_0003", ref.PaperID)
	require.Equal(t, 0.7, conf)
}

func TestResolveCitationUnresolved(t *testing.T) {
	papers := []PaperRef{{PaperID: "p1", Title: "Something Entirely Different"}}

	_, _, ok := ResolveCitation("The Nature of the Firm", papers)
	require.False(t, ok)

	_, _, ok = ResolveCitation("", papers)
	require.False(t, ok)
}

// --- author cumulative edges ---

// Re-ingesting a paper must not change an author's paper_count or papers
// list. Every counter mutation in the statement has to carry the
// membership guard, and creation has to initialize the guarded state.
func TestAuthorCumulativeStatementIsIdempotent(t *testing.T) {
	tests := []struct {
		relType       string
		label         string
		identityField string
	}{
		{"USES_THEORY", "Theory", "name"},
		{"STUDIES_PHENOMENON", "Phenomenon", "phenomenon_name"},
	}
	for _, tt := range tests {
		t.Run(tt.relType, func(t *testing.T) {
			stmt := authorCumulativeStatement(tt.relType, tt.label, tt.identityField)

			require.Contains(t, stmt, "(n:"+tt.label+" {"+tt.identityField+": $identity})")
			require.Contains(t, stmt, "[r:"+tt.relType+"]")

			// A fresh edge starts with the guarded state present.
			require.Contains(t, stmt, "ON CREATE SET r.paper_count = 0, r.papers = [], r.first_used_year = $year")

			// Counting the same paper twice is a no-op on both properties.
			require.Contains(t, stmt, "r.paper_count = r.paper_count + CASE WHEN $paper_id IN r.papers THEN 0 ELSE 1 END")
			require.Contains(t, stmt, "r.papers = CASE WHEN $paper_id IN r.papers THEN r.papers ELSE r.papers + $paper_id END")

			// first_used_year only moves backward.
			require.Contains(t, stmt, "r.first_used_year = CASE WHEN $year < r.first_used_year THEN $year ELSE r.first_used_year END")

			// No increment or append escapes the guard.
			require.Equal(t, 1, strings.Count(stmt, "r.paper_count + "), "exactly the guarded increment")
			require.Equal(t, 1, strings.Count(stmt, "r.papers + "), "exactly the guarded append")
			require.NotContains(t, stmt, "r.paper_count + 1")
		})
	}
}

func TestAuthorCumulativeParams(t *testing.T) {
	params := authorCumulativeParams("auth-1", "Resource-Based View", "1991_jom_0001", 1991)
	require.Equal(t, map[string]any{
		"author_id": "auth-1",
		"identity":  "Resource-Based View",
		"paper_id":  "1991_jom_0001",
		"year":      1991,
	}, params)
}

// --- transient error classification ---

func TestIsTransientConnErr(t *testing.T) {
	require.True(t, isTransientConnErr(errors.New("ConnectivityError: no routing table")))
	require.True(t, isTransientConnErr(errors.New("connection reset by peer")))
	require.True(t, isTransientConnErr(errors.New("bolt handshake: socket defunct")))
	require.False(t, isTransientConnErr(errors.New("Neo.ClientError.Schema.ConstraintValidationFailed")))
	require.False(t, isTransientConnErr(nil))
}
