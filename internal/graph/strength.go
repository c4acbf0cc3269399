// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"strings"

	"github.com/pdiddy/scholar-graph/internal/embed"
	"github.com/pdiddy/scholar-graph/pkg/types"
)

// Factor weights. The four weighted factors top out at 0.8 and the
// explicit bonus at 0.2, so the total stays in [0,1] without clamping and
// the persisted sub-scores always sum to it.
const (
	roleWeight     = 0.30
	sectionWeight  = 0.20
	keywordWeight  = 0.15
	semanticWeight = 0.15
	explicitBonus  = 0.20

	// MinConnectionStrength gates EXPLAINS_PHENOMENON edge creation.
	MinConnectionStrength = 0.3
)

// StrengthFactors carries the weighted sub-scores of one theory-phenomenon
// connection. Total is their exact sum. Per prd005-ingestion R4.
type StrengthFactors struct {
	RoleScore     float64 `json:"role_score"`
	SectionScore  float64 `json:"section_score"`
	KeywordScore  float64 `json:"keyword_score"`
	SemanticScore float64 `json:"semantic_score"`
	ExplicitBonus float64 `json:"explicit_bonus"`
	Total         float64 `json:"connection_strength"`
}

// StrengthScorer computes connection strength between a theory and a
// phenomenon within one paper. The embedder may be nil; the semantic
// factor then mirrors the keyword factor.
type StrengthScorer struct {
	embedder embed.Embedder
}

func NewStrengthScorer(embedder embed.Embedder) *StrengthScorer {
	return &StrengthScorer{embedder: embedder}
}

func roleFactor(role types.TheoryRole) float64 {
	switch role {
	case types.RolePrimary:
		return 1.0
	case types.RoleSupporting:
		return 0.6
	case types.RoleExtending:
		return 0.4
	case types.RoleChallenging:
		return 0.2
	}
	return 0.2
}

func sectionFactor(theorySection, phenomenonSection string) float64 {
	a := strings.ToLower(strings.TrimSpace(theorySection))
	b := strings.ToLower(strings.TrimSpace(phenomenonSection))
	if a != "" && a == b {
		return 1.0
	}
	intro := func(s string) bool { return s == "introduction" || s == "literature_review" }
	if intro(a) && intro(b) {
		return 0.5
	}
	return 0.2
}

// Score computes the weighted connection strength for one
// (theory, phenomenon) pair. Embedding failures degrade to the keyword
// factor rather than failing the paper.
func (s *StrengthScorer) Score(ctx context.Context, theory types.Theory, phenomenon types.Phenomenon, explicitLink bool) StrengthFactors {
	keyword := tokenJaccard(theory.UsageContext, phenomenon.Description+" "+phenomenon.Context)
	semantic := keyword
	if s.embedder != nil {
		if sim, ok := s.semantic(ctx, theory, phenomenon); ok {
			semantic = sim
		}
	}

	f := StrengthFactors{
		RoleScore:     roleWeight * roleFactor(theory.Role),
		SectionScore:  sectionWeight * sectionFactor(theory.Section, phenomenon.Section),
		KeywordScore:  keywordWeight * keyword,
		SemanticScore: semanticWeight * semantic,
	}
	if explicitLink {
		f.ExplicitBonus = explicitBonus
	}
	f.Total = f.RoleScore + f.SectionScore + f.KeywordScore + f.SemanticScore + f.ExplicitBonus
	return f
}

func (s *StrengthScorer) semantic(ctx context.Context, theory types.Theory, phenomenon types.Phenomenon) (float64, bool) {
	tv, err := s.embedder.Embed(ctx, strings.TrimSpace(theory.Name+" "+theory.UsageContext))
	if err != nil {
		return 0, false
	}
	pv, err := s.embedder.Embed(ctx, strings.TrimSpace(phenomenon.Name+" "+phenomenon.Description))
	if err != nil {
		return 0, false
	}
	sim := embed.Cosine(tv, pv)
	if sim < 0 {
		sim = 0
	}
	return sim, true
}
