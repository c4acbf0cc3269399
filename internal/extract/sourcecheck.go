// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"strings"

	"github.com/pdiddy/scholar-graph/internal/normalize"
	"github.com/pdiddy/scholar-graph/pkg/types"
)

// Grounding confidence tiers (R4.1).
const (
	groundedExact        = 1.0
	groundedPartial      = 0.8
	groundedAbbreviation = 0.7
	groundedWeak         = 0.6
	notFoundCeiling      = 0.5
	dropBelow            = 0.3
)

// abbreviationCues maps a known acronym to tokens whose co-presence in the
// source text counts as an abbreviation match.
var abbreviationCues = map[string][]string{
	"RBV": {"resource", "based"},
	"TCE": {"transaction", "cost"},
	"OLS": {"least", "squares"},
	"TMT": {"top", "management"},
	"CEO": {"chief", "executive"},
	"ROA": {"return", "assets"},
	"ROE": {"return", "equity"},
	"R&D": {"research", "development"},
	"M&A": {"merger", "acquisition"},
	"SEM": {"structural", "equation"},
	"HLM": {"hierarchical", "linear"},
	"GMM": {"generalized", "method", "moments"},
	"KBV": {"knowledge", "based"},
	"IPO": {"initial", "public", "offering"},
}

// sourceChecker grounds extracted entity names against the paper text.
type sourceChecker struct {
	lower string
}

func newSourceChecker(text string) *sourceChecker {
	return &sourceChecker{lower: strings.ToLower(text)}
}

// ground scores one entity name against the source text and returns its
// validation status plus the adjusted confidence. Entities the text does
// not support keep at most the not-found ceiling so hallucination rates
// stay auditable downstream.
func (c *sourceChecker) ground(name string, confidence float64) (types.ValidationStatus, float64) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return types.ValidationNotFound, min(confidence, notFoundCeiling)
	}

	if strings.Contains(c.lower, strings.ToLower(trimmed)) {
		return types.ValidationExact, groundedExact
	}

	if cues, ok := abbreviationCues[strings.ToUpper(trimmed)]; ok {
		all := true
		for _, cue := range cues {
			if !strings.Contains(c.lower, cue) {
				all = false
				break
			}
		}
		if all {
			return types.ValidationAbbreviation, groundedAbbreviation
		}
	}

	tokens := normalize.Tokens(trimmed)
	if len(tokens) > 0 {
		present := 0
		for _, tok := range tokens {
			if strings.Contains(c.lower, tok) {
				present++
			}
		}
		ratio := float64(present) / float64(len(tokens))
		switch {
		case ratio >= 0.7:
			return types.ValidationPartial, groundedPartial
		case ratio >= 0.5:
			return types.ValidationWeak, groundedWeak
		}
	}

	return types.ValidationNotFound, min(confidence, notFoundCeiling)
}

// groundResult applies source grounding to every checkable entity list in
// place, dropping entities whose adjusted confidence falls below the drop
// threshold (R4.2).
func groundResult(result *types.ExtractionResult, text string) {
	c := newSourceChecker(text)

	theories := result.Theories[:0]
	for _, t := range result.Theories {
		t.ValidationStatus, t.Confidence = c.ground(t.Name, t.Confidence)
		if t.Confidence >= dropBelow {
			theories = append(theories, t)
		}
	}
	result.Theories = theories

	methods := result.Methods[:0]
	for _, m := range result.Methods {
		m.ValidationStatus, m.Confidence = c.ground(m.Name, m.Confidence)
		if m.Confidence >= dropBelow {
			methods = append(methods, m)
		}
	}
	result.Methods = methods

	variables := result.Variables[:0]
	for _, v := range result.Variables {
		v.ValidationStatus, v.Confidence = c.ground(v.Name, v.Confidence)
		if v.Confidence >= dropBelow {
			variables = append(variables, v)
		}
	}
	result.Variables = variables

	questions := result.ResearchQuestions[:0]
	for _, q := range result.ResearchQuestions {
		q.ValidationStatus, q.Confidence = c.ground(q.Question, q.Confidence)
		if q.Confidence >= dropBelow {
			questions = append(questions, q)
		}
	}
	result.ResearchQuestions = questions

	citations := result.Citations[:0]
	for _, cit := range result.Citations {
		cit.ValidationStatus, cit.Confidence = c.ground(cit.CitedTitle, cit.Confidence)
		if cit.Confidence >= dropBelow {
			citations = append(citations, cit)
		}
	}
	result.Citations = citations
}
