// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/scholar-graph/pkg/types"
)

// Enum domains. Coercion falls back to the first-listed default when the
// source value is outside the domain.
var (
	theoryTypes   = []string{"framework", "concept", "model", "perspective"}
	theoryRoles   = []string{"primary", "supporting", "challenging", "extending"}
	phenomenonTypes = []string{"behavior", "pattern", "event", "trend", "process", "outcome"}
	analysisLevels  = []string{"individual", "team", "organization", "industry", "economy", "multi_level"}
	methodTypes     = []string{"quantitative", "qualitative", "mixed", "computational", "experimental"}
	variableTypes   = []string{"dependent", "independent", "control", "moderator", "mediator", "instrumental"}
	findingTypes    = []string{"hypothesis_supported", "hypothesis_rejected", "unexpected", "exploratory"}
	contributionTypes = []string{"theoretical", "empirical", "methodological", "practical"}
	questionTypes     = []string{"descriptive", "explanatory", "predictive", "prescriptive", "exploratory"}
	paperTypes        = []string{"empirical_quantitative", "empirical_qualitative", "theoretical", "review", "meta_analysis", "research_note"}
)

// Theory coerces a loose record. ok is false only when the identity field
// is missing; all other failures degrade to defaults (R2.2).
func Theory(m map[string]any, extractedAt time.Time) (types.Theory, bool) {
	name := pickString(m, theoryAliases, "name")
	if name == "" {
		return types.Theory{}, false
	}
	return types.Theory{
		Name:         name,
		Domain:       pickString(m, theoryAliases, "domain"),
		TheoryType:   types.TheoryType(enumOr(pickString(m, theoryAliases, "theory_type"), theoryTypes, "framework")),
		Description:  pickString(m, theoryAliases, "description"),
		Role:         types.TheoryRole(enumOr(pickString(m, theoryAliases, "role"), theoryRoles, "supporting")),
		Section:      pickString(m, theoryAliases, "section"),
		UsageContext: pickString(m, theoryAliases, "usage_context"),
		Confidence:   pickConfidence(m, theoryAliases),
		ExtractedAt:  extractedAt,
	}, true
}

// Phenomenon coerces a loose record.
func Phenomenon(m map[string]any, extractedAt time.Time) (types.Phenomenon, bool) {
	name := pickString(m, phenomenonAliases, "name")
	if name == "" {
		return types.Phenomenon{}, false
	}
	return types.Phenomenon{
		Name:            name,
		PhenomenonType:  types.PhenomenonType(enumOr(pickString(m, phenomenonAliases, "phenomenon_type"), phenomenonTypes, "pattern")),
		Domain:          pickString(m, phenomenonAliases, "domain"),
		Description:     pickString(m, phenomenonAliases, "description"),
		LevelOfAnalysis: types.LevelOfAnalysis(enumOr(pickString(m, phenomenonAliases, "level_of_analysis"), analysisLevels, "")),
		Section:         pickString(m, phenomenonAliases, "section"),
		Context:         pickString(m, phenomenonAliases, "context"),
		Confidence:      pickConfidence(m, phenomenonAliases),
		ExtractedAt:     extractedAt,
	}, true
}

// methodTypeKeywords back the surface-level inference when the LLM omits
// method_type (R2.3).
var methodTypeKeywords = []struct {
	keywords []string
	mtype    string
}{
	{[]string{"experiment", "randomized", "randomised"}, "experimental"},
	{[]string{"simulation", "agent-based", "machine learning", "computational", "topic model"}, "computational"},
	{[]string{"case study", "interview", "ethnograph", "grounded theory", "content analysis", "qualitative"}, "qualitative"},
	{[]string{"mixed method", "mixed-method"}, "mixed"},
	{[]string{"regression", "least squares", "panel", "survey", "event study", "logit", "probit", "anova", "meta-analysis", "econometric"}, "quantitative"},
}

func inferMethodType(name string) string {
	lower := strings.ToLower(name)
	for _, group := range methodTypeKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.mtype
			}
		}
	}
	return "quantitative"
}

// Method coerces a loose record, inferring method_type from the name when
// absent.
func Method(m map[string]any, extractedAt time.Time) (types.Method, bool) {
	name := pickString(m, methodAliases, "name")
	if name == "" {
		return types.Method{}, false
	}
	mtype := pickString(m, methodAliases, "method_type")
	if mtype == "" {
		mtype = inferMethodType(name)
	}
	return types.Method{
		Name:        name,
		MethodType:  types.MethodType(enumOr(mtype, methodTypes, inferMethodType(name))),
		Category:    pickString(m, methodAliases, "category"),
		Software:    pickStringList(m, methodAliases, "software"),
		SampleSize:  pickString(m, methodAliases, "sample_size"),
		TimePeriod:  pickString(m, methodAliases, "time_period"),
		Confidence:  pickConfidence(m, methodAliases),
		ExtractedAt: extractedAt,
	}, true
}

// Variable coerces a loose record and derives the stable variable_id.
func Variable(paperID string, m map[string]any) (types.Variable, bool) {
	name := pickString(m, variableAliases, "name")
	if name == "" {
		return types.Variable{}, false
	}
	return types.Variable{
		VariableID:         types.StableID(paperID, name),
		Name:               name,
		VariableType:       types.VariableType(enumOr(pickString(m, variableAliases, "variable_type"), variableTypes, "independent")),
		Measurement:        pickString(m, variableAliases, "measurement"),
		Operationalization: pickString(m, variableAliases, "operationalization"),
		Confidence:         pickConfidence(m, variableAliases),
	}, true
}

// Finding coerces a loose record and derives the stable finding_id.
func Finding(paperID string, m map[string]any) (types.Finding, bool) {
	text := pickString(m, findingAliases, "text")
	if text == "" {
		return types.Finding{}, false
	}
	return types.Finding{
		FindingID:    types.StableID(paperID, text),
		Text:         text,
		FindingType:  types.FindingType(enumOr(pickString(m, findingAliases, "finding_type"), findingTypes, "exploratory")),
		Significance: pickString(m, findingAliases, "significance"),
		EffectSize:   pickString(m, findingAliases, "effect_size"),
		Section:      pickString(m, findingAliases, "section"),
		Confidence:   pickConfidence(m, findingAliases),
	}, true
}

// Contribution coerces a loose record and derives the stable
// contribution_id.
func Contribution(paperID string, m map[string]any) (types.Contribution, bool) {
	text := pickString(m, contributionAliases, "text")
	if text == "" {
		return types.Contribution{}, false
	}
	return types.Contribution{
		ContributionID:   types.StableID(paperID, text),
		Text:             text,
		ContributionType: types.ContributionType(enumOr(pickString(m, contributionAliases, "contribution_type"), contributionTypes, "theoretical")),
		Section:          pickString(m, contributionAliases, "section"),
		Confidence:       pickConfidence(m, contributionAliases),
	}, true
}

// ResearchQuestion coerces a loose record and derives the stable
// question_id.
func ResearchQuestion(paperID string, m map[string]any) (types.ResearchQuestion, bool) {
	question := pickString(m, questionAliases, "question")
	if question == "" {
		return types.ResearchQuestion{}, false
	}
	return types.ResearchQuestion{
		QuestionID:   types.StableID(paperID, question),
		Question:     question,
		QuestionType: types.QuestionType(enumOr(pickString(m, questionAliases, "question_type"), questionTypes, "exploratory")),
		Section:      pickString(m, questionAliases, "section"),
		Confidence:   pickConfidence(m, questionAliases),
	}, true
}

// Citation coerces a loose record; the cited title is the identity.
func Citation(m map[string]any) (types.Citation, bool) {
	title := pickString(m, citationAliases, "cited_title")
	if title == "" {
		return types.Citation{}, false
	}
	return types.Citation{
		CitedTitle:   title,
		CitedAuthors: pickStringList(m, citationAliases, "cited_authors"),
		CitedYear:    pickInt(m, citationAliases, "cited_year"),
		CitationType: pickString(m, citationAliases, "citation_type"),
		Section:      pickString(m, citationAliases, "section"),
		Confidence:   pickConfidence(m, citationAliases),
	}, true
}

// Author coerces a loose record, deriving the deterministic author_id.
// position is the 1-based fallback order when the record lacks one.
func Author(m map[string]any, position int) (types.Author, bool) {
	full := pickString(m, authorAliases, "full_name")
	given := pickString(m, authorAliases, "given_name")
	family := pickString(m, authorAliases, "family_name")
	if full == "" {
		full = strings.TrimSpace(given + " " + family)
	}
	if full == "" {
		return types.Author{}, false
	}
	pos := pickInt(m, authorAliases, "position")
	if pos <= 0 {
		pos = position
	}

	author := types.Author{
		AuthorID:   types.DeterministicAuthorID(given, family, full),
		FullName:   full,
		GivenName:  given,
		FamilyName: family,
		ORCID:      pickString(m, authorAliases, "orcid"),
		Email:      pickString(m, authorAliases, "email"),
		Position:   pos,
	}

	if raw, ok := m["affiliations"].([]any); ok {
		for _, a := range raw {
			am, ok := a.(map[string]any)
			if !ok {
				continue
			}
			inst := firstString(am, "institution_name", "institution", "name")
			if inst == "" {
				continue
			}
			author.Affiliations = append(author.Affiliations, types.Affiliation{
				InstitutionName: inst,
				Department:      firstString(am, "department"),
				City:            firstString(am, "city"),
				Country:         firstString(am, "country"),
				AffiliationType: firstString(am, "affiliation_type", "type"),
				PositionTitle:   firstString(am, "position_title", "title"),
			})
		}
	}
	return author, true
}

// Software coerces a loose record.
func Software(m map[string]any) (types.Software, bool) {
	name := pickString(m, softwareAliases, "name")
	if name == "" {
		return types.Software{}, false
	}
	return types.Software{
		Name:         name,
		Version:      pickString(m, softwareAliases, "version"),
		SoftwareType: pickString(m, softwareAliases, "software_type"),
	}, true
}

// Dataset coerces a loose record.
func Dataset(m map[string]any) (types.Dataset, bool) {
	name := pickString(m, datasetAliases, "name")
	if name == "" {
		return types.Dataset{}, false
	}
	return types.Dataset{
		Name:        name,
		DatasetType: pickString(m, datasetAliases, "dataset_type"),
		TimePeriod:  pickString(m, datasetAliases, "time_period"),
		SampleSize:  pickString(m, datasetAliases, "sample_size"),
		Access:      pickString(m, datasetAliases, "access"),
	}, true
}

// defaultPaperType backs the minimal-metadata fallback. Most of the corpus
// is quantitative empirical work.
const defaultPaperType = "empirical_quantitative"

// Paper coerces paper metadata and never fails: a hopeless record
// degrades to "Paper {paper_id}" with the year taken from the filename
// prefix (R3.1).
func Paper(paperID string, yearFromFilename int, m map[string]any) types.Paper {
	p := types.Paper{
		PaperID:         paperID,
		Title:           pickString(m, paperAliases, "title"),
		Abstract:        pickString(m, paperAliases, "abstract"),
		PublicationYear: pickInt(m, paperAliases, "publication_year"),
		Journal:         pickString(m, paperAliases, "journal"),
		DOI:             pickString(m, paperAliases, "doi"),
		Keywords:        pickStringList(m, paperAliases, "keywords"),
		PaperType:       types.PaperType(enumOr(pickString(m, paperAliases, "paper_type"), paperTypes, defaultPaperType)),
	}
	if p.Title == "" {
		p.Title = fmt.Sprintf("Paper %s", paperID)
	}
	if p.PublicationYear == 0 {
		p.PublicationYear = yearFromFilename
	}
	if p.Journal == "" {
		p.Journal = "Strategic Management Journal"
	}
	if p.Keywords == nil {
		p.Keywords = []string{}
	}
	return p
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
