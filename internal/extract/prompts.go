// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"strings"
	"text/template"
)

// Prompt types. Combined mode issues the three *_combined prompts; single
// mode issues one prompt per entity kind (R3.1, R3.2).
const (
	PromptMetadataCombined = "metadata_combined"
	PromptTheoriesCombined = "theories_combined"
	PromptMethodsCombined  = "methods_combined"

	PromptMetadata      = "metadata"
	PromptAuthors       = "authors"
	PromptTheories      = "theories"
	PromptPhenomena     = "phenomena"
	PromptMethods       = "methods"
	PromptVariables     = "variables"
	PromptFindings      = "findings"
	PromptContributions = "contributions"
	PromptQuestions     = "research_questions"
	PromptCitations     = "citations"
)

// combinedPromptTypes in call order.
var combinedPromptTypes = []string{
	PromptMetadataCombined,
	PromptTheoriesCombined,
	PromptMethodsCombined,
}

// singlePromptTypes in call order. Phenomena carry their theory links;
// methods carry software and datasets, keeping the call count at ten.
var singlePromptTypes = []string{
	PromptMetadata,
	PromptAuthors,
	PromptTheories,
	PromptPhenomena,
	PromptMethods,
	PromptVariables,
	PromptFindings,
	PromptContributions,
	PromptQuestions,
	PromptCitations,
}

const promptPreamble = `You are analyzing a paper from the Strategic Management Journal corpus.

Rules:
- Return ONLY a JSON object matching the schema below. No prose, no markdown.
- Extract only what the text supports. Omit entities you cannot ground in the text.
- Use full canonical names where the paper gives them; keep abbreviations the paper uses as-is.
- Confidence is a number in [0,1] reflecting how clearly the text supports the entity.
`

// promptBodies holds the task description, schema, and few-shot examples
// for each prompt type.
var promptBodies = map[string]string{
	PromptMetadataCombined: `Task: extract the paper's bibliographic metadata, its author list, and the references it cites.

Schema:
{
  "paper": {"title": str, "abstract": str, "publication_year": int, "journal": str, "doi": str, "keywords": [str], "paper_type": "empirical_quantitative|empirical_qualitative|theoretical|review|meta_analysis|research_note"},
  "authors": [{"full_name": str, "given_name": str, "family_name": str, "position": int, "affiliations": [{"institution": str, "department": str, "country": str}]}],
  "citations": [{"cited_title": str, "cited_authors": [str], "cited_year": int, "section": str}]
}

Example:
{
  "paper": {"title": "Firm Resources and Sustained Competitive Advantage", "publication_year": 1991, "journal": "Journal of Management", "keywords": ["resources", "competitive advantage"], "paper_type": "theoretical"},
  "authors": [{"full_name": "Jay B. Barney", "given_name": "Jay", "family_name": "Barney", "position": 1, "affiliations": [{"institution": "Texas A&M University", "country": "USA"}]}],
  "citations": [{"cited_title": "A Resource-Based View of the Firm", "cited_authors": ["Wernerfelt, B."], "cited_year": 1984, "section": "introduction"}]
}`,

	PromptTheoriesCombined: `Task: extract the theories the paper uses, the phenomena it studies, and which theory explains which phenomenon.

Schema:
{
  "theories": [{"name": str, "theory_type": "framework|concept|model|perspective", "role": "primary|supporting|challenging|extending", "domain": str, "description": str, "section": str, "usage_context": str, "confidence": float}],
  "phenomena": [{"name": str, "phenomenon_type": "behavior|pattern|event|trend|process|outcome", "level_of_analysis": "individual|team|organization|industry|economy|multi_level", "description": str, "confidence": float}],
  "theory_phenomenon_links": [{"theory_name": str, "phenomenon_name": str, "explanation": str, "confidence": float}]
}

Example:
{
  "theories": [{"name": "Resource-Based View", "theory_type": "framework", "role": "primary", "domain": "strategic management", "description": "Firm resources drive sustained advantage", "section": "theory", "usage_context": "grounds the hypotheses", "confidence": 0.95}],
  "phenomena": [{"name": "Competitive Advantage", "phenomenon_type": "outcome", "level_of_analysis": "organization", "description": "Sustained above-normal returns", "confidence": 0.9}],
  "theory_phenomenon_links": [{"theory_name": "Resource-Based View", "phenomenon_name": "Competitive Advantage", "explanation": "VRIN resources explain sustained advantage", "confidence": 0.9}]
}`,

	PromptMethodsCombined: `Task: extract the paper's research design: methods, variables, findings, contributions, research questions, software, and datasets.

Schema:
{
  "methods": [{"name": str, "method_type": "quantitative|qualitative|mixed|computational|experimental", "sample_size": str, "time_period": str, "confidence": float}],
  "variables": [{"name": str, "variable_type": "dependent|independent|control|moderator|mediator|instrumental", "measurement": str, "confidence": float}],
  "findings": [{"text": str, "finding_type": "hypothesis_supported|hypothesis_rejected|unexpected|exploratory", "significance": str, "effect_size": str, "confidence": float}],
  "contributions": [{"text": str, "contribution_type": "theoretical|empirical|methodological|practical", "confidence": float}],
  "research_questions": [{"question": str, "question_type": "descriptive|explanatory|predictive|prescriptive|exploratory", "confidence": float}],
  "software": [{"name": str, "version": str}],
  "datasets": [{"name": str, "time_period": str, "sample_size": str}]
}

Example:
{
  "methods": [{"name": "Fixed-effects panel regression", "method_type": "quantitative", "sample_size": "1,243 firm-years", "time_period": "1985-1995", "confidence": 0.95}],
  "variables": [{"name": "Return on Assets", "variable_type": "dependent", "measurement": "net income over total assets", "confidence": 0.9}],
  "findings": [{"text": "Diversification is negatively associated with ROA", "finding_type": "hypothesis_supported", "significance": "p < 0.01", "effect_size": "-0.12", "confidence": 0.85}],
  "contributions": [{"text": "Extends the RBV to diversification decisions", "contribution_type": "theoretical", "confidence": 0.8}],
  "research_questions": [{"question": "How does diversification affect firm performance?", "question_type": "explanatory", "confidence": 0.9}],
  "software": [{"name": "Stata", "version": "6.0"}],
  "datasets": [{"name": "Compustat", "time_period": "1985-1995", "sample_size": "412 firms"}]
}`,

	PromptMetadata: `Task: extract the paper's bibliographic metadata.

Schema:
{"paper": {"title": str, "abstract": str, "publication_year": int, "journal": str, "doi": str, "keywords": [str], "paper_type": "empirical_quantitative|empirical_qualitative|theoretical|review|meta_analysis|research_note"}}`,

	PromptAuthors: `Task: extract the paper's author list in byline order.

Schema:
{"authors": [{"full_name": str, "given_name": str, "family_name": str, "position": int, "affiliations": [{"institution": str, "department": str, "country": str}]}]}`,

	PromptTheories: `Task: extract the theories the paper uses or develops.

Schema:
{"theories": [{"name": str, "theory_type": "framework|concept|model|perspective", "role": "primary|supporting|challenging|extending", "domain": str, "description": str, "section": str, "usage_context": str, "confidence": float}]}

Example:
{"theories": [{"name": "Transaction Cost Economics", "theory_type": "framework", "role": "primary", "domain": "organizational economics", "description": "Governance choice minimizes transaction costs", "section": "theory", "usage_context": "predicts make-or-buy decisions", "confidence": 0.95}]}`,

	PromptPhenomena: `Task: extract the phenomena the paper studies and link each to the theory that explains it.

Schema:
{
  "phenomena": [{"name": str, "phenomenon_type": "behavior|pattern|event|trend|process|outcome", "level_of_analysis": "individual|team|organization|industry|economy|multi_level", "description": str, "confidence": float}],
  "theory_phenomenon_links": [{"theory_name": str, "phenomenon_name": str, "explanation": str, "confidence": float}]
}`,

	PromptMethods: `Task: extract the paper's methods, plus any software and datasets it uses.

Schema:
{
  "methods": [{"name": str, "method_type": "quantitative|qualitative|mixed|computational|experimental", "sample_size": str, "time_period": str, "confidence": float}],
  "software": [{"name": str, "version": str}],
  "datasets": [{"name": str, "time_period": str, "sample_size": str}]
}`,

	PromptVariables: `Task: extract the study's variables.

Schema:
{"variables": [{"name": str, "variable_type": "dependent|independent|control|moderator|mediator|instrumental", "measurement": str, "operationalization": str, "confidence": float}]}`,

	PromptFindings: `Task: extract the paper's empirical findings as individual statements.

Schema:
{"findings": [{"text": str, "finding_type": "hypothesis_supported|hypothesis_rejected|unexpected|exploratory", "significance": str, "effect_size": str, "section": str, "confidence": float}]}`,

	PromptContributions: `Task: extract the contributions the paper claims.

Schema:
{"contributions": [{"text": str, "contribution_type": "theoretical|empirical|methodological|practical", "section": str, "confidence": float}]}`,

	PromptQuestions: `Task: extract the research questions the paper poses.

Schema:
{"research_questions": [{"question": str, "question_type": "descriptive|explanatory|predictive|prescriptive|exploratory", "section": str, "confidence": float}]}`,

	PromptCitations: `Task: extract the references the paper cites, from in-text citations and the reference list.

Schema:
{"citations": [{"cited_title": str, "cited_authors": [str], "cited_year": int, "section": str}]}`,
}

var promptTmpl = template.Must(template.New("prompt").Parse(`{{.Preamble}}
{{.Body}}

Paper text:
---
{{.Text}}
---
`))

// RenderPrompt builds the full prompt for one call.
func RenderPrompt(promptType, text string) (string, error) {
	body, ok := promptBodies[promptType]
	if !ok {
		return "", fmt.Errorf("unknown prompt type %q", promptType)
	}
	var sb strings.Builder
	err := promptTmpl.Execute(&sb, struct {
		Preamble, Body, Text string
	}{promptPreamble, body, text})
	if err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", promptType, err)
	}
	return sb.String(), nil
}

// smallPrompt reports whether a prompt type gets the shorter call timeout.
// Combined calls and citation extraction return the largest responses.
func smallPrompt(promptType string) bool {
	switch promptType {
	case PromptMetadataCombined, PromptTheoriesCombined, PromptMethodsCombined, PromptCitations:
		return false
	}
	return true
}
