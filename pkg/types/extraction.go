// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ExtractionMode identifies how the extractor grouped its LLM calls.
// Per prd002-extraction R3: combined mode batches the ten entity kinds into
// three calls; single mode issues one call per kind for backends that
// cannot honor large composite schemas.
type ExtractionMode string

const (
	ModeCombined ExtractionMode = "combined"
	ModeSingle   ExtractionMode = "single"
)

// ExtractionResult is the total, typed output of extracting one paper.
// Every list is non-nil after extraction; a failed or empty LLM call
// yields an empty list, never an absent field.
type ExtractionResult struct {
	PaperID string `json:"paper_id" yaml:"paper_id"`

	// Mode records which call shape produced this result. The downstream
	// pipeline is mode-agnostic.
	Mode ExtractionMode `json:"mode" yaml:"mode"`

	Paper   Paper    `json:"paper" yaml:"paper"`
	Authors []Author `json:"authors" yaml:"authors"`

	Theories              []Theory               `json:"theories" yaml:"theories"`
	Phenomena             []Phenomenon           `json:"phenomena" yaml:"phenomena"`
	TheoryPhenomenonLinks []TheoryPhenomenonLink `json:"theory_phenomenon_links" yaml:"theory_phenomenon_links"`

	Methods           []Method           `json:"methods" yaml:"methods"`
	Variables         []Variable         `json:"variables" yaml:"variables"`
	Findings          []Finding          `json:"findings" yaml:"findings"`
	Contributions     []Contribution     `json:"contributions" yaml:"contributions"`
	ResearchQuestions []ResearchQuestion `json:"research_questions" yaml:"research_questions"`

	Software  []Software `json:"software" yaml:"software"`
	Datasets  []Dataset  `json:"datasets" yaml:"datasets"`
	Citations []Citation `json:"citations" yaml:"citations"`
}

// NewExtractionResult returns a total result with every list initialized
// so callers never see nil fields.
func NewExtractionResult(paperID string, mode ExtractionMode) *ExtractionResult {
	return &ExtractionResult{
		PaperID:               paperID,
		Mode:                  mode,
		Authors:               []Author{},
		Theories:              []Theory{},
		Phenomena:             []Phenomenon{},
		TheoryPhenomenonLinks: []TheoryPhenomenonLink{},
		Methods:               []Method{},
		Variables:             []Variable{},
		Findings:              []Finding{},
		Contributions:         []Contribution{},
		ResearchQuestions:     []ResearchQuestion{},
		Software:              []Software{},
		Datasets:              []Dataset{},
		Citations:             []Citation{},
	}
}

// EntityCounts returns per-kind totals for statistics aggregation.
func (r *ExtractionResult) EntityCounts() map[string]int {
	return map[string]int{
		"authors":            len(r.Authors),
		"theories":           len(r.Theories),
		"phenomena":          len(r.Phenomena),
		"methods":            len(r.Methods),
		"variables":          len(r.Variables),
		"findings":           len(r.Findings),
		"contributions":      len(r.Contributions),
		"research_questions": len(r.ResearchQuestions),
		"software":           len(r.Software),
		"datasets":           len(r.Datasets),
		"citations":          len(r.Citations),
	}
}
