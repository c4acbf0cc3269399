// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ValidationStatus annotates whether an extracted entity was found in the
// source text. Per prd002-extraction R4.
type ValidationStatus string

const (
	ValidationExact        ValidationStatus = "exact_match"
	ValidationPartial      ValidationStatus = "partial_match"
	ValidationWeak         ValidationStatus = "weak_match"
	ValidationAbbreviation ValidationStatus = "abbreviation_match"
	ValidationNotFound     ValidationStatus = "not_found"
	ValidationNotValidated ValidationStatus = "not_validated"
)

// TheoryType classifies a theory node.
type TheoryType string

const (
	TheoryFramework   TheoryType = "framework"
	TheoryConcept     TheoryType = "concept"
	TheoryModel       TheoryType = "model"
	TheoryPerspective TheoryType = "perspective"
)

// TheoryRole describes how a paper uses a theory.
type TheoryRole string

const (
	RolePrimary     TheoryRole = "primary"
	RoleSupporting  TheoryRole = "supporting"
	RoleChallenging TheoryRole = "challenging"
	RoleExtending   TheoryRole = "extending"
)

// Theory is an extracted theory together with the USES_THEORY edge
// attributes that tie it to the source paper.
type Theory struct {
	// Name is the canonical name after normalization; before normalization
	// it holds the surface form from the paper.
	Name string `json:"name" yaml:"name"`

	// OriginalName preserves the pre-normalization surface form. Persisted
	// on the node at first creation only.
	OriginalName string `json:"original_name,omitempty" yaml:"original_name,omitempty"`

	Domain      string     `json:"domain,omitempty" yaml:"domain,omitempty"`
	TheoryType  TheoryType `json:"theory_type" yaml:"theory_type"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`

	// Edge attributes (paper-scoped).
	Role             TheoryRole       `json:"role" yaml:"role"`
	Section          string           `json:"section,omitempty" yaml:"section,omitempty"`
	UsageContext     string           `json:"usage_context,omitempty" yaml:"usage_context,omitempty"`
	Confidence       float64          `json:"confidence" yaml:"confidence"`
	ValidationStatus ValidationStatus `json:"validation_status,omitempty" yaml:"validation_status,omitempty"`

	// ExtractedAt timestamps the extraction for most_recent conflict
	// resolution.
	ExtractedAt time.Time `json:"extracted_at,omitempty" yaml:"extracted_at,omitempty"`
}

// PhenomenonType classifies a phenomenon node.
type PhenomenonType string

const (
	PhenBehavior PhenomenonType = "behavior"
	PhenPattern  PhenomenonType = "pattern"
	PhenEvent    PhenomenonType = "event"
	PhenTrend    PhenomenonType = "trend"
	PhenProcess  PhenomenonType = "process"
	PhenOutcome  PhenomenonType = "outcome"
)

// LevelOfAnalysis locates a phenomenon on the micro-macro continuum.
type LevelOfAnalysis string

const (
	LevelIndividual   LevelOfAnalysis = "individual"
	LevelTeam         LevelOfAnalysis = "team"
	LevelOrganization LevelOfAnalysis = "organization"
	LevelIndustry     LevelOfAnalysis = "industry"
	LevelEconomy      LevelOfAnalysis = "economy"
	LevelMulti        LevelOfAnalysis = "multi_level"
)

// Phenomenon is an extracted phenomenon with its STUDIES_PHENOMENON edge
// attributes.
type Phenomenon struct {
	Name            string          `json:"phenomenon_name" yaml:"phenomenon_name"`
	OriginalName    string          `json:"original_name,omitempty" yaml:"original_name,omitempty"`
	PhenomenonType  PhenomenonType  `json:"phenomenon_type" yaml:"phenomenon_type"`
	Domain          string          `json:"domain,omitempty" yaml:"domain,omitempty"`
	Description     string          `json:"description,omitempty" yaml:"description,omitempty"`
	LevelOfAnalysis LevelOfAnalysis `json:"level_of_analysis,omitempty" yaml:"level_of_analysis,omitempty"`

	Section          string           `json:"section,omitempty" yaml:"section,omitempty"`
	Context          string           `json:"context,omitempty" yaml:"context,omitempty"`
	Confidence       float64          `json:"confidence" yaml:"confidence"`
	ValidationStatus ValidationStatus `json:"validation_status,omitempty" yaml:"validation_status,omitempty"`
	ExtractedAt      time.Time        `json:"extracted_at,omitempty" yaml:"extracted_at,omitempty"`
}

// MethodType classifies a research method.
type MethodType string

const (
	MethodQuantitative MethodType = "quantitative"
	MethodQualitative  MethodType = "qualitative"
	MethodMixed        MethodType = "mixed"
	MethodComputational MethodType = "computational"
	MethodExperimental MethodType = "experimental"
)

// Method is an extracted research method. Node identity is the composite
// (Name, MethodType).
type Method struct {
	Name             string           `json:"method_name" yaml:"method_name"`
	OriginalName     string           `json:"original_name,omitempty" yaml:"original_name,omitempty"`
	MethodType       MethodType       `json:"method_type" yaml:"method_type"`
	Category         string           `json:"category,omitempty" yaml:"category,omitempty"`
	Software         []string         `json:"software,omitempty" yaml:"software,omitempty"`
	SampleSize       string           `json:"sample_size,omitempty" yaml:"sample_size,omitempty"`
	TimePeriod       string           `json:"time_period,omitempty" yaml:"time_period,omitempty"`
	Confidence       float64          `json:"confidence" yaml:"confidence"`
	ValidationStatus ValidationStatus `json:"validation_status,omitempty" yaml:"validation_status,omitempty"`
	ExtractedAt      time.Time        `json:"extracted_at,omitempty" yaml:"extracted_at,omitempty"`
}

// VariableType classifies a variable's role in the study design.
type VariableType string

const (
	VarDependent    VariableType = "dependent"
	VarIndependent  VariableType = "independent"
	VarControl      VariableType = "control"
	VarModerator    VariableType = "moderator"
	VarMediator     VariableType = "mediator"
	VarInstrumental VariableType = "instrumental"
)

// Variable is an extracted study variable, identified per paper.
type Variable struct {
	// VariableID is StableID(paper_id, variable_name). Filled by the validator.
	VariableID string `json:"variable_id" yaml:"variable_id"`

	Name               string           `json:"variable_name" yaml:"variable_name"`
	VariableType       VariableType     `json:"variable_type" yaml:"variable_type"`
	Measurement        string           `json:"measurement,omitempty" yaml:"measurement,omitempty"`
	Operationalization string           `json:"operationalization,omitempty" yaml:"operationalization,omitempty"`
	Confidence         float64          `json:"confidence" yaml:"confidence"`
	ValidationStatus   ValidationStatus `json:"validation_status,omitempty" yaml:"validation_status,omitempty"`
}

// FindingType classifies an empirical finding.
type FindingType string

const (
	FindingSupported  FindingType = "hypothesis_supported"
	FindingRejected   FindingType = "hypothesis_rejected"
	FindingUnexpected FindingType = "unexpected"
	FindingExploratory FindingType = "exploratory"
)

// Finding is an extracted result statement, identified per paper.
type Finding struct {
	FindingID    string      `json:"finding_id" yaml:"finding_id"`
	Text         string      `json:"finding_text" yaml:"finding_text"`
	FindingType  FindingType `json:"finding_type" yaml:"finding_type"`
	Significance string      `json:"significance,omitempty" yaml:"significance,omitempty"`
	EffectSize   string      `json:"effect_size,omitempty" yaml:"effect_size,omitempty"`
	Section      string      `json:"section,omitempty" yaml:"section,omitempty"`
	Confidence   float64     `json:"confidence" yaml:"confidence"`
}

// ContributionType classifies a claimed contribution.
type ContributionType string

const (
	ContribTheoretical    ContributionType = "theoretical"
	ContribEmpirical      ContributionType = "empirical"
	ContribMethodological ContributionType = "methodological"
	ContribPractical      ContributionType = "practical"
)

// Contribution is a claimed contribution statement, identified per paper.
type Contribution struct {
	ContributionID   string           `json:"contribution_id" yaml:"contribution_id"`
	Text             string           `json:"contribution_text" yaml:"contribution_text"`
	ContributionType ContributionType `json:"contribution_type" yaml:"contribution_type"`
	Section          string           `json:"section,omitempty" yaml:"section,omitempty"`
	Confidence       float64          `json:"confidence" yaml:"confidence"`
}

// Software is an analysis tool referenced by a paper. Node identity is the
// normalized name.
type Software struct {
	Name         string `json:"software_name" yaml:"software_name"`
	OriginalName string `json:"original_name,omitempty" yaml:"original_name,omitempty"`
	Version      string `json:"version,omitempty" yaml:"version,omitempty"`
	SoftwareType string `json:"software_type,omitempty" yaml:"software_type,omitempty"`
}

// Dataset is a data source used by a paper.
type Dataset struct {
	Name        string `json:"dataset_name" yaml:"dataset_name"`
	DatasetType string `json:"dataset_type,omitempty" yaml:"dataset_type,omitempty"`
	TimePeriod  string `json:"time_period,omitempty" yaml:"time_period,omitempty"`
	SampleSize  string `json:"sample_size,omitempty" yaml:"sample_size,omitempty"`
	Access      string `json:"access,omitempty" yaml:"access,omitempty"`
}

// QuestionType classifies a research question.
type QuestionType string

const (
	QuestionDescriptive  QuestionType = "descriptive"
	QuestionExplanatory  QuestionType = "explanatory"
	QuestionPredictive   QuestionType = "predictive"
	QuestionPrescriptive QuestionType = "prescriptive"
	QuestionExploratory  QuestionType = "exploratory"
)

// ResearchQuestion is an extracted research question, identified per paper.
type ResearchQuestion struct {
	QuestionID       string           `json:"question_id" yaml:"question_id"`
	Question         string           `json:"question" yaml:"question"`
	QuestionType     QuestionType     `json:"question_type" yaml:"question_type"`
	Section          string           `json:"section,omitempty" yaml:"section,omitempty"`
	Confidence       float64          `json:"confidence" yaml:"confidence"`
	ValidationStatus ValidationStatus `json:"validation_status,omitempty" yaml:"validation_status,omitempty"`
}

// Citation is a reference from the ingested paper to another work. The
// ingester resolves it against Paper titles already in the graph; unresolved
// citations never become placeholder nodes.
type Citation struct {
	CitedTitle       string           `json:"cited_title" yaml:"cited_title"`
	CitedAuthors     []string         `json:"cited_authors,omitempty" yaml:"cited_authors,omitempty"`
	CitedYear        int              `json:"cited_year,omitempty" yaml:"cited_year,omitempty"`
	CitationType     string           `json:"citation_type,omitempty" yaml:"citation_type,omitempty"`
	Section          string           `json:"section,omitempty" yaml:"section,omitempty"`
	Confidence       float64          `json:"confidence" yaml:"confidence"`
	ValidationStatus ValidationStatus `json:"validation_status,omitempty" yaml:"validation_status,omitempty"`
}

// TheoryPhenomenonLink is an explicit theory-explains-phenomenon pair
// reported by the extractor. Its presence adds the explicit bonus to the
// connection-strength score.
type TheoryPhenomenonLink struct {
	TheoryName     string `json:"theory_name" yaml:"theory_name"`
	PhenomenonName string `json:"phenomenon_name" yaml:"phenomenon_name"`
	Explanation    string `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}
