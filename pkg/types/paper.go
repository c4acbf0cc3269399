// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// PaperType classifies the study design of a paper.
// Per prd001-corpus R1.2.
type PaperType string

const (
	PaperEmpiricalQuantitative PaperType = "empirical_quantitative"
	PaperEmpiricalQualitative  PaperType = "empirical_qualitative"
	PaperTheoretical           PaperType = "theoretical"
	PaperReview                PaperType = "review"
	PaperMetaAnalysis          PaperType = "meta_analysis"
	PaperResearchNote          PaperType = "research_note"
)

// Paper holds validated metadata for one paper node.
// Per prd005-ingestion R1.1: paper_id is the unique node identity.
type Paper struct {
	// PaperID is the corpus identifier, the filename stem (e.g. "1995_smj_0142").
	PaperID string `json:"paper_id" yaml:"paper_id"`

	// Title is the paper title. Never empty after validation; the validator
	// falls back to "Paper {paper_id}" when extraction fails.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract, possibly empty.
	Abstract string `json:"abstract" yaml:"abstract"`

	// PublicationYear is the publication year. The YYYY filename prefix is
	// authoritative when the PDF does not declare one.
	PublicationYear int `json:"publication_year" yaml:"publication_year"`

	// Journal is the publishing journal name.
	Journal string `json:"journal" yaml:"journal"`

	// DOI is the digital object identifier, possibly empty.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Keywords lists author-declared or extracted keywords.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// PaperType classifies the study design.
	PaperType PaperType `json:"paper_type" yaml:"paper_type"`
}

// Affiliation ties an author to an institution for one paper.
type Affiliation struct {
	InstitutionName string `json:"institution_name" yaml:"institution_name"`
	Department      string `json:"department,omitempty" yaml:"department,omitempty"`
	City            string `json:"city,omitempty" yaml:"city,omitempty"`
	Country         string `json:"country,omitempty" yaml:"country,omitempty"`
	AffiliationType string `json:"affiliation_type,omitempty" yaml:"affiliation_type,omitempty"`
	PositionTitle   string `json:"position_title,omitempty" yaml:"position_title,omitempty"`
}

// Author is one paper author with a deterministic identity.
// Per prd005-ingestion R2.1: AuthorID derives from family+given name so the
// same person resolves to one node across papers.
type Author struct {
	// AuthorID is the deterministic identity hash. Computed by
	// DeterministicAuthorID; the extractor leaves it empty and the
	// validator fills it.
	AuthorID string `json:"author_id" yaml:"author_id"`

	FullName   string `json:"full_name" yaml:"full_name"`
	GivenName  string `json:"given_name,omitempty" yaml:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty" yaml:"family_name,omitempty"`
	ORCID      string `json:"orcid,omitempty" yaml:"orcid,omitempty"`
	Email      string `json:"email,omitempty" yaml:"email,omitempty"`

	// Position is the 1-based author order on the paper.
	Position int `json:"position" yaml:"position"`

	Affiliations []Affiliation `json:"affiliations,omitempty" yaml:"affiliations,omitempty"`
}
