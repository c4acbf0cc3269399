// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import "strings"

// Citation match confidences.
const (
	citationExactConf = 1.0
	citationFuzzyConf = 0.7

	// citationPrefixLen bounds the fuzzy title comparison. Reference lists
	// truncate long titles, so only the opening characters are reliable.
	citationPrefixLen = 50
)

// PaperRef is the minimal paper identity used for citation resolution.
type PaperRef struct {
	PaperID string
	Title   string
}

// ResolveCitation matches a cited title against known papers: exact
// (case-insensitive) title equality first, then bidirectional containment
// of the first 50 characters. Unresolved citations return ok=false and
// never become placeholder nodes.
func ResolveCitation(citedTitle string, papers []PaperRef) (PaperRef, float64, bool) {
	cited := strings.ToLower(strings.TrimSpace(citedTitle))
	if cited == "" {
		return PaperRef{}, 0, false
	}

	for _, p := range papers {
		if strings.ToLower(strings.TrimSpace(p.Title)) == cited {
			return p, citationExactConf, true
		}
	}

	citedPrefix := prefixOf(cited)
	for _, p := range papers {
		title := strings.ToLower(strings.TrimSpace(p.Title))
		if title == "" {
			continue
		}
		if strings.Contains(title, citedPrefix) || strings.Contains(cited, prefixOf(title)) {
			return p, citationFuzzyConf, true
		}
	}
	return PaperRef{}, 0, false
}

func prefixOf(s string) string {
	if len(s) > citationPrefixLen {
		return s[:citationPrefixLen]
	}
	return s
}
