// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"strings"
	"unicode"
)

// punctReplacer maps Unicode punctuation variants to their ASCII forms so
// surface strings from PDF text compare cleanly.
var punctReplacer = strings.NewReplacer(
	"‘", "'", "’", "'",
	"“", `"`, "”", `"`,
	"–", "-", "—", "-",
	" ", " ",
)

// smallWords are not capitalized inside a title-cased name.
var smallWords = map[string]bool{
	"a": true, "an": true, "and": true, "for": true, "in": true,
	"of": true, "on": true, "or": true, "the": true, "to": true,
}

// CleanSurface normalizes whitespace and Unicode punctuation and applies
// title case, preserving acronyms of length <= 5 (e.g. "RBV", "OLS").
func CleanSurface(s string) string {
	s = punctReplacer.Replace(s)
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = titleWord(w, i == 0)
	}
	return strings.Join(words, " ")
}

func titleWord(w string, first bool) string {
	if isAcronym(w) {
		return w
	}
	lower := strings.ToLower(w)
	if !first && smallWords[lower] {
		return lower
	}
	// Hyphenated words title-case each part ("resource-based" -> "Resource-Based").
	parts := strings.Split(lower, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		parts[i] = string(r)
	}
	return strings.Join(parts, "-")
}

// isAcronym reports whether a word is an all-caps token of length <= 5,
// ignoring trailing punctuation.
func isAcronym(w string) bool {
	trimmed := strings.TrimRight(w, ".,;:)")
	trimmed = strings.TrimLeft(trimmed, "(")
	if len(trimmed) == 0 || len(trimmed) > 5 {
		return false
	}
	hasLetter := false
	for _, r := range trimmed {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// Tokens returns lowercase tokens longer than 3 characters, used for
// lexical overlap scoring across the pipeline.
func Tokens(s string) []string {
	var out []string
	for _, t := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len(t) > 3 {
			out = append(out, t)
		}
	}
	return out
}
