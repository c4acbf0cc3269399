// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate coerces loose LLM output records into strict typed
// entities. Implements: prd004-validation (R1-R3);
//
//	docs/ARCHITECTURE § Validation.
//
// Field-name variance in LLM output (e.g. "name" vs "theory_name",
// "High" vs 0.9) is handled by per-entity alias tables: a total function
// from loose record to strict record, not a dispatch mechanism.
package validate

import (
	"strconv"
	"strings"
)

// Alias tables: canonical field -> accepted source keys, in priority order.
var (
	theoryAliases = map[string][]string{
		"name":          {"name", "theory_name", "theory"},
		"domain":        {"domain", "field"},
		"theory_type":   {"theory_type", "type"},
		"description":   {"description", "summary"},
		"role":          {"role", "theory_role", "usage"},
		"section":       {"section"},
		"usage_context": {"usage_context", "context", "usage"},
		"confidence":    {"confidence", "certainty"},
	}

	phenomenonAliases = map[string][]string{
		"name":              {"phenomenon_name", "name", "phenomenon"},
		"phenomenon_type":   {"phenomenon_type", "type"},
		"domain":            {"domain", "field"},
		"description":       {"description", "summary"},
		"level_of_analysis": {"level_of_analysis", "level"},
		"section":           {"section"},
		"context":           {"context", "study_context"},
		"confidence":        {"confidence"},
	}

	methodAliases = map[string][]string{
		"name":        {"method_name", "name", "method"},
		"method_type": {"method_type", "type"},
		"category":    {"category"},
		"software":    {"software", "tools"},
		"sample_size": {"sample_size", "sample", "n"},
		"time_period": {"time_period", "period"},
		"confidence":  {"confidence"},
	}

	variableAliases = map[string][]string{
		"name":               {"variable_name", "name", "variable"},
		"variable_type":      {"variable_type", "type", "role"},
		"measurement":        {"measurement", "measure"},
		"operationalization": {"operationalization", "operationalisation", "definition"},
		"confidence":         {"confidence"},
	}

	findingAliases = map[string][]string{
		"text":         {"finding_text", "text", "finding", "statement"},
		"finding_type": {"finding_type", "type"},
		"significance": {"significance", "p_value"},
		"effect_size":  {"effect_size", "effect"},
		"section":      {"section"},
		"confidence":   {"confidence"},
	}

	contributionAliases = map[string][]string{
		"text":              {"contribution_text", "text", "contribution", "statement"},
		"contribution_type": {"contribution_type", "type"},
		"section":           {"section"},
		"confidence":        {"confidence"},
	}

	questionAliases = map[string][]string{
		"question":      {"question", "question_text", "research_question"},
		"question_type": {"question_type", "type"},
		"section":       {"section"},
		"confidence":    {"confidence"},
	}

	citationAliases = map[string][]string{
		"cited_title":   {"cited_title", "title"},
		"cited_authors": {"cited_authors", "authors"},
		"cited_year":    {"cited_year", "year"},
		"citation_type": {"citation_type", "type"},
		"section":       {"section"},
		"confidence":    {"confidence"},
	}

	authorAliases = map[string][]string{
		"full_name":    {"full_name", "name", "author_name"},
		"given_name":   {"given_name", "first_name"},
		"family_name":  {"family_name", "last_name", "surname"},
		"orcid":        {"orcid"},
		"email":        {"email"},
		"position":     {"position", "author_position", "order"},
		"affiliations": {"affiliations", "affiliation"},
	}

	softwareAliases = map[string][]string{
		"name":          {"software_name", "name", "software"},
		"version":       {"version"},
		"software_type": {"software_type", "type"},
	}

	datasetAliases = map[string][]string{
		"name":         {"dataset_name", "name", "dataset", "data_source"},
		"dataset_type": {"dataset_type", "type"},
		"time_period":  {"time_period", "period", "years"},
		"sample_size":  {"sample_size", "sample", "n"},
		"access":       {"access", "availability"},
	}

	paperAliases = map[string][]string{
		"title":            {"title", "paper_title"},
		"abstract":         {"abstract", "summary"},
		"publication_year": {"publication_year", "year"},
		"journal":          {"journal", "venue"},
		"doi":              {"doi"},
		"keywords":         {"keywords", "key_words"},
		"paper_type":       {"paper_type", "type", "study_type"},
	}
)

// pickString returns the first non-empty string value among the aliased
// keys of the canonical field.
func pickString(m map[string]any, aliases map[string][]string, field string) string {
	for _, key := range aliases[field] {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// pickStringList accepts a JSON array of strings or a single comma-joined
// string.
func pickStringList(m map[string]any, aliases map[string][]string, field string) []string {
	for _, key := range aliases[field] {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case []any:
			var out []string
			for _, e := range t {
				if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, strings.TrimSpace(s))
				}
			}
			if len(out) > 0 {
				return out
			}
		case string:
			var out []string
			for _, part := range strings.Split(t, ",") {
				if p := strings.TrimSpace(part); p != "" {
					out = append(out, p)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

// pickInt accepts JSON numbers and numeric strings.
func pickInt(m map[string]any, aliases map[string][]string, field string) int {
	for _, key := range aliases[field] {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			return int(t)
		case int:
			return t
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
				return n
			}
		}
	}
	return 0
}

// defaultConfidence fills in for entities the LLM returned without one.
const defaultConfidence = 0.8

// wordConfidence maps qualitative confidence words to numeric values.
var wordConfidence = map[string]float64{
	"very high": 0.95,
	"high":      0.9,
	"medium":    0.7,
	"moderate":  0.7,
	"low":       0.5,
	"very low":  0.3,
}

// pickConfidence coerces numeric, numeric-string, and qualitative-word
// confidence values, clamped to [0,1]. Missing values become 0.8.
func pickConfidence(m map[string]any, aliases map[string][]string) float64 {
	for _, key := range aliases["confidence"] {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			return clamp01(t)
		case string:
			s := strings.ToLower(strings.TrimSpace(t))
			if c, ok := wordConfidence[s]; ok {
				return c
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return clamp01(f)
			}
		}
	}
	return defaultConfidence
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// enumOr returns value when it is in the allowed set, otherwise fallback.
// Values compare case-insensitively with spaces folded to underscores.
func enumOr(value string, allowed []string, fallback string) string {
	v := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), " ", "_")
	for _, a := range allowed {
		if v == a {
			return a
		}
	}
	return fallback
}
