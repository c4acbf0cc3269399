// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize maps extracted surface names to canonical entities.
// Implements: prd003-normalization (R1-R4);
//
//	docs/ARCHITECTURE § Normalization.
package normalize

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"
)

// EntityClass selects the dictionary section for a lookup.
type EntityClass string

const (
	ClassTheory     EntityClass = "theory"
	ClassMethod     EntityClass = "method"
	ClassSoftware   EntityClass = "software"
	ClassPhenomenon EntityClass = "phenomenon"
)

//go:embed dictionary.yaml
var defaultDictionaryYAML []byte

// Dictionary is the curated canonical-name mapping per entity class.
// Aliases are stored lowercase; each canonical name is its own alias so
// normalization is idempotent.
type Dictionary struct {
	// classes: class -> canonical name -> aliases (lowercase).
	classes map[EntityClass]map[string][]string

	// aliasIndex: class -> alias -> canonical name, for exact lookup.
	aliasIndex map[EntityClass]map[string]string

	// sortedAliases keeps fuzzy matching deterministic: longest first,
	// ties alphabetical.
	sortedAliases map[EntityClass][]string
}

// LoadDictionary returns the embedded default dictionary, with entries
// from overridePath (if non-empty) merged on top.
func LoadDictionary(overridePath string) (*Dictionary, error) {
	var raw map[EntityClass]map[string][]string
	if err := yaml.Unmarshal(defaultDictionaryYAML, &raw); err != nil {
		return nil, fmt.Errorf("parsing embedded dictionary: %w", err)
	}

	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("reading dictionary override %s: %w", overridePath, err)
		}
		var extra map[EntityClass]map[string][]string
		if err := yaml.Unmarshal(data, &extra); err != nil {
			return nil, fmt.Errorf("parsing dictionary override %s: %w", overridePath, err)
		}
		for class, entries := range extra {
			if raw[class] == nil {
				raw[class] = map[string][]string{}
			}
			for canonical, aliases := range entries {
				raw[class][canonical] = append(raw[class][canonical], aliases...)
			}
		}
	}

	d := &Dictionary{
		classes:       raw,
		aliasIndex:    make(map[EntityClass]map[string]string),
		sortedAliases: make(map[EntityClass][]string),
	}
	for class, entries := range raw {
		idx := make(map[string]string)
		for canonical, aliases := range entries {
			idx[strings.ToLower(canonical)] = canonical
			for _, a := range aliases {
				idx[strings.ToLower(strings.TrimSpace(a))] = canonical
			}
		}
		d.aliasIndex[class] = idx

		sorted := make([]string, 0, len(idx))
		for a := range idx {
			sorted = append(sorted, a)
		}
		sort.Slice(sorted, func(i, j int) bool {
			if len(sorted[i]) != len(sorted[j]) {
				return len(sorted[i]) > len(sorted[j])
			}
			return sorted[i] < sorted[j]
		})
		d.sortedAliases[class] = sorted
	}
	return d, nil
}

// Lookup returns the canonical name for an exact lowercase alias match.
func (d *Dictionary) Lookup(class EntityClass, lower string) (string, bool) {
	canonical, ok := d.aliasIndex[class][lower]
	return canonical, ok
}

// Canonicals returns the sorted canonical names of a class.
func (d *Dictionary) Canonicals(class EntityClass) []string {
	entries := d.classes[class]
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Aliases returns the alias list of a canonical name.
func (d *Dictionary) Aliases(class EntityClass, canonical string) []string {
	return d.classes[class][canonical]
}

// fuzzyLookup tries prefix/suffix matching against multi-word aliases,
// then substring matching for aliases longer than 5 characters (R1.3).
// The boolean result distinguishes the two tiers: true means prefix/suffix.
func (d *Dictionary) fuzzyLookup(class EntityClass, lower string) (canonical string, prefixTier, ok bool) {
	for _, alias := range d.sortedAliases[class] {
		if strings.Contains(alias, " ") &&
			(strings.HasPrefix(lower, alias) || strings.HasSuffix(lower, alias)) {
			return d.aliasIndex[class][alias], true, true
		}
	}
	for _, alias := range d.sortedAliases[class] {
		if len(alias) > 5 && strings.Contains(lower, alias) {
			return d.aliasIndex[class][alias], false, true
		}
	}
	return "", false, false
}
