// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"time"

	"github.com/pdiddy/scholar-graph/internal/normalize"
)

// Strategy selects how to reconcile an incoming entity with an existing
// node of the same canonical identity. Per prd005-ingestion R3.
type Strategy string

const (
	StrategyHighestConfidence Strategy = "highest_confidence"
	StrategyMostRecent        Strategy = "most_recent"
	StrategyMerge             Strategy = "merge"
	StrategyManualReview      Strategy = "manual_review"
)

// Resolution reason strings, logged by the ingester.
const (
	ReasonNewEntity          = "new_entity"
	ReasonNewHigherConf      = "new_entity_higher_confidence"
	ReasonExistingHigherConf = "existing_entity_higher_confidence"
	ReasonNewMoreRecent      = "new_entity_more_recent"
	ReasonExistingMoreRecent = "existing_entity_more_recent"
	ReasonMerged             = "merged"
	ReasonIncompatible       = "incompatible_fell_back_to_highest_confidence"
	ReasonManualReview       = "kept_existing_needs_review"
)

// EntityRecord is the conflict-relevant slice of a node's properties.
type EntityRecord struct {
	Confidence  float64
	ExtractedAt time.Time
	Description string

	// Enums holds the enum-typed fields (e.g. theory_type) compared for
	// merge compatibility.
	Enums map[string]string

	// Scalars holds remaining scalar text fields; merge keeps the
	// non-empty value.
	Scalars map[string]string

	// Lists holds list-valued fields; merge unions them.
	Lists map[string][]string

	MergeCount int
}

// Resolution is the resolver's decision for one entity.
type Resolution struct {
	// UseIncoming is true when the incoming record's attributes should
	// overwrite the node.
	UseIncoming bool

	// Merged is the combined record when the merge strategy applied.
	Merged *EntityRecord

	// NeedsReview flags the node for manual inspection; the incoming
	// record is kept as a snapshot, not applied.
	NeedsReview bool

	Reason string
}

// descriptionOverlap is the minimum token overlap for two descriptions to
// count as compatible under the merge strategy.
const descriptionOverlap = 0.7

// Resolve reconciles incoming against existing. A nil existing means the
// node is new and incoming wins trivially.
func Resolve(strategy Strategy, existing, incoming *EntityRecord) Resolution {
	if existing == nil {
		return Resolution{UseIncoming: true, Reason: ReasonNewEntity}
	}

	switch strategy {
	case StrategyMostRecent:
		if incoming.ExtractedAt.After(existing.ExtractedAt) {
			return Resolution{UseIncoming: true, Reason: ReasonNewMoreRecent}
		}
		return Resolution{Reason: ReasonExistingMoreRecent}

	case StrategyMerge:
		if compatible(existing, incoming) {
			return Resolution{Merged: merge(existing, incoming), Reason: ReasonMerged}
		}
		r := resolveByConfidence(existing, incoming)
		r.Reason = ReasonIncompatible
		return r

	case StrategyManualReview:
		return Resolution{NeedsReview: true, Reason: ReasonManualReview}

	default: // highest_confidence
		return resolveByConfidence(existing, incoming)
	}
}

// resolveByConfidence keeps the higher-confidence record; ties prefer the
// existing one.
func resolveByConfidence(existing, incoming *EntityRecord) Resolution {
	if incoming.Confidence > existing.Confidence {
		return Resolution{UseIncoming: true, Reason: ReasonNewHigherConf}
	}
	return Resolution{Reason: ReasonExistingHigherConf}
}

// compatible reports whether two records describe the same thing closely
// enough to merge: equal enum fields and overlapping descriptions.
func compatible(existing, incoming *EntityRecord) bool {
	for field, value := range incoming.Enums {
		if ev, ok := existing.Enums[field]; ok && ev != "" && value != "" && ev != value {
			return false
		}
	}
	if existing.Description == "" || incoming.Description == "" {
		return true
	}
	return tokenJaccard(existing.Description, incoming.Description) >= descriptionOverlap
}

// merge unions the two records: non-empty wins for scalars, lists are
// deduplicated unions, confidence is the arithmetic mean.
func merge(existing, incoming *EntityRecord) *EntityRecord {
	out := &EntityRecord{
		Confidence:  (existing.Confidence + incoming.Confidence) / 2,
		ExtractedAt: laterOf(existing.ExtractedAt, incoming.ExtractedAt),
		Description: nonEmpty(existing.Description, incoming.Description),
		Enums:       map[string]string{},
		Scalars:     map[string]string{},
		Lists:       map[string][]string{},
		MergeCount:  existing.MergeCount + 1,
	}
	for k, v := range existing.Enums {
		out.Enums[k] = v
	}
	for k, v := range incoming.Enums {
		if out.Enums[k] == "" {
			out.Enums[k] = v
		}
	}
	for k, v := range existing.Scalars {
		out.Scalars[k] = v
	}
	for k, v := range incoming.Scalars {
		if out.Scalars[k] == "" {
			out.Scalars[k] = v
		}
	}
	for k, v := range existing.Lists {
		out.Lists[k] = unionStrings(v, incoming.Lists[k])
	}
	for k, v := range incoming.Lists {
		if _, ok := out.Lists[k]; !ok {
			out.Lists[k] = unionStrings(nil, v)
		}
	}
	return out
}

func tokenJaccard(a, b string) float64 {
	ta, tb := normalize.Tokens(a), normalize.Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	seen := make(map[string]bool, len(ta))
	for _, t := range ta {
		seen[t] = true
	}
	union := make(map[string]bool, len(ta)+len(tb))
	for _, t := range ta {
		union[t] = true
	}
	intersection := 0
	for _, t := range tb {
		if seen[t] {
			seen[t] = false
			intersection++
		}
		union[t] = true
	}
	return float64(intersection) / float64(len(union))
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func nonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
