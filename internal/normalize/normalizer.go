// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pdiddy/scholar-graph/internal/embed"
)

// Match methods, in decreasing confidence order.
const (
	MethodExact      = "exact"
	MethodDictionary = "dictionary"
	MethodEmbedding  = "embedding"
	MethodNew        = "new"
)

// Match is the outcome of normalizing one surface name. The original
// surface form is always preserved; normalization never discards
// information (R2.4).
type Match struct {
	Canonical  string
	Original   string
	Method     string
	Confidence float64
}

// Normalizer resolves surface names to canonical entities using the
// dictionary first and embedding nearest-neighbor second. A nil embedder
// disables the second tier. Safe for concurrent use; one instance is
// shared process-wide.
type Normalizer struct {
	dict      *Dictionary
	embedder  embed.Embedder
	threshold float64

	// canonVecs lazily caches one vector per canonical entity, built from
	// "name + top-3 aliases" (R2.1).
	mu        sync.Mutex
	canonVecs map[EntityClass]map[string][]float32
}

// New builds a Normalizer. embedder may be nil; threshold is the minimum
// cosine similarity for an embedding match (default 0.85 when zero).
func New(dict *Dictionary, embedder embed.Embedder, threshold float64) *Normalizer {
	if threshold <= 0 {
		threshold = 0.85
	}
	return &Normalizer{
		dict:      dict,
		embedder:  embedder,
		threshold: threshold,
		canonVecs: make(map[EntityClass]map[string][]float32),
	}
}

// Normalize maps a surface name to its canonical entity.
//
// Matching order: exact alias lookup, prefix/suffix against multi-word
// aliases, substring for aliases longer than 5 characters, embedding
// nearest-neighbor, and finally acceptance of the input as a new
// canonical entity with confidence 0.5 (R1, R2.3).
func (n *Normalizer) Normalize(ctx context.Context, class EntityClass, surface string) (Match, error) {
	cleaned := CleanSurface(surface)
	lower := strings.ToLower(cleaned)

	if lower == "" {
		return Match{Canonical: cleaned, Original: surface, Method: MethodNew, Confidence: 0.5}, nil
	}

	if canonical, ok := n.dict.Lookup(class, lower); ok {
		return Match{Canonical: canonical, Original: surface, Method: MethodExact, Confidence: 1.0}, nil
	}

	if canonical, prefixTier, ok := n.dict.fuzzyLookup(class, lower); ok {
		conf := 0.9
		if prefixTier {
			conf = 0.95
		}
		return Match{Canonical: canonical, Original: surface, Method: MethodDictionary, Confidence: conf}, nil
	}

	if n.embedder != nil {
		if m, ok, err := n.embeddingMatch(ctx, class, cleaned); err != nil {
			return Match{}, err
		} else if ok {
			m.Original = surface
			return m, nil
		}
	}

	return Match{Canonical: cleaned, Original: surface, Method: MethodNew, Confidence: 0.5}, nil
}

// embeddingMatch compares the query vector against every canonical vector
// of the class and accepts the best hit at or above the threshold (R2.2).
func (n *Normalizer) embeddingMatch(ctx context.Context, class EntityClass, query string) (Match, bool, error) {
	vecs, err := n.classVectors(ctx, class)
	if err != nil {
		return Match{}, false, err
	}

	qv, err := n.embedder.Embed(ctx, query)
	if err != nil {
		return Match{}, false, fmt.Errorf("embedding query %q: %w", query, err)
	}

	best := ""
	bestSim := 0.0
	for canonical, cv := range vecs {
		if sim := embed.Cosine(qv, cv); sim > bestSim {
			best, bestSim = canonical, sim
		}
	}

	if best == "" || bestSim < n.threshold {
		return Match{}, false, nil
	}
	return Match{Canonical: best, Method: MethodEmbedding, Confidence: bestSim}, true, nil
}

// classVectors returns the canonical vectors of a class, building them on
// first use. Initialization errors are not cached; a later call retries.
func (n *Normalizer) classVectors(ctx context.Context, class EntityClass) (map[string][]float32, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if vecs, ok := n.canonVecs[class]; ok {
		return vecs, nil
	}

	vecs := make(map[string][]float32)
	for _, canonical := range n.dict.Canonicals(class) {
		text := canonical
		aliases := n.dict.Aliases(class, canonical)
		if len(aliases) > 3 {
			aliases = aliases[:3]
		}
		if len(aliases) > 0 {
			text += " " + strings.Join(aliases, " ")
		}
		v, err := n.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding canonical %q: %w", canonical, err)
		}
		vecs[canonical] = v
	}
	n.canonVecs[class] = vecs
	return vecs, nil
}
