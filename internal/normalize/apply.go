// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"context"

	"github.com/pdiddy/scholar-graph/pkg/types"
)

// Apply normalizes all canonical-entity names in an extraction result in
// place: theories, phenomena, methods, and software. Each entity keeps its
// pre-normalization surface form in OriginalName, and explicit
// theory-phenomenon links are renamed with their entities so the ingester
// matches pairs by canonical name.
func Apply(ctx context.Context, n *Normalizer, result *types.ExtractionResult) error {
	theoryRename := make(map[string]string)
	for i := range result.Theories {
		m, err := n.Normalize(ctx, ClassTheory, result.Theories[i].Name)
		if err != nil {
			return err
		}
		theoryRename[result.Theories[i].Name] = m.Canonical
		result.Theories[i].OriginalName = m.Original
		result.Theories[i].Name = m.Canonical
	}

	phenRename := make(map[string]string)
	for i := range result.Phenomena {
		m, err := n.Normalize(ctx, ClassPhenomenon, result.Phenomena[i].Name)
		if err != nil {
			return err
		}
		phenRename[result.Phenomena[i].Name] = m.Canonical
		result.Phenomena[i].OriginalName = m.Original
		result.Phenomena[i].Name = m.Canonical
	}

	for i := range result.Methods {
		m, err := n.Normalize(ctx, ClassMethod, result.Methods[i].Name)
		if err != nil {
			return err
		}
		result.Methods[i].OriginalName = m.Original
		result.Methods[i].Name = m.Canonical
	}

	for i := range result.Software {
		m, err := n.Normalize(ctx, ClassSoftware, result.Software[i].Name)
		if err != nil {
			return err
		}
		result.Software[i].OriginalName = m.Original
		result.Software[i].Name = m.Canonical
	}

	for i := range result.TheoryPhenomenonLinks {
		link := &result.TheoryPhenomenonLinks[i]
		if canon, ok := theoryRename[link.TheoryName]; ok {
			link.TheoryName = canon
		} else {
			m, err := n.Normalize(ctx, ClassTheory, link.TheoryName)
			if err != nil {
				return err
			}
			link.TheoryName = m.Canonical
		}
		if canon, ok := phenRename[link.PhenomenonName]; ok {
			link.PhenomenonName = canon
		} else {
			m, err := n.Normalize(ctx, ClassPhenomenon, link.PhenomenonName)
			if err != nil {
				return err
			}
			link.PhenomenonName = m.Canonical
		}
	}

	return nil
}
