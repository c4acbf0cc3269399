// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/scholar-graph/internal/validate"
	"github.com/pdiddy/scholar-graph/pkg/types"
)

// parseBackoffBase is the base delay between retries of a call whose
// response failed to parse. Tests shrink it.
var parseBackoffBase = 2 * time.Second

// Extractor turns one paper's text into a typed extraction result.
type Extractor struct {
	cfg      types.ExtractionConfig
	selector *backendSelector
	cache    *ResponseCache
	log      zerolog.Logger
}

// New builds an extractor over the configured backends. fallback may be
// nil when no secondary backend is configured.
func New(cfg types.ExtractionConfig, primary, fallback LLMBackend, cache *ResponseCache, log zerolog.Logger) *Extractor {
	if !cfg.UseFallback {
		fallback = nil
	}
	return &Extractor{
		cfg:      cfg,
		selector: newBackendSelector(primary, fallback),
		cache:    cache,
		log:      log.With().Str("component", "extractor").Logger(),
	}
}

// Mode reports the call shape in effect.
func (e *Extractor) Mode() types.ExtractionMode {
	if e.cfg.SingleEntity {
		return types.ModeSingle
	}
	return types.ModeCombined
}

// Extract runs all LLM calls for one paper and assembles the total
// result. A failed call contributes empty lists; only context
// cancellation aborts the paper (R3.3).
func (e *Extractor) Extract(ctx context.Context, paperID string, yearFromFilename int, text string) (*types.ExtractionResult, error) {
	result := types.NewExtractionResult(paperID, e.Mode())
	fingerprint := Fingerprint(text)
	extractedAt := time.Now().UTC()

	promptTypes := combinedPromptTypes
	if e.cfg.SingleEntity {
		promptTypes = singlePromptTypes
	}

	var metadata map[string]any
	for _, promptType := range promptTypes {
		obj, err := e.call(ctx, promptType, text, fingerprint)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			e.log.Warn().Str("paper_id", paperID).Str("prompt_type", promptType).
				Msg("extraction call returned empty after retries")
			continue
		}
		if promptType == PromptMetadataCombined || promptType == PromptMetadata {
			metadata = childObject(obj, "paper", "metadata")
		}
		e.merge(result, promptType, obj, extractedAt)
	}

	result.Paper = validate.Paper(paperID, yearFromFilename, orEmpty(metadata))
	groundResult(result, text)
	return result, nil
}

// call resolves one prompt through the cache or the active backend. A
// nil, nil return means the call failed non-fatally and contributes
// nothing.
func (e *Extractor) call(ctx context.Context, promptType, text, fingerprint string) (map[string]any, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(promptType, fingerprint); ok {
			if obj, err := decodeObject(cached); err == nil {
				return obj, nil
			}
			// A cached response that no longer parses is stale.
		}
	}

	prompt, err := RenderPrompt(promptType, text)
	if err != nil {
		return nil, err
	}
	req := PromptRequest{PromptType: promptType, Prompt: prompt, Timeout: e.cfg.LLM.Timeout}
	if smallPrompt(promptType) {
		req.Timeout = e.cfg.LLM.SmallTimeout
	}

	maxAttempts := e.cfg.LLM.MaxRetries
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := parseBackoffBase * (1 << (attempt - 1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		backend := e.selector.current()
		raw, err := backend.Complete(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, ErrQuotaExhausted) && e.selector.noteQuotaExhausted() {
				e.log.Warn().Str("backend", backend.Name()).
					Msg("primary backend quota exhausted, switching to fallback")
				attempt-- // the fallback gets a full budget for this call
				continue
			}
			e.log.Warn().Err(err).Str("prompt_type", promptType).Int("attempt", attempt+1).
				Msg("extraction call failed")
			continue
		}

		obj, err := decodeObject(raw)
		if err != nil {
			e.log.Warn().Err(err).Str("prompt_type", promptType).Int("attempt", attempt+1).
				Msg("extraction response did not parse")
			continue
		}
		if e.cache != nil {
			e.cache.Put(promptType, fingerprint, raw)
		}
		return obj, nil
	}
	return nil, nil
}

// merge maps one call's loose output into the typed result.
func (e *Extractor) merge(result *types.ExtractionResult, promptType string, obj map[string]any, extractedAt time.Time) {
	switch promptType {
	case PromptMetadataCombined:
		e.mergeAuthors(result, obj)
		e.mergeCitations(result, obj)
	case PromptMetadata:
		// Paper metadata is coerced once at the end of Extract.
	case PromptAuthors:
		e.mergeAuthors(result, obj)
	case PromptTheoriesCombined:
		e.mergeTheories(result, obj, extractedAt)
		e.mergePhenomena(result, obj, extractedAt)
	case PromptTheories:
		e.mergeTheories(result, obj, extractedAt)
	case PromptPhenomena:
		e.mergePhenomena(result, obj, extractedAt)
	case PromptMethodsCombined:
		e.mergeMethods(result, obj, extractedAt)
		e.mergeStudyDesign(result, obj)
	case PromptMethods:
		e.mergeMethods(result, obj, extractedAt)
	case PromptVariables:
		e.mergeVariables(result, objectList(obj, "variables", "items"))
	case PromptFindings:
		e.mergeFindings(result, objectList(obj, "findings", "items"))
	case PromptContributions:
		e.mergeContributions(result, objectList(obj, "contributions", "items"))
	case PromptQuestions:
		e.mergeQuestions(result, objectList(obj, "research_questions", "items"))
	case PromptCitations:
		e.mergeCitations(result, obj)
	}
}

func (e *Extractor) mergeAuthors(result *types.ExtractionResult, obj map[string]any) {
	for i, m := range objectList(obj, "authors", "items") {
		if a, ok := validate.Author(m, i+1); ok {
			result.Authors = append(result.Authors, a)
		}
	}
}

func (e *Extractor) mergeTheories(result *types.ExtractionResult, obj map[string]any, extractedAt time.Time) {
	for _, m := range objectList(obj, "theories", "items") {
		if t, ok := validate.Theory(m, extractedAt); ok {
			result.Theories = append(result.Theories, t)
		}
	}
}

func (e *Extractor) mergePhenomena(result *types.ExtractionResult, obj map[string]any, extractedAt time.Time) {
	for _, m := range objectList(obj, "phenomena", "items") {
		if p, ok := validate.Phenomenon(m, extractedAt); ok {
			result.Phenomena = append(result.Phenomena, p)
		}
	}
	for _, m := range objectList(obj, "theory_phenomenon_links", "links") {
		theory, _ := m["theory_name"].(string)
		phenomenon, _ := m["phenomenon_name"].(string)
		if theory == "" || phenomenon == "" {
			continue
		}
		explanation, _ := m["explanation"].(string)
		result.TheoryPhenomenonLinks = append(result.TheoryPhenomenonLinks, types.TheoryPhenomenonLink{
			TheoryName:     theory,
			PhenomenonName: phenomenon,
			Explanation:    explanation,
		})
	}
}

func (e *Extractor) mergeMethods(result *types.ExtractionResult, obj map[string]any, extractedAt time.Time) {
	for _, m := range objectList(obj, "methods", "items") {
		if method, ok := validate.Method(m, extractedAt); ok {
			result.Methods = append(result.Methods, method)
		}
	}
	for _, m := range objectList(obj, "software") {
		if s, ok := validate.Software(m); ok {
			result.Software = append(result.Software, s)
		}
	}
	for _, m := range objectList(obj, "datasets") {
		if d, ok := validate.Dataset(m); ok {
			result.Datasets = append(result.Datasets, d)
		}
	}
}

// mergeStudyDesign handles the composite methods call, whose response
// carries the remaining study-design lists under their canonical keys.
func (e *Extractor) mergeStudyDesign(result *types.ExtractionResult, obj map[string]any) {
	e.mergeVariables(result, objectList(obj, "variables"))
	e.mergeFindings(result, objectList(obj, "findings"))
	e.mergeContributions(result, objectList(obj, "contributions"))
	e.mergeQuestions(result, objectList(obj, "research_questions"))
}

func (e *Extractor) mergeVariables(result *types.ExtractionResult, records []map[string]any) {
	for _, m := range records {
		if v, ok := validate.Variable(result.PaperID, m); ok {
			result.Variables = append(result.Variables, v)
		}
	}
}

func (e *Extractor) mergeFindings(result *types.ExtractionResult, records []map[string]any) {
	for _, m := range records {
		if f, ok := validate.Finding(result.PaperID, m); ok {
			result.Findings = append(result.Findings, f)
		}
	}
}

func (e *Extractor) mergeContributions(result *types.ExtractionResult, records []map[string]any) {
	for _, m := range records {
		if c, ok := validate.Contribution(result.PaperID, m); ok {
			result.Contributions = append(result.Contributions, c)
		}
	}
}

func (e *Extractor) mergeQuestions(result *types.ExtractionResult, records []map[string]any) {
	for _, m := range records {
		if q, ok := validate.ResearchQuestion(result.PaperID, m); ok {
			result.ResearchQuestions = append(result.ResearchQuestions, q)
		}
	}
}

func (e *Extractor) mergeCitations(result *types.ExtractionResult, obj map[string]any) {
	for _, m := range objectList(obj, "citations", "items") {
		if c, ok := validate.Citation(m); ok {
			result.Citations = append(result.Citations, c)
		}
	}
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
