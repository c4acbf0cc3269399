package extract

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/scholar-graph/pkg/types"
)

func TestMain(m *testing.M) {
	// Retry backoff is wall-clock in production; tests must not sleep.
	parseBackoffBase = time.Millisecond
	os.Exit(m.Run())
}

// mockBackend serves canned responses keyed by prompt type and can fail a
// configured number of times per prompt type first.
type mockBackend struct {
	mu        sync.Mutex
	name      string
	responses map[string]string
	failures  map[string]int
	failErr   error
	calls     []string
}

func (b *mockBackend) Name() string { return b.name }

func (b *mockBackend) Complete(_ context.Context, req PromptRequest) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, req.PromptType)
	if n := b.failures[req.PromptType]; n > 0 {
		b.failures[req.PromptType] = n - 1
		if b.failErr != nil {
			return "", b.failErr
		}
		return "this is not json", nil
	}
	resp, ok := b.responses[req.PromptType]
	if !ok {
		return "", fmt.Errorf("no canned response for %s", req.PromptType)
	}
	return resp, nil
}

const metadataResponse = `{
  "paper": {"title": "Firm Resources and Sustained Competitive Advantage", "publication_year": 1991, "journal": "Journal of Management", "paper_type": "theoretical"},
  "authors": [{"full_name": "Jay B. Barney", "given_name": "Jay", "family_name": "Barney", "position": 1}],
  "citations": [{"cited_title": "A Resource-Based View of the Firm", "cited_year": 1984}]
}`

const theoriesResponse = `{
  "theories": [{"name": "Resource-Based View", "theory_type": "framework", "role": "primary", "confidence": 0.95}],
  "phenomena": [{"name": "Competitive Advantage", "phenomenon_type": "outcome", "confidence": 0.9}],
  "theory_phenomenon_links": [{"theory_name": "Resource-Based View", "phenomenon_name": "Competitive Advantage", "explanation": "VRIN resources"}]
}`

const methodsResponse = `{
  "methods": [{"name": "Panel regression", "method_type": "quantitative", "confidence": 0.9}],
  "variables": [{"name": "Return on Assets", "variable_type": "dependent"}],
  "findings": [{"text": "Resources predict performance", "finding_type": "hypothesis_supported"}],
  "contributions": [{"text": "Extends the resource-based view", "contribution_type": "theoretical"}],
  "research_questions": [{"question": "Why do firms differ in performance?", "question_type": "explanatory"}],
  "software": [{"name": "Stata"}],
  "datasets": [{"name": "Compustat"}]
}`

// paperText grounds every extracted entity so source validation marks them
// exact matches.
const paperText = `Firm Resources and Sustained Competitive Advantage.
This paper develops the resource-based view of the firm. Using panel
regression on Compustat data in Stata, we relate firm resources to
return on assets. Why do firms differ in performance? Resources predict
performance, extends the resource-based view, and sustained competitive
advantage follows. A Resource-Based View of the Firm (Wernerfelt 1984).`

func combinedConfig() types.ExtractionConfig {
	cfg := types.Config{}
	cfg.ApplyDefaults()
	return cfg.Extraction
}

func newTestExtractor(t *testing.T, backend LLMBackend, cfg types.ExtractionConfig) *Extractor {
	t.Helper()
	cache, err := NewResponseCache("", cfg.CacheTTL)
	require.NoError(t, err)
	return New(cfg, backend, nil, cache, zerolog.Nop())
}

func TestExtractCombinedMode(t *testing.T) {
	backend := &mockBackend{
		name: "mock",
		responses: map[string]string{
			PromptMetadataCombined: metadataResponse,
			PromptTheoriesCombined: theoriesResponse,
			PromptMethodsCombined:  methodsResponse,
		},
	}
	e := newTestExtractor(t, backend, combinedConfig())

	result, err := e.Extract(context.Background(), "1991_jom_0001", 1991, paperText)
	require.NoError(t, err)

	require.Equal(t, types.ModeCombined, result.Mode)
	require.Len(t, backend.calls, 3)

	require.Equal(t, "Firm Resources and Sustained Competitive Advantage", result.Paper.Title)
	require.Equal(t, 1991, result.Paper.PublicationYear)
	require.Len(t, result.Authors, 1)
	require.Len(t, result.Theories, 1)
	require.Len(t, result.Phenomena, 1)
	require.Len(t, result.TheoryPhenomenonLinks, 1)
	require.Len(t, result.Methods, 1)
	require.Len(t, result.Variables, 1)
	require.Len(t, result.Findings, 1)
	require.Len(t, result.Contributions, 1)
	require.Len(t, result.ResearchQuestions, 1)
	require.Len(t, result.Software, 1)
	require.Len(t, result.Datasets, 1)
	require.Len(t, result.Citations, 1)

	// Every grounded entity appears verbatim in the text.
	require.Equal(t, types.ValidationExact, result.Theories[0].ValidationStatus)
	require.Equal(t, 1.0, result.Theories[0].Confidence)
	require.Equal(t, types.ValidationExact, result.Variables[0].ValidationStatus)
	require.Equal(t, types.ValidationExact, result.Citations[0].ValidationStatus)
}

func TestExtractSingleModePartialFailure(t *testing.T) {
	// Only the theories call has a response; the other nine exhaust their
	// retries and contribute empty lists.
	backend := &mockBackend{
		name:      "mock",
		responses: map[string]string{PromptTheories: `{"theories": [{"name": "Agency Theory"}]}`},
	}
	cfg := combinedConfig()
	cfg.SingleEntity = true
	e := newTestExtractor(t, backend, cfg)

	result, err := e.Extract(context.Background(), "1995_smj_0002", 1995, "agency theory text")
	require.NoError(t, err)

	require.Equal(t, types.ModeSingle, result.Mode)
	require.Len(t, result.Theories, 1)
	require.NotNil(t, result.Methods)
	require.Empty(t, result.Methods)
	require.NotNil(t, result.Citations)
	require.Empty(t, result.Citations)

	// The paper record is still total: fallback title, year from filename.
	require.Equal(t, "Paper 1995_smj_0002", result.Paper.Title)
	require.Equal(t, 1995, result.Paper.PublicationYear)
}

func TestCallRetriesParseFailures(t *testing.T) {
	backend := &mockBackend{
		name: "mock",
		responses: map[string]string{
			PromptMetadataCombined: metadataResponse,
			PromptTheoriesCombined: theoriesResponse,
			PromptMethodsCombined:  methodsResponse,
		},
		failures: map[string]int{PromptTheoriesCombined: 2},
	}
	e := newTestExtractor(t, backend, combinedConfig())

	result, err := e.Extract(context.Background(), "1991_jom_0001", 1991, paperText)
	require.NoError(t, err)
	require.Len(t, result.Theories, 1, "third attempt should have recovered the theories call")

	attempts := 0
	for _, c := range backend.calls {
		if c == PromptTheoriesCombined {
			attempts++
		}
	}
	require.Equal(t, 3, attempts)
}

func TestQuotaExhaustionSwitchesToFallback(t *testing.T) {
	primary := &mockBackend{
		name:     "primary",
		failures: map[string]int{PromptMetadataCombined: 1, PromptTheoriesCombined: 1, PromptMethodsCombined: 1},
		failErr:  fmt.Errorf("calling LLM API: %w", ErrQuotaExhausted),
	}
	fallback := &mockBackend{
		name: "fallback",
		responses: map[string]string{
			PromptMetadataCombined: metadataResponse,
			PromptTheoriesCombined: theoriesResponse,
			PromptMethodsCombined:  methodsResponse,
		},
	}
	cfg := combinedConfig()
	cfg.UseFallback = true
	cache, err := NewResponseCache("", cfg.CacheTTL)
	require.NoError(t, err)
	e := New(cfg, primary, fallback, cache, zerolog.Nop())

	result, err := e.Extract(context.Background(), "1991_jom_0001", 1991, paperText)
	require.NoError(t, err)
	require.Len(t, result.Theories, 1)

	// The switch is one-time: only the first call touched the primary.
	require.Equal(t, []string{PromptMetadataCombined}, primary.calls)
	require.Len(t, fallback.calls, 3)
}

func TestQuotaExhaustedFallbackStaysBounded(t *testing.T) {
	// Both backends report quota exhaustion. The fallback's quota errors
	// must consume the retry budget like any other failure; the extractor
	// returns an empty result instead of retrying without bound.
	quotaErr := fmt.Errorf("calling LLM API: %w", ErrQuotaExhausted)
	exhausted := func(name string) *mockBackend {
		return &mockBackend{
			name:    name,
			failErr: quotaErr,
			failures: map[string]int{
				PromptMetadataCombined: 100,
				PromptTheoriesCombined: 100,
				PromptMethodsCombined:  100,
			},
		}
	}
	primary := exhausted("primary")
	fallback := exhausted("fallback")
	cfg := combinedConfig()
	cfg.UseFallback = true
	cache, err := NewResponseCache("", cfg.CacheTTL)
	require.NoError(t, err)
	e := New(cfg, primary, fallback, cache, zerolog.Nop())

	result, err := e.Extract(context.Background(), "1991_jom_0001", 1991, paperText)
	require.NoError(t, err)
	require.Empty(t, result.Theories)
	require.Empty(t, result.Methods)

	// One primary call triggers the switch; after that every call, all
	// three prompts included, runs its normal retry budget on the fallback.
	require.Equal(t, []string{PromptMetadataCombined}, primary.calls)
	require.Len(t, fallback.calls, 3*cfg.LLM.MaxRetries)
}

func TestExtractHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := &mockBackend{name: "mock", failures: map[string]int{PromptMetadataCombined: 3}}
	e := newTestExtractor(t, backend, combinedConfig())

	_, err := e.Extract(ctx, "1991_jom_0001", 1991, paperText)
	require.ErrorIs(t, err, context.Canceled)
}

// --- response cache ---

func TestResponseCacheAvoidsSecondCall(t *testing.T) {
	backend := &mockBackend{
		name: "mock",
		responses: map[string]string{
			PromptMetadataCombined: metadataResponse,
			PromptTheoriesCombined: theoriesResponse,
			PromptMethodsCombined:  methodsResponse,
		},
	}
	cfg := combinedConfig()
	cfg.CacheDir = t.TempDir()
	cache, err := NewResponseCache(cfg.CacheDir, cfg.CacheTTL)
	require.NoError(t, err)
	e := New(cfg, backend, nil, cache, zerolog.Nop())

	_, err = e.Extract(context.Background(), "1991_jom_0001", 1991, paperText)
	require.NoError(t, err)
	require.Len(t, backend.calls, 3)

	_, err = e.Extract(context.Background(), "1991_jom_0001", 1991, paperText)
	require.NoError(t, err)
	require.Len(t, backend.calls, 3, "second extraction must be served from cache")

	// A fresh process sees the disk tier.
	cache2, err := NewResponseCache(cfg.CacheDir, cfg.CacheTTL)
	require.NoError(t, err)
	e2 := New(cfg, backend, nil, cache2, zerolog.Nop())
	_, err = e2.Extract(context.Background(), "1991_jom_0001", 1991, paperText)
	require.NoError(t, err)
	require.Len(t, backend.calls, 3)
}

func TestResponseCacheExpiry(t *testing.T) {
	cache, err := NewResponseCache(t.TempDir(), time.Nanosecond)
	require.NoError(t, err)
	cache.Put("theories", "fp", theoriesResponse)
	time.Sleep(time.Millisecond)
	_, ok := cache.Get("theories", "fp")
	require.False(t, ok, "expired entry must miss")
}

func TestFingerprintUsesPrefixOnly(t *testing.T) {
	base := make([]byte, 3000)
	for i := range base {
		base[i] = 'a'
	}
	other := append([]byte(nil), base...)
	other[2500] = 'z'

	require.Equal(t, Fingerprint(string(base)), Fingerprint(string(other)))

	different := append([]byte(nil), base...)
	different[10] = 'z'
	require.NotEqual(t, Fingerprint(string(base)), Fingerprint(string(different)))
}

// --- parsing ---

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"whitespace around", "  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, stripFences(tt.in))
		})
	}
}

func TestDecodeObjectWrapsBareArray(t *testing.T) {
	obj, err := decodeObject(`[{"name": "RBV"}]`)
	require.NoError(t, err)
	items := objectList(obj, "items")
	require.Len(t, items, 1)
	require.Equal(t, "RBV", items[0]["name"])
}

// --- source grounding ---

func TestGroundTiers(t *testing.T) {
	c := newSourceChecker(`This study draws on the resource based view of competitive
advantage. We estimate ordinary least squares models of firm survival and
growth using data on entry timing, order of entry, and firm age.`)

	tests := []struct {
		name       string
		entity     string
		confidence float64
		wantStatus types.ValidationStatus
		wantConf   float64
	}{
		{"exact substring", "resource based view", 0.9, types.ValidationExact, 1.0},
		{"abbreviation", "RBV", 0.9, types.ValidationAbbreviation, 0.7},
		{"partial tokens", "ordinary least squares estimation", 0.9, types.ValidationPartial, 0.8},
		{"weak tokens", "entry timing lottery draft", 0.9, types.ValidationWeak, 0.6},
		{"not found keeps ceiling", "upper echelons perspective", 0.9, types.ValidationNotFound, 0.5},
		{"not found below ceiling", "upper echelons perspective", 0.2, types.ValidationNotFound, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, conf := c.ground(tt.entity, tt.confidence)
			require.Equal(t, tt.wantStatus, status)
			require.InDelta(t, tt.wantConf, conf, 1e-9)
		})
	}
}

func TestGroundResultDropsLowConfidence(t *testing.T) {
	result := types.NewExtractionResult("p", types.ModeCombined)
	result.Theories = []types.Theory{
		{Name: "resource based view", Confidence: 0.9},
		{Name: "completely unrelated fabrication", Confidence: 0.25},
	}
	groundResult(result, "the resource based view of the firm")

	require.Len(t, result.Theories, 1)
	require.Equal(t, types.ValidationExact, result.Theories[0].ValidationStatus)
}

func TestBackendSelectorSwitchesOnce(t *testing.T) {
	primary := &mockBackend{name: "primary"}
	fallback := &mockBackend{name: "fallback"}
	s := newBackendSelector(primary, fallback)

	require.Equal(t, "primary", s.current().Name())
	require.True(t, s.noteQuotaExhausted())
	require.Equal(t, "fallback", s.current().Name())
	require.False(t, s.noteQuotaExhausted(), "repeat exhaustion gets no further free retries")
	require.Equal(t, "fallback", s.current().Name())

	noFallback := newBackendSelector(primary, nil)
	require.False(t, noFallback.noteQuotaExhausted())
	require.Equal(t, "primary", noFallback.current().Name())
}
