package normalize

import (
	"context"
	"testing"

	"github.com/pdiddy/scholar-graph/pkg/types"
)

func testNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	dict, err := LoadDictionary("")
	if err != nil {
		t.Fatal(err)
	}
	return New(dict, nil, 0)
}

// --- CleanSurface ---

func TestCleanSurface(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"title case", "resource based view", "Resource Based View"},
		{"preserves short acronym", "RBV", "RBV"},
		{"preserves acronym in phrase", "OLS regression", "OLS Regression"},
		{"lowers long all-caps", "STRATEGY", "Strategy"},
		{"small words stay lower", "theory of the firm", "Theory of the Firm"},
		{"collapses whitespace", "  agency \t theory ", "Agency Theory"},
		{"unicode dashes", "resource–based view", "Resource-Based View"},
		{"hyphen title case", "resource-based view", "Resource-Based View"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanSurface(tt.in); got != tt.want {
				t.Errorf("CleanSurface(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// --- dictionary matching ---

func TestNormalizeExactAlias(t *testing.T) {
	n := testNormalizer(t)
	ctx := context.Background()

	tests := []struct {
		surface string
		class   EntityClass
		want    string
	}{
		{"RBV", ClassTheory, "Resource-Based View"},
		{"resource based theory", ClassTheory, "Resource-Based View"},
		{"Resource-Based View", ClassTheory, "Resource-Based View"},
		{"OLS", ClassMethod, "Ordinary Least Squares"},
		{"stata", ClassSoftware, "Stata"},
		{"organizational performance", ClassPhenomenon, "Firm Performance"},
	}
	for _, tt := range tests {
		m, err := n.Normalize(ctx, tt.class, tt.surface)
		if err != nil {
			t.Fatal(err)
		}
		if m.Canonical != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.surface, m.Canonical, tt.want)
		}
		if m.Method != MethodExact {
			t.Errorf("Normalize(%q) method = %q, want exact", tt.surface, m.Method)
		}
		if m.Confidence != 1.0 {
			t.Errorf("Normalize(%q) confidence = %f, want 1.0", tt.surface, m.Confidence)
		}
		if m.Original != tt.surface {
			t.Errorf("Normalize(%q) lost original form: %q", tt.surface, m.Original)
		}
	}
}

func TestNormalizeFuzzyTiers(t *testing.T) {
	n := testNormalizer(t)
	ctx := context.Background()

	// Prefix match against a multi-word alias.
	m, err := n.Normalize(ctx, ClassTheory, "agency theory of the firm")
	if err != nil {
		t.Fatal(err)
	}
	if m.Canonical != "Agency Theory" || m.Method != MethodDictionary {
		t.Errorf("prefix tier: got (%q, %q)", m.Canonical, m.Method)
	}
	if m.Confidence < 0.9 || m.Confidence > 1.0 {
		t.Errorf("dictionary confidence %f out of [0.9, 1.0]", m.Confidence)
	}

	// Substring match for a long alias.
	m, err = n.Normalize(ctx, ClassMethod, "pooled logistic regression models")
	if err != nil {
		t.Fatal(err)
	}
	if m.Canonical != "Logistic Regression" || m.Method != MethodDictionary {
		t.Errorf("substring tier: got (%q, %q)", m.Canonical, m.Method)
	}
}

func TestNormalizeNewEntity(t *testing.T) {
	n := testNormalizer(t)

	m, err := n.Normalize(context.Background(), ClassTheory, "paradox theory")
	if err != nil {
		t.Fatal(err)
	}
	if m.Method != MethodNew {
		t.Errorf("method = %q, want new", m.Method)
	}
	if m.Confidence != 0.5 {
		t.Errorf("confidence = %f, want 0.5", m.Confidence)
	}
	if m.Canonical != "Paradox Theory" {
		t.Errorf("canonical = %q, want title-cased input", m.Canonical)
	}
}

func TestNormalizeIdempotence(t *testing.T) {
	n := testNormalizer(t)
	ctx := context.Background()

	for _, surface := range []string{"RBV", "some novel construct", "Dynamic capability"} {
		first, err := n.Normalize(ctx, ClassTheory, surface)
		if err != nil {
			t.Fatal(err)
		}
		second, err := n.Normalize(ctx, ClassTheory, first.Canonical)
		if err != nil {
			t.Fatal(err)
		}
		if second.Canonical != first.Canonical {
			t.Errorf("normalize(normalize(%q)): %q != %q", surface, second.Canonical, first.Canonical)
		}
	}
}

// --- embedding tier ---

// axisEmbedder maps known strings onto fixed axes so cosine similarity is
// fully controlled by the test.
type axisEmbedder struct {
	axes map[string]int
}

func (a *axisEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 8)
	if axis, ok := a.axes[text]; ok {
		vec[axis] = 1
	} else {
		vec[7] = 1
	}
	return vec, nil
}

func (a *axisEmbedder) Dimension() int { return 8 }
func (a *axisEmbedder) Model() string  { return "axis" }

func TestNormalizeEmbeddingMatch(t *testing.T) {
	dict, err := LoadDictionary("")
	if err != nil {
		t.Fatal(err)
	}

	// The query embeds onto the same axis as the canonical text for
	// Upper Echelons Theory, so the nearest neighbor is exact.
	axes := map[string]int{"Top Management Team Demography": 3}
	for _, canonical := range dict.Canonicals(ClassTheory) {
		text := canonical
		aliases := dict.Aliases(ClassTheory, canonical)
		if len(aliases) > 3 {
			aliases = aliases[:3]
		}
		if len(aliases) > 0 {
			text += " " + join(aliases)
		}
		if canonical == "Upper Echelons Theory" {
			axes[text] = 3
		}
	}

	n := New(dict, &axisEmbedder{axes: axes}, 0.85)
	m, err := n.Normalize(context.Background(), ClassTheory, "top management team demography")
	if err != nil {
		t.Fatal(err)
	}
	if m.Canonical != "Upper Echelons Theory" {
		t.Errorf("canonical = %q, want Upper Echelons Theory", m.Canonical)
	}
	if m.Method != MethodEmbedding {
		t.Errorf("method = %q, want embedding", m.Method)
	}
	if m.Confidence < 0.85 {
		t.Errorf("confidence = %f, want >= threshold", m.Confidence)
	}
}

func join(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}

// --- Apply ---

func TestApplyNormalizesResultInPlace(t *testing.T) {
	n := testNormalizer(t)
	result := types.NewExtractionResult("1995_smj_0001", types.ModeCombined)
	result.Theories = []types.Theory{{Name: "RBV", Role: types.RolePrimary}}
	result.Phenomena = []types.Phenomenon{{Name: "organizational performance"}}
	result.Methods = []types.Method{{Name: "ols", MethodType: types.MethodQuantitative}}
	result.Software = []types.Software{{Name: "stata"}}
	result.TheoryPhenomenonLinks = []types.TheoryPhenomenonLink{
		{TheoryName: "RBV", PhenomenonName: "organizational performance"},
	}

	if err := Apply(context.Background(), n, result); err != nil {
		t.Fatal(err)
	}

	if result.Theories[0].Name != "Resource-Based View" {
		t.Errorf("theory = %q", result.Theories[0].Name)
	}
	if result.Theories[0].OriginalName != "RBV" {
		t.Errorf("original = %q, want RBV", result.Theories[0].OriginalName)
	}
	if result.Phenomena[0].Name != "Firm Performance" {
		t.Errorf("phenomenon = %q", result.Phenomena[0].Name)
	}
	if result.Methods[0].Name != "Ordinary Least Squares" {
		t.Errorf("method = %q", result.Methods[0].Name)
	}
	if result.Software[0].Name != "Stata" {
		t.Errorf("software = %q", result.Software[0].Name)
	}
	link := result.TheoryPhenomenonLinks[0]
	if link.TheoryName != "Resource-Based View" || link.PhenomenonName != "Firm Performance" {
		t.Errorf("link not renamed: %+v", link)
	}
}
