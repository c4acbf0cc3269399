package embed

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"
)

// fakeEmbedder returns a deterministic vector per text and counts calls.
type fakeEmbedder struct {
	dim   int
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	vec := make([]float32, f.dim)
	for i := range vec {
		vec[i] = float32((len(text)+i)%7) / 7
	}
	return vec, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dim }
func (f *fakeEmbedder) Model() string  { return "fake-model" }

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
		{"length mismatch", []float32{1}, []float32{1, 2}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine(%v, %v) = %f, want %f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestVectorRoundTrip(t *testing.T) {
	vec := []float32{0.25, -1.5, 3.14159, 0}
	got := decodeVector(encodeVector(vec))
	if len(got) != len(vec) {
		t.Fatalf("got %d floats, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("index %d: got %f, want %f", i, got[i], vec[i])
		}
	}
}

func TestCacheAvoidsReencoding(t *testing.T) {
	inner := &fakeEmbedder{dim: 8}
	cache, err := NewCache(inner, filepath.Join(t.TempDir(), "emb", "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	ctx := context.Background()
	first, err := cache.Embed(ctx, "resource-based view")
	if err != nil {
		t.Fatal(err)
	}
	second, err := cache.Embed(ctx, "resource-based view")
	if err != nil {
		t.Fatal(err)
	}

	if inner.calls != 1 {
		t.Errorf("got %d inner calls, want 1", inner.calls)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cached vector differs at %d", i)
		}
	}
}

func TestCacheKeyedByModelAndText(t *testing.T) {
	inner := &fakeEmbedder{dim: 4}
	cache, err := NewCache(inner, filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := cache.Embed(ctx, fmt.Sprintf("text %d", i)); err != nil {
			t.Fatal(err)
		}
	}
	if inner.calls != 5 {
		t.Errorf("got %d inner calls, want 5 distinct texts encoded", inner.calls)
	}
}
