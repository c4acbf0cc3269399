// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embed provides text embeddings for normalization and graph
// enrichment. Implements: prd007-embeddings (R1-R3);
//
//	docs/ARCHITECTURE § Embeddings.
//
// The embedding layer is optional everywhere: callers hold a nil Embedder
// when embeddings are disabled and fall back to lexical scoring.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/scholar-graph/internal/httputil"
	"github.com/pdiddy/scholar-graph/pkg/types"
)

// Embedder is a deterministic function from text to a fixed-dimension
// vector. Implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Model() string
}

// HTTPEmbedder calls an OpenAI-compatible /embeddings endpoint.
type HTTPEmbedder struct {
	baseURL string
	model   string
	apiKey  string
	dim     int
	client  *http.Client
}

// NewHTTPEmbedder builds an embedder from config.
func NewHTTPEmbedder(cfg types.EmbeddingConfig) *HTTPEmbedder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPEmbedder{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		dim:     cfg.Dimension,
		client:  &http.Client{Timeout: timeout},
	}
}

// Dimension returns the configured vector width.
func (e *HTTPEmbedder) Dimension() int { return e.dim }

// Model returns the embedding model identifier.
func (e *HTTPEmbedder) Model() string { return e.model }

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed encodes one text. Transport errors and retryable statuses are
// retried by httputil.DoWithRetry.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := httputil.DoWithRetry(ctx, e.client, req, 3)
	if err != nil {
		return nil, fmt.Errorf("calling embedding API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding API returned %d: %s", resp.StatusCode, string(b))
	}

	var er embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("decoding embedding response: %w", err)
	}
	if len(er.Data) == 0 {
		return nil, fmt.Errorf("embedding API returned no vectors")
	}

	vec := er.Data[0].Embedding
	if e.dim > 0 && len(vec) != e.dim {
		return nil, fmt.Errorf("embedding dimension %d does not match configured %d", len(vec), e.dim)
	}
	return vec, nil
}
