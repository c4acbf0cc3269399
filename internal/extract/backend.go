// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns one paper's text into a typed extraction result
// through staged LLM calls. Implements: prd002-extraction (R1-R5);
//
//	docs/ARCHITECTURE § Extraction.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/scholar-graph/internal/httputil"
	"github.com/pdiddy/scholar-graph/pkg/types"
)

// ErrQuotaExhausted marks a backend that reported quota or billing
// exhaustion. The extractor switches to the fallback backend once per
// process on seeing it (R5.4).
var ErrQuotaExhausted = errors.New("llm quota exhausted")

// PromptRequest is one LLM call.
type PromptRequest struct {
	// PromptType names the extraction kind (e.g. "theories_combined") and
	// participates in the response cache key.
	PromptType string

	// Prompt is the fully rendered prompt text.
	Prompt string

	// Timeout bounds this attempt. Zero uses the backend default.
	Timeout time.Duration
}

// LLMBackend abstracts the LLM API so tests can supply a mock. Each
// implementation takes one prompt and returns the raw response text.
// Per Strategy pattern (prd002-extraction R5.2).
type LLMBackend interface {
	Complete(ctx context.Context, req PromptRequest) (string, error)
	Name() string
}

// OpenAIBackend calls an OpenAI-compatible chat-completions endpoint in
// JSON mode.
type OpenAIBackend struct {
	cfg    types.LLMConfig
	client *http.Client
}

// NewOpenAIBackend builds a backend from config.
func NewOpenAIBackend(cfg types.LLMConfig) *OpenAIBackend {
	return &OpenAIBackend{
		cfg: cfg,
		// Per-request timeouts come from the context; the client timeout
		// is a backstop.
		client: &http.Client{Timeout: cfg.Timeout + 10*time.Second},
	}
}

// Name returns the model identifier for logging.
func (b *OpenAIBackend) Name() string { return b.cfg.Model }

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// systemVoice frames every extraction call.
const systemVoice = "You are a domain-expert extraction system for strategic management research. You read academic papers and return precise, schema-conforming JSON. You never invent entities that are not supported by the text."

// Complete sends one JSON-mode chat completion (R5.1).
func (b *OpenAIBackend) Complete(ctx context.Context, req PromptRequest) (string, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = b.cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: b.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemVoice},
			{Role: "user", Content: req.Prompt},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
		Temperature:    b.cfg.Temperature,
		MaxTokens:      b.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, b.client, httpReq, b.cfg.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("calling LLM API: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading LLM response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if quotaStatus(resp.StatusCode, string(raw)) {
			return "", fmt.Errorf("%w: %s", ErrQuotaExhausted, strings.TrimSpace(string(raw)))
		}
		return "", fmt.Errorf("LLM API returned %d: %s", resp.StatusCode, string(raw))
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", fmt.Errorf("decoding LLM response: %w", err)
	}
	if cr.Error != nil {
		if quotaStatus(resp.StatusCode, cr.Error.Type+" "+cr.Error.Message) {
			return "", fmt.Errorf("%w: %s", ErrQuotaExhausted, cr.Error.Message)
		}
		return "", fmt.Errorf("LLM API error: %s", cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("LLM API returned no choices")
	}
	return cr.Choices[0].Message.Content, nil
}

// quotaStatus recognizes quota/billing exhaustion across providers.
func quotaStatus(status int, body string) bool {
	lower := strings.ToLower(body)
	if strings.Contains(lower, "insufficient_quota") || strings.Contains(lower, "quota") && strings.Contains(lower, "exceeded") {
		return true
	}
	return status == http.StatusTooManyRequests && strings.Contains(lower, "billing")
}

// backendSelector holds process-wide primary/fallback state. The switch
// to fallback happens at most once (R5.4).
type backendSelector struct {
	mu       sync.Mutex
	primary  LLMBackend
	fallback LLMBackend
	switched bool
}

func newBackendSelector(primary, fallback LLMBackend) *backendSelector {
	return &backendSelector{primary: primary, fallback: fallback}
}

// current returns the active backend.
func (s *backendSelector) current() LLMBackend {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.switched && s.fallback != nil {
		return s.fallback
	}
	return s.primary
}

// noteQuotaExhausted flips to the fallback backend. Returns true only on
// the actual switch: the caller gets one free retry against the fresh
// backend. Later quota errors, including the fallback's own, consume the
// normal retry budget so an exhausted fallback cannot spin forever.
func (s *backendSelector) noteQuotaExhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.switched || s.fallback == nil {
		return false
	}
	s.switched = true
	return true
}
