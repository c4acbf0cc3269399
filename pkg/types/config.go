// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// GraphConfig holds connection settings for the property-graph store.
// Per prd005-ingestion R5.
type GraphConfig struct {
	// URI is the bolt-style connection URI (e.g. "bolt://localhost:7687").
	URI string `json:"uri" yaml:"uri"`

	Username string `json:"username" yaml:"username"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	// Database is the target database name. Empty uses the server default.
	Database string `json:"database,omitempty" yaml:"database,omitempty"`

	// MaxPoolSize caps the driver connection pool (default 50).
	MaxPoolSize int `json:"max_pool_size" yaml:"max_pool_size"`

	// ConnectTimeout bounds socket establishment (default 30s).
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout"`

	// AcquireTimeout bounds connection acquisition from the pool (default 60s).
	AcquireTimeout time.Duration `json:"acquire_timeout" yaml:"acquire_timeout"`

	// RetryAttempts is the number of transaction retries after a
	// routing/connection/defunct error forces a driver rebuild (default 3).
	RetryAttempts int `json:"retry_attempts" yaml:"retry_attempts"`

	// RetryDelay is the pause between driver rebuilds (default 5s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay"`
}

// LLMConfig holds settings for one LLM backend.
type LLMConfig struct {
	// BaseURL is the OpenAI-compatible API root (e.g. "https://api.openai.com/v1").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Model is the model identifier.
	Model string `json:"model" yaml:"model"`

	// APIKey authenticates requests. Usually supplied via environment or
	// the .secrets/ directory rather than config files.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxTokens caps the response length (default 8192).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Temperature is the sampling temperature (default 0.1).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// Timeout bounds one large extraction call (default 120s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// SmallTimeout bounds one small extraction call (default 90s).
	SmallTimeout time.Duration `json:"small_timeout" yaml:"small_timeout"`

	// MaxRetries is the retry budget per call (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ExtractionConfig holds settings for the extraction stage.
// Per prd002-extraction R3, R5.
type ExtractionConfig struct {
	LLM      LLMConfig `json:"llm" yaml:"llm"`
	Fallback LLMConfig `json:"fallback" yaml:"fallback"`

	// UseFallback enables the one-time switch to the fallback backend on
	// quota exhaustion.
	UseFallback bool `json:"use_fallback" yaml:"use_fallback"`

	// SingleEntity selects single-entity extraction mode (ten calls, one
	// per entity class) over the default combined mode (three composite
	// calls).
	SingleEntity bool `json:"single_entity" yaml:"single_entity"`

	// CacheDir is the on-disk LLM response cache directory. Empty disables
	// the disk tier.
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`

	// CacheTTL expires cached responses (default 30 days).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`

	// MinTextChars fails a paper as INSUFFICIENT_TEXT below this (default 100).
	MinTextChars int `json:"min_text_chars" yaml:"min_text_chars"`

	// MaxTextChars caps PDF text passed to extraction (default 25000).
	MaxTextChars int `json:"max_text_chars" yaml:"max_text_chars"`
}

// EmbeddingConfig holds settings for the optional embedding model.
// The pipeline functions without one: the normalizer then uses only the
// dictionary and semantic scores fall back to keyword overlap.
type EmbeddingConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	BaseURL string `json:"base_url" yaml:"base_url"`
	Model   string `json:"model" yaml:"model"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Dimension is the vector width the model produces.
	Dimension int `json:"dimension" yaml:"dimension"`

	// CachePath is the single-file embedding cache. Empty disables caching.
	CachePath string `json:"cache_path" yaml:"cache_path"`

	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// SimilarityThreshold is the minimum cosine similarity for a
	// nearest-neighbor dictionary match (default 0.85).
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`
}

// NormalizerConfig holds settings for entity normalization.
type NormalizerConfig struct {
	// DictionaryPath optionally overrides entries of the embedded
	// canonical dictionary.
	DictionaryPath string `json:"dictionary_path,omitempty" yaml:"dictionary_path,omitempty"`
}

// PipelineConfig holds settings for the concurrent pipeline run.
// Per prd006-pipeline R1-R4.
type PipelineConfig struct {
	// CorpusRoot is the directory tree of YYYY_<id>.pdf files.
	CorpusRoot string `json:"corpus_root" yaml:"corpus_root"`

	// Workers is the worker pool size (default 10).
	Workers int `json:"workers" yaml:"workers"`

	// YearStart/YearEnd bound the inclusive publication-year filter.
	// Zero disables the respective bound.
	YearStart int `json:"year_start" yaml:"year_start"`
	YearEnd   int `json:"year_end" yaml:"year_end"`

	// Resume skips papers already in the progress store.
	Resume bool `json:"resume" yaml:"resume"`

	// MaxAttempts is the per-paper retry budget (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// ProgressPath and StatsPath locate the persisted JSON documents.
	ProgressPath string `json:"progress_path" yaml:"progress_path"`
	StatsPath    string `json:"stats_path" yaml:"stats_path"`

	// SaveBatch persists progress every N completed papers (default 5).
	SaveBatch int `json:"save_batch" yaml:"save_batch"`

	// MonitorInterval is the progress snapshot period (default 30s).
	MonitorInterval time.Duration `json:"monitor_interval" yaml:"monitor_interval"`
}

// Config groups all stage configurations.
type Config struct {
	Graph      GraphConfig      `json:"graph" yaml:"graph"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	Embedding  EmbeddingConfig  `json:"embedding" yaml:"embedding"`
	Normalizer NormalizerConfig `json:"normalizer" yaml:"normalizer"`
	Pipeline   PipelineConfig   `json:"pipeline" yaml:"pipeline"`
}

// ApplyDefaults fills zero values with documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Graph.MaxPoolSize <= 0 {
		c.Graph.MaxPoolSize = 50
	}
	if c.Graph.ConnectTimeout <= 0 {
		c.Graph.ConnectTimeout = 30 * time.Second
	}
	if c.Graph.AcquireTimeout <= 0 {
		c.Graph.AcquireTimeout = 60 * time.Second
	}
	if c.Graph.RetryAttempts <= 0 {
		c.Graph.RetryAttempts = 3
	}
	if c.Graph.RetryDelay <= 0 {
		c.Graph.RetryDelay = 5 * time.Second
	}
	for _, llm := range []*LLMConfig{&c.Extraction.LLM, &c.Extraction.Fallback} {
		if llm.MaxTokens <= 0 {
			llm.MaxTokens = 8192
		}
		if llm.Temperature == 0 {
			llm.Temperature = 0.1
		}
		if llm.Timeout <= 0 {
			llm.Timeout = 120 * time.Second
		}
		if llm.SmallTimeout <= 0 {
			llm.SmallTimeout = 90 * time.Second
		}
		if llm.MaxRetries <= 0 {
			llm.MaxRetries = 3
		}
	}
	if c.Extraction.CacheTTL <= 0 {
		c.Extraction.CacheTTL = 30 * 24 * time.Hour
	}
	if c.Extraction.MinTextChars <= 0 {
		c.Extraction.MinTextChars = 100
	}
	if c.Extraction.MaxTextChars <= 0 {
		c.Extraction.MaxTextChars = 25000
	}
	if c.Embedding.Timeout <= 0 {
		c.Embedding.Timeout = 30 * time.Second
	}
	if c.Embedding.SimilarityThreshold <= 0 {
		c.Embedding.SimilarityThreshold = 0.85
	}
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 10
	}
	if c.Pipeline.MaxAttempts <= 0 {
		c.Pipeline.MaxAttempts = 3
	}
	if c.Pipeline.SaveBatch <= 0 {
		c.Pipeline.SaveBatch = 5
	}
	if c.Pipeline.MonitorInterval <= 0 {
		c.Pipeline.MonitorInterval = 30 * time.Second
	}
	if c.Pipeline.ProgressPath == "" {
		c.Pipeline.ProgressPath = "high_performance_progress.json"
	}
	if c.Pipeline.StatsPath == "" {
		c.Pipeline.StatsPath = "high_performance_stats.json"
	}
}
