// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/scholar-graph/internal/secrets"
	"github.com/pdiddy/scholar-graph/pkg/types"
)

// defaultConfigFile is consulted when --config is not given.
const defaultConfigFile = "scholar-graph.yaml"

// envBindings maps config keys to their environment variables. The
// SCHOLAR_GRAPH_-prefixed form always works; the bare names match what
// operators already export for the graph database and API providers.
var envBindings = map[string][]string{
	"graph.uri":            {"SCHOLAR_GRAPH_GRAPH_URI", "NEO4J_URI"},
	"graph.username":       {"SCHOLAR_GRAPH_GRAPH_USERNAME", "NEO4J_USERNAME"},
	"graph.password":       {"SCHOLAR_GRAPH_GRAPH_PASSWORD", "NEO4J_PASSWORD"},
	"graph.database":       {"SCHOLAR_GRAPH_GRAPH_DATABASE", "NEO4J_DATABASE"},
	"llm.base_url":         {"SCHOLAR_GRAPH_LLM_BASE_URL", "LLM_BASE_URL"},
	"llm.model":            {"SCHOLAR_GRAPH_LLM_MODEL", "LLM_MODEL"},
	"llm.api_key":          {"SCHOLAR_GRAPH_LLM_API_KEY", "LLM_API_KEY"},
	"fallback.base_url":    {"SCHOLAR_GRAPH_FALLBACK_BASE_URL", "FALLBACK_LLM_BASE_URL"},
	"fallback.model":       {"SCHOLAR_GRAPH_FALLBACK_MODEL", "FALLBACK_LLM_MODEL"},
	"fallback.api_key":     {"SCHOLAR_GRAPH_FALLBACK_API_KEY", "FALLBACK_LLM_API_KEY"},
	"embedding.base_url":   {"SCHOLAR_GRAPH_EMBEDDING_BASE_URL", "EMBEDDING_BASE_URL"},
	"embedding.model":      {"SCHOLAR_GRAPH_EMBEDDING_MODEL", "EMBEDDING_MODEL"},
	"embedding.api_key":    {"SCHOLAR_GRAPH_EMBEDDING_API_KEY", "EMBEDDING_API_KEY"},
	"corpus_root":          {"SCHOLAR_GRAPH_CORPUS_ROOT", "CORPUS_ROOT"},
	"use_fallback_backend": {"SCHOLAR_GRAPH_USE_FALLBACK_BACKEND", "USE_FALLBACK_BACKEND"},
	"embeddings_enabled":   {"SCHOLAR_GRAPH_EMBEDDINGS_ENABLED", "EMBEDDINGS_ENABLED"},
}

// loadConfig assembles configuration in increasing precedence: YAML file,
// environment (including .env), secrets directory, then defaults for
// whatever is still zero.
func loadConfig(cmd *cobra.Command) (types.Config, error) {
	var cfg types.Config

	// A missing .env is fine; explicit environment still applies.
	_ = godotenv.Load()

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	v := viper.New()
	for key, vars := range envBindings {
		if err := v.BindEnv(append([]string{key}, vars...)...); err != nil {
			return cfg, fmt.Errorf("binding environment: %w", err)
		}
	}

	setString := func(target *string, key string) {
		if s := v.GetString(key); s != "" {
			*target = s
		}
	}
	setString(&cfg.Graph.URI, "graph.uri")
	setString(&cfg.Graph.Username, "graph.username")
	setString(&cfg.Graph.Password, "graph.password")
	setString(&cfg.Graph.Database, "graph.database")
	setString(&cfg.Extraction.LLM.BaseURL, "llm.base_url")
	setString(&cfg.Extraction.LLM.Model, "llm.model")
	setString(&cfg.Extraction.LLM.APIKey, "llm.api_key")
	setString(&cfg.Extraction.Fallback.BaseURL, "fallback.base_url")
	setString(&cfg.Extraction.Fallback.Model, "fallback.model")
	setString(&cfg.Extraction.Fallback.APIKey, "fallback.api_key")
	setString(&cfg.Embedding.BaseURL, "embedding.base_url")
	setString(&cfg.Embedding.Model, "embedding.model")
	setString(&cfg.Embedding.APIKey, "embedding.api_key")
	setString(&cfg.Pipeline.CorpusRoot, "corpus_root")
	if v.IsSet("use_fallback_backend") {
		cfg.Extraction.UseFallback = v.GetBool("use_fallback_backend")
	}
	if v.IsSet("embeddings_enabled") {
		cfg.Embedding.Enabled = v.GetBool("embeddings_enabled")
	}

	secretsDir, _ := cmd.Flags().GetString("secrets-dir")
	vault, err := secrets.Load(secretsDir)
	if err != nil {
		return cfg, err
	}
	if cfg.Extraction.LLM.APIKey == "" {
		cfg.Extraction.LLM.APIKey = vault[secrets.LLMAPIKey]
	}
	if cfg.Extraction.Fallback.APIKey == "" {
		cfg.Extraction.Fallback.APIKey = vault[secrets.FallbackAPIKey]
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = vault[secrets.EmbeddingAPIKey]
	}
	if cfg.Graph.Password == "" {
		cfg.Graph.Password = vault[secrets.GraphPassword]
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// findConfigFile looks for scholar-graph.yaml in the working directory,
// then under ~/.config/scholar-graph/. Empty means no file.
func findConfigFile() string {
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	candidate := filepath.Join(home, ".config", "scholar-graph", defaultConfigFile)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// newLogger builds the process logger from the --log-level flag. Console
// output on a terminal, JSON otherwise.
func newLogger(cmd *cobra.Command) zerolog.Logger {
	levelName, _ := cmd.Flags().GetString("log-level")
	level, err := zerolog.ParseLevel(strings.ToLower(levelName))
	if err != nil {
		level = zerolog.InfoLevel
	}
	var out io.Writer = os.Stderr
	if isatty.IsTerminal(os.Stderr.Fd()) {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
