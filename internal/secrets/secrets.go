// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets overlays pipeline credentials from a directory of
// one-file-per-key entries, so deployments can mount the LLM keys and the
// graph password without writing them into config files or the
// environment. The filename is the key name, the trimmed file contents
// are the value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Key files the CLI consults when the corresponding config field is
// still empty after file and environment loading.
const (
	LLMAPIKey       = "llm-api-key"
	FallbackAPIKey  = "fallback-llm-api-key"
	EmbeddingAPIKey = "embedding-api-key"
	GraphPassword   = "neo4j-password"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}
