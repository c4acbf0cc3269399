// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PromptVersion participates in every cache key so a prompt revision
// invalidates all prior responses.
const PromptVersion = "2.0"

// fingerprintChars bounds the text prefix hashed into the cache key.
// The opening pages identify a paper; hashing the full text would make
// trailing OCR noise churn the cache.
const fingerprintChars = 2000

// Fingerprint returns a stable digest of a paper's text for cache keying.
func Fingerprint(text string) string {
	if len(text) > fingerprintChars {
		text = text[:fingerprintChars]
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

func cacheKey(promptType, fingerprint string) string {
	sum := sha256.Sum256([]byte(promptType + "|" + PromptVersion + "|" + fingerprint))
	return hex.EncodeToString(sum[:])[:24]
}

// cacheEntry is the on-disk record for one LLM response.
type cacheEntry struct {
	PromptType string    `json:"prompt_type"`
	Version    string    `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	Response   string    `json:"response"`
}

// ResponseCache stores raw LLM responses in memory with an optional disk
// tier, keyed by prompt type, prompt version, and text fingerprint.
// Entries expire after the TTL (R4.2).
type ResponseCache struct {
	mu     sync.RWMutex
	memory map[string]cacheEntry
	dir    string
	ttl    time.Duration
}

// NewResponseCache builds a cache. An empty dir disables the disk tier.
func NewResponseCache(dir string, ttl time.Duration) (*ResponseCache, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}
	return &ResponseCache{
		memory: make(map[string]cacheEntry),
		dir:    dir,
		ttl:    ttl,
	}, nil
}

// Get returns a cached response, consulting memory then disk. Expired
// entries are treated as absent.
func (c *ResponseCache) Get(promptType, fingerprint string) (string, bool) {
	key := cacheKey(promptType, fingerprint)

	c.mu.RLock()
	entry, ok := c.memory[key]
	c.mu.RUnlock()
	if ok && c.fresh(entry) {
		return entry.Response, true
	}

	if c.dir == "" {
		return "", false
	}
	raw, err := os.ReadFile(c.path(key))
	if err != nil {
		return "", false
	}
	if err := json.Unmarshal(raw, &entry); err != nil || !c.fresh(entry) {
		return "", false
	}
	c.mu.Lock()
	c.memory[key] = entry
	c.mu.Unlock()
	return entry.Response, true
}

// Put stores a response in both tiers. Disk failures are ignored: the
// cache is an accelerator, not a store of record.
func (c *ResponseCache) Put(promptType, fingerprint, response string) {
	key := cacheKey(promptType, fingerprint)
	entry := cacheEntry{
		PromptType: promptType,
		Version:    PromptVersion,
		CreatedAt:  time.Now().UTC(),
		Response:   response,
	}

	c.mu.Lock()
	c.memory[key] = entry
	c.mu.Unlock()

	if c.dir == "" {
		return
	}
	raw, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return
	}
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, c.path(key))
}

func (c *ResponseCache) fresh(e cacheEntry) bool {
	if e.Version != PromptVersion {
		return false
	}
	return c.ttl <= 0 || time.Since(e.CreatedAt) < c.ttl
}

func (c *ResponseCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}
