// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Cache is a single-file persistent map from (model, text) to vector,
// backed by SQLite. It fronts an inner Embedder so repeated normalization
// of the same canonical names never re-encodes (R2.2).
type Cache struct {
	inner Embedder
	db    *sql.DB
}

// NewCache opens or creates the cache database at path and wraps inner.
func NewCache(inner Embedder, path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening embedding cache: %w", err)
	}

	if _, err := db.Exec(
		`CREATE TABLE IF NOT EXISTS embeddings (
			key TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			dim INTEGER NOT NULL,
			vector BLOB NOT NULL
		)`,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating embedding cache schema: %w", err)
	}

	return &Cache{inner: inner, db: db}, nil
}

// Close releases the database connection.
func (c *Cache) Close() error { return c.db.Close() }

// Dimension returns the inner embedder's vector width.
func (c *Cache) Dimension() int { return c.inner.Dimension() }

// Model returns the inner embedder's model identifier.
func (c *Cache) Model() string { return c.inner.Model() }

// Embed returns the cached vector for text or encodes and stores it.
func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(c.inner.Model(), text)

	var blob []byte
	err := c.db.QueryRowContext(ctx, `SELECT vector FROM embeddings WHERE key = ?`, key).Scan(&blob)
	if err == nil {
		return decodeVector(blob), nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("reading embedding cache: %w", err)
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if _, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embeddings (key, model, dim, vector) VALUES (?, ?, ?, ?)`,
		key, c.inner.Model(), len(vec), encodeVector(vec),
	); err != nil {
		return nil, fmt.Errorf("writing embedding cache: %w", err)
	}

	return vec, nil
}

func cacheKey(model, text string) string {
	h := sha256.Sum256([]byte(model + "\x00" + text))
	return fmt.Sprintf("%x", h[:16])
}

// encodeVector packs float32s little-endian, 4 bytes each.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
