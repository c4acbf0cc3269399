// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the concurrent extract-normalize-ingest loop over
// a discovered corpus. Implements: prd006-pipeline (R1-R4);
//
//	docs/ARCHITECTURE § Pipeline.
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FailedPaper records one terminally failed paper.
type FailedPaper struct {
	PaperID  string    `json:"paper_id"`
	Reason   string    `json:"reason"`
	Attempts int       `json:"attempts"`
	FailedAt time.Time `json:"failed_at"`
}

// progressDocument is the on-disk shape of the progress store.
type progressDocument struct {
	RunID       string        `json:"run_id"`
	Processed   []string      `json:"processed"`
	Failed      []FailedPaper `json:"failed"`
	LastUpdated time.Time     `json:"last_updated"`
}

// ProgressStore is the durable record of completed and failed papers,
// enabling resume after a crash. One writer at a time; writes are atomic
// on disk (temp file + rename).
type ProgressStore struct {
	mu        sync.Mutex
	path      string
	runID     string
	processed map[string]bool
	failed    []FailedPaper
}

// LoadProgress reads the progress document at path, or starts a fresh one
// when the file does not exist. Each load gets a new run id; the
// completed set carries over.
func LoadProgress(path string) (*ProgressStore, error) {
	p := &ProgressStore{
		path:      path,
		runID:     uuid.NewString(),
		processed: make(map[string]bool),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading progress file %s: %w", path, err)
	}

	var doc progressDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing progress file %s: %w", path, err)
	}
	for _, id := range doc.Processed {
		p.processed[id] = true
	}
	p.failed = doc.Failed
	return p, nil
}

// RunID identifies this pipeline run in stats and logs.
func (p *ProgressStore) RunID() string { return p.runID }

// ProcessedSet returns a copy of the completed paper ids for resume
// filtering.
func (p *ProgressStore) ProcessedSet() map[string]bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]bool, len(p.processed))
	for id := range p.processed {
		out[id] = true
	}
	return out
}

// CompletedCount returns the number of completed papers across all runs.
func (p *ProgressStore) CompletedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.processed)
}

// MarkCompleted records a paper as done.
func (p *ProgressStore) MarkCompleted(paperID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed[paperID] = true
}

// MarkFailed records a terminal failure.
func (p *ProgressStore) MarkFailed(paperID, reason string, attempts int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, FailedPaper{
		PaperID:  paperID,
		Reason:   reason,
		Attempts: attempts,
		FailedAt: time.Now().UTC(),
	})
}

// Failed returns a copy of the terminal failures.
func (p *ProgressStore) Failed() []FailedPaper {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]FailedPaper(nil), p.failed...)
}

// Save writes the document atomically: temp file in the same directory,
// then rename.
func (p *ProgressStore) Save() error {
	p.mu.Lock()
	doc := progressDocument{
		RunID:       p.runID,
		Processed:   make([]string, 0, len(p.processed)),
		Failed:      append([]FailedPaper(nil), p.failed...),
		LastUpdated: time.Now().UTC(),
	}
	for id := range p.processed {
		doc.Processed = append(doc.Processed, id)
	}
	p.mu.Unlock()
	sort.Strings(doc.Processed)

	return writeJSONAtomic(p.path, doc)
}

func writeJSONAtomic(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}
	return nil
}
