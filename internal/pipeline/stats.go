// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import "time"

// Stats aggregates one pipeline run. Serialized pretty-printed to the
// stats file at the end of the run.
type Stats struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Workers    int       `json:"workers"`

	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`

	// EntityTotals accumulates per-kind extraction counts across papers.
	EntityTotals map[string]int `json:"entity_totals"`

	// PhaseSeconds accumulates wall-clock per phase across papers.
	PhaseSeconds map[string]float64 `json:"phase_seconds"`

	PapersPerMinute float64 `json:"papers_per_minute"`

	Errors []FailedPaper `json:"errors"`

	Cancelled bool `json:"cancelled"`
}

func newStats(runID string, workers int) Stats {
	return Stats{
		RunID:        runID,
		StartedAt:    time.Now().UTC(),
		Workers:      workers,
		EntityTotals: make(map[string]int),
		PhaseSeconds: make(map[string]float64),
		Errors:       []FailedPaper{},
	}
}

// finish stamps the end of the run and derives the throughput rate.
func (s *Stats) finish() {
	s.FinishedAt = time.Now().UTC()
	elapsed := s.FinishedAt.Sub(s.StartedAt).Minutes()
	if elapsed > 0 {
		s.PapersPerMinute = float64(s.Processed) / elapsed
	}
}

// WriteStats persists the stats document atomically.
func WriteStats(path string, stats Stats) error {
	return writeJSONAtomic(path, stats)
}
