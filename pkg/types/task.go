// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// TaskStatus tracks a paper through the pipeline phases.
// Per prd006-pipeline R2.1.
type TaskStatus string

const (
	StatusPending     TaskStatus = "PENDING"
	StatusExtracting  TaskStatus = "EXTRACTING"
	StatusNormalizing TaskStatus = "NORMALIZING"
	StatusIngesting   TaskStatus = "INGESTING"
	StatusCompleted   TaskStatus = "COMPLETED"
	StatusFailed      TaskStatus = "FAILED"
)

// PaperTask is one unit of pipeline work.
type PaperTask struct {
	// PaperID is the filename stem (e.g. "1998_smj_0042").
	PaperID string `json:"paper_id" yaml:"paper_id"`

	// PDFPath is the absolute path to the source PDF.
	PDFPath string `json:"pdf_path" yaml:"pdf_path"`

	// Year is parsed from the YYYY filename prefix.
	Year int `json:"year" yaml:"year"`

	// Attempt counts prior failed runs of this task.
	Attempt int `json:"attempt" yaml:"attempt"`

	// MaxAttempts bounds re-enqueueing on failure.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`
}

// Poison reports whether the task is the designated worker terminator.
func (t PaperTask) Poison() bool {
	return t.PaperID == poisonID
}

// PoisonTask returns the terminator task enqueued once per worker at
// shutdown.
func PoisonTask() PaperTask {
	return PaperTask{PaperID: poisonID}
}

const poisonID = "__poison__"
