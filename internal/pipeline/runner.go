// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/scholar-graph/internal/corpus"
	"github.com/pdiddy/scholar-graph/pkg/types"
)

// TextReader acquires paper text from a PDF path.
type TextReader interface {
	Text(path string) (string, error)
}

// Extractor turns paper text into a typed extraction result.
type Extractor interface {
	Extract(ctx context.Context, paperID string, yearFromFilename int, text string) (*types.ExtractionResult, error)
}

// NormalizeFunc rewrites entity names in a result to canonical forms.
type NormalizeFunc func(ctx context.Context, result *types.ExtractionResult) error

// Ingester persists one result as an atomic graph transaction.
type Ingester interface {
	IngestPaper(ctx context.Context, result *types.ExtractionResult) error
}

// PipelineError reports which phase a paper failed in. Its message is
// what lands in the failed-papers list of the stats document.
type PipelineError struct {
	PaperID string
	Phase   types.TaskStatus
	Err     error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", strings.ToLower(string(e.Phase)), e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func phaseErr(paperID string, phase types.TaskStatus, err error) *PipelineError {
	return &PipelineError{PaperID: paperID, Phase: phase, Err: err}
}

// outcome is a worker's report on one task.
type outcome struct {
	task  types.PaperTask
	retry bool
}

// Runner coordinates the bounded worker pool over a task list.
type Runner struct {
	cfg       types.PipelineConfig
	reader    TextReader
	extractor Extractor
	normalize NormalizeFunc
	ingester  Ingester
	progress  *ProgressStore
	log       zerolog.Logger

	mu        sync.Mutex
	stats     Stats
	sinceSave int

	// requeue holds tasks interrupted by cancellation; they are not
	// re-enqueued live, resume picks them up on restart.
	requeue []types.PaperTask
}

// NewRunner wires the pipeline stages together.
func NewRunner(cfg types.PipelineConfig, reader TextReader, extractor Extractor, normalize NormalizeFunc, ingester Ingester, progress *ProgressStore, log zerolog.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		reader:    reader,
		extractor: extractor,
		normalize: normalize,
		ingester:  ingester,
		progress:  progress,
		log:       log.With().Str("component", "pipeline").Logger(),
	}
}

// Run processes all tasks with the configured worker count and returns
// the run statistics. skipped is the count of papers excluded by resume
// filtering, carried into the stats document.
func (r *Runner) Run(ctx context.Context, tasks []types.PaperTask, skipped int) (Stats, error) {
	workers := r.cfg.Workers
	if workers <= 0 {
		workers = 10
	}

	r.mu.Lock()
	r.stats = newStats(r.progress.RunID(), workers)
	r.stats.Skipped = skipped
	r.mu.Unlock()

	r.log.Info().Int("tasks", len(tasks)).Int("workers", workers).Int("skipped", skipped).
		Str("run_id", r.progress.RunID()).Msg("pipeline starting")

	// Queue capacity 2N bounds memory regardless of corpus size;
	// discovery output beyond it waits in the dispatcher's backlog.
	queue := make(chan types.PaperTask, 2*workers)
	outcomes := make(chan outcome, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r.worker(ctx, id, queue, outcomes)
		}(i)
	}

	r.dispatch(ctx, tasks, workers, queue, outcomes)
	wg.Wait()

	r.mu.Lock()
	r.stats.Errors = r.progress.Failed()
	r.stats.Cancelled = ctx.Err() != nil
	r.stats.finish()
	stats := r.stats
	r.mu.Unlock()

	if err := r.progress.Save(); err != nil {
		r.log.Error().Err(err).Msg("saving progress at shutdown")
	}

	r.log.Info().Int("processed", stats.Processed).Int("failed", stats.Failed).
		Bool("cancelled", stats.Cancelled).Msg("pipeline finished")
	return stats, nil
}

// dispatch feeds tasks to the queue, re-enqueues retryable failures, and
// finally poisons the queue once per worker.
func (r *Runner) dispatch(ctx context.Context, tasks []types.PaperTask, workers int, queue chan types.PaperTask, outcomes chan outcome) {
	monitorDone := make(chan struct{})
	go r.monitor(ctx, monitorDone)
	defer close(monitorDone)

	backlog := append([]types.PaperTask(nil), tasks...)
	open := len(backlog)

	handle := func(o outcome) {
		if o.retry {
			backlog = append(backlog, o.task)
			return
		}
		open--
	}

loop:
	for open > 0 {
		if len(backlog) > 0 {
			select {
			case queue <- backlog[0]:
				backlog = backlog[1:]
			case o := <-outcomes:
				handle(o)
			case <-ctx.Done():
				break loop
			}
		} else {
			select {
			case o := <-outcomes:
				handle(o)
			case <-ctx.Done():
				break loop
			}
		}
	}

	for i := 0; i < workers; i++ {
		select {
		case queue <- types.PoisonTask():
		case <-ctx.Done():
			// Workers observe cancellation themselves.
			return
		}
	}
}

// worker loops over the queue until it receives the poison task or the
// context is cancelled.
func (r *Runner) worker(ctx context.Context, id int, queue chan types.PaperTask, outcomes chan outcome) {
	log := r.log.With().Int("worker", id).Logger()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-queue:
			if task.Poison() {
				return
			}
			o := r.process(ctx, log, task)
			select {
			case outcomes <- o:
			case <-ctx.Done():
				return
			}
		}
	}
}

// process runs one paper through the phases, advancing its status and
// recording per-phase wall-clock. Cancellation between phases returns the
// task to the requeue list.
func (r *Runner) process(ctx context.Context, log zerolog.Logger, task types.PaperTask) outcome {
	log = log.With().Str("paper_id", task.PaperID).Int("attempt", task.Attempt+1).Logger()

	// EXTRACTING covers text acquisition and the LLM calls.
	phaseStart := time.Now()
	text, err := r.reader.Text(task.PDFPath)
	if err != nil {
		if errors.Is(err, corpus.ErrInsufficientText) {
			// Retrying an empty PDF cannot help.
			return r.fail(log, task, "INSUFFICIENT_TEXT")
		}
		return r.failOrRetry(log, task, phaseErr(task.PaperID, types.StatusExtracting, err))
	}

	result, err := r.extractor.Extract(ctx, task.PaperID, task.Year, text)
	if err != nil {
		if ctx.Err() != nil {
			return r.interrupted(task)
		}
		return r.failOrRetry(log, task, phaseErr(task.PaperID, types.StatusExtracting, err))
	}
	r.recordPhase(types.StatusExtracting, time.Since(phaseStart))
	if ctx.Err() != nil {
		return r.interrupted(task)
	}

	phaseStart = time.Now()
	if err := r.normalize(ctx, result); err != nil {
		if ctx.Err() != nil {
			return r.interrupted(task)
		}
		return r.failOrRetry(log, task, phaseErr(task.PaperID, types.StatusNormalizing, err))
	}
	r.recordPhase(types.StatusNormalizing, time.Since(phaseStart))
	if ctx.Err() != nil {
		return r.interrupted(task)
	}

	phaseStart = time.Now()
	if err := r.ingester.IngestPaper(ctx, result); err != nil {
		if ctx.Err() != nil {
			return r.interrupted(task)
		}
		return r.failOrRetry(log, task, phaseErr(task.PaperID, types.StatusIngesting, err))
	}
	r.recordPhase(types.StatusIngesting, time.Since(phaseStart))

	r.complete(log, task, result)
	return outcome{task: task}
}

func (r *Runner) recordPhase(phase types.TaskStatus, d time.Duration) {
	r.mu.Lock()
	r.stats.PhaseSeconds[string(phase)] += d.Seconds()
	r.mu.Unlock()
}

func (r *Runner) complete(log zerolog.Logger, task types.PaperTask, result *types.ExtractionResult) {
	r.progress.MarkCompleted(task.PaperID)

	r.mu.Lock()
	r.stats.Processed++
	for kind, n := range result.EntityCounts() {
		r.stats.EntityTotals[kind] += n
	}
	r.sinceSave++
	save := r.sinceSave >= r.cfg.SaveBatch
	if save {
		r.sinceSave = 0
	}
	r.mu.Unlock()

	log.Info().Str("status", string(types.StatusCompleted)).Msg("paper completed")
	if save {
		if err := r.progress.Save(); err != nil {
			log.Error().Err(err).Msg("saving progress")
		}
	}
}

// failOrRetry re-enqueues the task while attempts remain, otherwise marks
// it terminally failed.
func (r *Runner) failOrRetry(log zerolog.Logger, task types.PaperTask, err error) outcome {
	if task.Attempt+1 < task.MaxAttempts {
		log.Warn().Err(err).Msg("paper attempt failed, re-enqueueing")
		task.Attempt++
		return outcome{task: task, retry: true}
	}
	return r.fail(log, task, err.Error())
}

func (r *Runner) fail(log zerolog.Logger, task types.PaperTask, reason string) outcome {
	r.progress.MarkFailed(task.PaperID, reason, task.Attempt+1)
	r.mu.Lock()
	r.stats.Failed++
	r.mu.Unlock()
	log.Error().Str("status", string(types.StatusFailed)).Str("reason", reason).Msg("paper failed")
	return outcome{task: task}
}

// interrupted records a cancelled task for requeue on restart. It is
// reported as terminal to the dispatcher, which is itself shutting down.
func (r *Runner) interrupted(task types.PaperTask) outcome {
	r.mu.Lock()
	r.requeue = append(r.requeue, task)
	r.mu.Unlock()
	return outcome{task: task}
}

// monitor periodically logs a snapshot and persists progress until the
// run ends. It never dies on task errors; it only records them.
func (r *Runner) monitor(ctx context.Context, done chan struct{}) {
	interval := r.cfg.MonitorInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			processed, failed := r.stats.Processed, r.stats.Failed
			r.mu.Unlock()
			r.log.Info().Int("processed", processed).Int("failed", failed).
				Int("completed_total", r.progress.CompletedCount()).Msg("progress snapshot")
			if err := r.progress.Save(); err != nil {
				r.log.Error().Err(err).Msg("saving progress from monitor")
			}
		}
	}
}
