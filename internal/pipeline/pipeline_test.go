package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/scholar-graph/internal/corpus"
	"github.com/pdiddy/scholar-graph/pkg/types"
)

type fakeReader struct {
	err error
}

func (f *fakeReader) Text(path string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "paper text for " + path, nil
}

type fakeExtractor struct {
	mu       sync.Mutex
	failures map[string]int
	calls    map[string]int
	block    chan struct{}
}

func (f *fakeExtractor) Extract(ctx context.Context, paperID string, year int, text string) (*types.ExtractionResult, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[paperID]++
	remaining := f.failures[paperID]
	if remaining > 0 {
		f.failures[paperID] = remaining - 1
		f.mu.Unlock()
		return nil, fmt.Errorf("simulated extraction timeout for %s", paperID)
	}
	f.mu.Unlock()

	result := types.NewExtractionResult(paperID, types.ModeCombined)
	result.Paper = types.Paper{PaperID: paperID, Title: "Paper " + paperID, PublicationYear: year}
	result.Theories = []types.Theory{{Name: "Resource-Based View", Role: types.RolePrimary}}
	result.Methods = []types.Method{{Name: "Ordinary Least Squares", MethodType: types.MethodQuantitative}}
	return result, nil
}

type fakeIngester struct {
	mu       sync.Mutex
	ingested []string
}

func (f *fakeIngester) IngestPaper(_ context.Context, result *types.ExtractionResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingested = append(f.ingested, result.PaperID)
	return nil
}

func noopNormalize(context.Context, *types.ExtractionResult) error { return nil }

func testTasks(n int) []types.PaperTask {
	tasks := make([]types.PaperTask, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("1995_smj_%04d", i)
		tasks = append(tasks, types.PaperTask{
			PaperID:     id,
			PDFPath:     "/corpus/1995-1999/" + id + ".pdf",
			Year:        1995,
			MaxAttempts: 3,
		})
	}
	return tasks
}

func testConfig(t *testing.T) types.PipelineConfig {
	t.Helper()
	dir := t.TempDir()
	return types.PipelineConfig{
		Workers:         4,
		MaxAttempts:     3,
		SaveBatch:       2,
		MonitorInterval: time.Hour,
		ProgressPath:    filepath.Join(dir, "high_performance_progress.json"),
		StatsPath:       filepath.Join(dir, "high_performance_stats.json"),
	}
}

func newTestRunner(t *testing.T, cfg types.PipelineConfig, reader TextReader, ex Extractor, ing Ingester) (*Runner, *ProgressStore) {
	t.Helper()
	progress, err := LoadProgress(cfg.ProgressPath)
	require.NoError(t, err)
	return NewRunner(cfg, reader, ex, noopNormalize, ing, progress, zerolog.Nop()), progress
}

func TestRunProcessesAllPapers(t *testing.T) {
	cfg := testConfig(t)
	extractor := &fakeExtractor{}
	ingester := &fakeIngester{}
	runner, progress := newTestRunner(t, cfg, &fakeReader{}, extractor, ingester)

	stats, err := runner.Run(context.Background(), testTasks(9), 0)
	require.NoError(t, err)

	require.Equal(t, 9, stats.Processed)
	require.Zero(t, stats.Failed)
	require.False(t, stats.Cancelled)
	require.Len(t, ingester.ingested, 9)
	require.Equal(t, 9, stats.EntityTotals["theories"])
	require.Equal(t, 9, stats.EntityTotals["methods"])
	require.Equal(t, 9, progress.CompletedCount())

	// Shutdown persisted the progress document.
	raw, err := os.ReadFile(cfg.ProgressPath)
	require.NoError(t, err)
	require.Contains(t, string(raw), "1995_smj_0000")
	require.NoFileExists(t, cfg.ProgressPath+".tmp")
}

func TestRunRetriesTransientFailures(t *testing.T) {
	cfg := testConfig(t)
	// Two consecutive failures, third attempt succeeds.
	extractor := &fakeExtractor{failures: map[string]int{"1995_smj_0001": 2}}
	ingester := &fakeIngester{}
	runner, _ := newTestRunner(t, cfg, &fakeReader{}, extractor, ingester)

	stats, err := runner.Run(context.Background(), testTasks(3), 0)
	require.NoError(t, err)

	require.Equal(t, 3, stats.Processed)
	require.Zero(t, stats.Failed)
	require.Empty(t, stats.Errors)
	require.Equal(t, 3, extractor.calls["1995_smj_0001"])
}

func TestRunMarksExhaustedPapersFailed(t *testing.T) {
	cfg := testConfig(t)
	extractor := &fakeExtractor{failures: map[string]int{"1995_smj_0002": 99}}
	ingester := &fakeIngester{}
	runner, progress := newTestRunner(t, cfg, &fakeReader{}, extractor, ingester)

	stats, err := runner.Run(context.Background(), testTasks(4), 0)
	require.NoError(t, err)

	require.Equal(t, 3, stats.Processed)
	require.Equal(t, 1, stats.Failed)
	require.Len(t, stats.Errors, 1)
	require.Equal(t, "1995_smj_0002", stats.Errors[0].PaperID)
	require.Equal(t, 3, stats.Errors[0].Attempts)
	require.Contains(t, stats.Errors[0].Reason, "extracting:")
	require.False(t, progress.ProcessedSet()["1995_smj_0002"])
}

func TestRunInsufficientTextFailsWithoutRetry(t *testing.T) {
	cfg := testConfig(t)
	reader := &fakeReader{err: fmt.Errorf("%w: 12 characters", corpus.ErrInsufficientText)}
	extractor := &fakeExtractor{}
	runner, _ := newTestRunner(t, cfg, reader, extractor, &fakeIngester{})

	stats, err := runner.Run(context.Background(), testTasks(1), 0)
	require.NoError(t, err)

	require.Equal(t, 1, stats.Failed)
	require.Equal(t, "INSUFFICIENT_TEXT", stats.Errors[0].Reason)
	require.Equal(t, 1, stats.Errors[0].Attempts, "empty PDFs are not retried")
	require.Zero(t, extractor.calls["1995_smj_0000"])
}

func TestRunHonorsCancellation(t *testing.T) {
	cfg := testConfig(t)
	block := make(chan struct{})
	extractor := &fakeExtractor{block: block}
	runner, _ := newTestRunner(t, cfg, &fakeReader{}, extractor, &fakeIngester{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Stats, 1)
	go func() {
		stats, _ := runner.Run(ctx, testTasks(20), 0)
		done <- stats
	}()

	// Let a few papers through, then cancel mid-run.
	for i := 0; i < 3; i++ {
		block <- struct{}{}
	}
	cancel()
	close(block)

	select {
	case stats := <-done:
		require.True(t, stats.Cancelled)
		require.Less(t, stats.Processed, 20)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not shut down after cancellation")
	}
}

func TestRunCarriesSkippedCount(t *testing.T) {
	cfg := testConfig(t)
	runner, _ := newTestRunner(t, cfg, &fakeReader{}, &fakeExtractor{}, &fakeIngester{})

	stats, err := runner.Run(context.Background(), testTasks(2), 7)
	require.NoError(t, err)
	require.Equal(t, 7, stats.Skipped)
}

// --- progress store ---

func TestProgressRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")

	p, err := LoadProgress(path)
	require.NoError(t, err)
	p.MarkCompleted("1995_smj_0001")
	p.MarkCompleted("1995_smj_0002")
	p.MarkFailed("1995_smj_0003", "simulated", 3)
	require.NoError(t, p.Save())

	reloaded, err := LoadProgress(path)
	require.NoError(t, err)
	require.True(t, reloaded.ProcessedSet()["1995_smj_0001"])
	require.True(t, reloaded.ProcessedSet()["1995_smj_0002"])
	require.False(t, reloaded.ProcessedSet()["1995_smj_0003"])
	require.Len(t, reloaded.Failed(), 1)
	require.Equal(t, "simulated", reloaded.Failed()[0].Reason)

	// Run ids are per-run, the completed set persists across them.
	require.NotEqual(t, p.RunID(), reloaded.RunID())
}

func TestProgressMissingFileStartsEmpty(t *testing.T) {
	p, err := LoadProgress(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	require.Zero(t, p.CompletedCount())
	require.NotEmpty(t, p.RunID())
}

func TestWriteStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	stats := newStats("run-1", 4)
	stats.Processed = 10
	stats.finish()

	require.NoError(t, WriteStats(path, stats))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"papers_per_minute"`)
	require.Contains(t, string(raw), `"run_id": "run-1"`)
}
