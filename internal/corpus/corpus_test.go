package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// --- Discover ---

func writeCorpus(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestDiscoverFiltersAndSorts(t *testing.T) {
	root := writeCorpus(t,
		"1990-1999/1995_smj_0002.pdf",
		"1990-1999/1991_smj_0001.pdf",
		"2000-2009/2003_smj_0003.pdf",
		"2000-2009/notes.txt",
		"2000-2009/unprefixed.pdf",
	)

	tasks, err := Discover(root, 0, 0, nil, 3)
	if err != nil {
		t.Fatal(err)
	}

	if len(tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(tasks))
	}
	want := []string{"1991_smj_0001", "1995_smj_0002", "2003_smj_0003"}
	for i, w := range want {
		if tasks[i].PaperID != w {
			t.Errorf("task %d: got %q, want %q", i, tasks[i].PaperID, w)
		}
	}
	if tasks[0].Year != 1991 {
		t.Errorf("year: got %d, want 1991", tasks[0].Year)
	}
	if tasks[0].MaxAttempts != 3 {
		t.Errorf("max attempts: got %d, want 3", tasks[0].MaxAttempts)
	}
}

func TestDiscoverYearRange(t *testing.T) {
	root := writeCorpus(t,
		"1991_smj_0001.pdf",
		"1995_smj_0002.pdf",
		"2003_smj_0003.pdf",
	)

	tasks, err := Discover(root, 1994, 2000, nil, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].PaperID != "1995_smj_0002" {
		t.Fatalf("got %v, want only 1995_smj_0002", tasks)
	}
}

func TestDiscoverSkipsProcessed(t *testing.T) {
	root := writeCorpus(t, "1991_smj_0001.pdf", "1995_smj_0002.pdf")

	processed := map[string]bool{"1991_smj_0001": true}
	tasks, err := Discover(root, 0, 0, processed, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].PaperID != "1995_smj_0002" {
		t.Fatalf("got %v, want only 1995_smj_0002", tasks)
	}
}

// --- TextReader ---

func TestTextReaderCachesBySnapshot(t *testing.T) {
	reads := 0
	orig := readPDF
	readPDF = func(path string) (string, error) {
		reads++
		return strings.Repeat("strategic management text ", 20), nil
	}
	defer func() { readPDF = orig }()

	path := filepath.Join(t.TempDir(), "1995_smj_0001.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewTextReader(100, 25000)
	first, err := r.Text(path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Text(path)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("cached text differs from first read")
	}
	if reads != 1 {
		t.Errorf("got %d reads, want 1 (second call should hit the cache)", reads)
	}
}

func TestTextReaderInsufficientText(t *testing.T) {
	orig := readPDF
	readPDF = func(path string) (string, error) { return "too short", nil }
	defer func() { readPDF = orig }()

	path := filepath.Join(t.TempDir(), "1995_smj_0001.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewTextReader(100, 25000)
	if _, err := r.Text(path); err == nil || !strings.Contains(err.Error(), "INSUFFICIENT_TEXT") {
		t.Fatalf("got %v, want INSUFFICIENT_TEXT error", err)
	}
}

func TestTextReaderCapsLength(t *testing.T) {
	orig := readPDF
	readPDF = func(path string) (string, error) {
		return strings.Repeat("x", 30000), nil
	}
	defer func() { readPDF = orig }()

	path := filepath.Join(t.TempDir(), "1995_smj_0001.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewTextReader(100, 25000)
	text, err := r.Text(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(text) != 25000 {
		t.Errorf("got %d chars, want 25000", len(text))
	}
}
