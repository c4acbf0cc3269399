// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
)

// ErrInsufficientText marks a paper whose PDF yields too little text to
// extract from (R3.3). The worker records the paper as FAILED with reason
// INSUFFICIENT_TEXT.
var ErrInsufficientText = errors.New("INSUFFICIENT_TEXT")

// readPDF extracts concatenated page text from a PDF file. Package-level
// var for test substitution.
var readPDF = func(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not fail the paper.
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// textCacheKey identifies a PDF snapshot. A changed file invalidates its
// cached text (R3.2).
type textCacheKey struct {
	path  string
	mtime int64
	size  int64
}

// TextReader extracts paper text from PDFs with an in-process cache keyed
// by (path, mtime, size). Safe for concurrent use.
type TextReader struct {
	// MinChars fails extraction with ErrInsufficientText below this bound.
	MinChars int

	// MaxChars caps the returned text.
	MaxChars int

	mu    sync.Mutex
	cache map[textCacheKey]string
}

// NewTextReader returns a reader with the given text bounds.
func NewTextReader(minChars, maxChars int) *TextReader {
	return &TextReader{
		MinChars: minChars,
		MaxChars: maxChars,
		cache:    make(map[textCacheKey]string),
	}
}

// Text returns up to MaxChars of text from the PDF at path. Results are
// cached; a file whose mtime or size changed is re-read (R3.1, R3.2).
func (r *TextReader) Text(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat pdf %s: %w", path, err)
	}
	key := textCacheKey{path: path, mtime: info.ModTime().UnixNano(), size: info.Size()}

	r.mu.Lock()
	cached, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	text, err := readPDF(path)
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if len(text) < r.MinChars {
		return "", fmt.Errorf("%w: %d characters in %s", ErrInsufficientText, len(text), path)
	}
	if r.MaxChars > 0 && len(text) > r.MaxChars {
		text = text[:r.MaxChars]
	}

	r.mu.Lock()
	r.cache[key] = text
	r.mu.Unlock()

	return text, nil
}
