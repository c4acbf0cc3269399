// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus enumerates the PDF corpus and acquires paper text.
// Implements: prd001-corpus (R1-R3);
//
//	docs/ARCHITECTURE § Discovery.
package corpus

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/scholar-graph/pkg/types"
)

// paperFileRe matches corpus filenames like 1995_smj_0042.pdf; the YYYY
// prefix is authoritative for publication year when the PDF does not
// declare one (R1.2).
var paperFileRe = regexp.MustCompile(`^(\d{4})_(.+)\.pdf$`)

// Discover walks root and returns one PaperTask per corpus PDF, filtered
// by the inclusive year range and the processed set, sorted by filename so
// dispatch order is deterministic (R1.1, R1.3, R2.1).
//
// yearStart/yearEnd of zero disable the respective bound. processed may be
// nil; entries present in it are skipped (resume semantics).
func Discover(root string, yearStart, yearEnd int, processed map[string]bool, maxAttempts int) ([]types.PaperTask, error) {
	var tasks []types.PaperTask

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		m := paperFileRe.FindStringSubmatch(d.Name())
		if m == nil {
			return nil
		}

		year, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		if yearStart > 0 && year < yearStart {
			return nil
		}
		if yearEnd > 0 && year > yearEnd {
			return nil
		}

		paperID := strings.TrimSuffix(d.Name(), ".pdf")
		if processed[paperID] {
			return nil
		}

		tasks = append(tasks, types.PaperTask{
			PaperID:     paperID,
			PDFPath:     path,
			Year:        year,
			Attempt:     0,
			MaxAttempts: maxAttempts,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking corpus root %s: %w", root, err)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return filepath.Base(tasks[i].PDFPath) < filepath.Base(tasks[j].PDFPath)
	})

	return tasks, nil
}
