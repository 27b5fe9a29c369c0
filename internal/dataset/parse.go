package dataset

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// trimQuotes removes surrounding double quotes from a CSV field.
func trimQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

// cleanField normalizes a raw upstream field for matching: trims quotes,
// drops invalid UTF-8 byte sequences (the DOL extracts carry Latin-1
// stragglers), lowercases, and collapses internal whitespace.
func cleanField(s string) string {
	s = strings.ToValidUTF8(trimQuotes(s), "")
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// mapColumns builds a column name -> index map from a header row.
func mapColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[strings.ToLower(trimQuotes(col))] = i
	}
	return m
}

// columnIndexes resolves each required column to its index in the header,
// failing loudly when the upstream column set has drifted.
func columnIndexes(name string, header []string, required []string) ([]int, error) {
	byName := mapColumns(header)
	idx := make([]int, len(required))
	for i, col := range required {
		j, ok := byName[col]
		if !ok {
			return nil, eris.Errorf("%s: upstream file is missing column %q", name, col)
		}
		idx[i] = j
	}
	return idx, nil
}

// getCol returns row[i] or "" when the row is short.
func getCol(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}

// writeCSVAtomic writes header and rows to path via a temp file in the same
// directory plus a rename, so a partially written artifact is never visible.
func writeCSVAtomic(path string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return eris.Wrap(err, "dataset: create temp artifact")
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name()) // no-op once renamed
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "dataset: write header")
	}
	for i, row := range rows {
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "dataset: write row %d", i)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "dataset: flush artifact")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "dataset: close artifact")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrap(err, "dataset: finalize artifact")
	}
	return nil
}
