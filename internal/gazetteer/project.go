// Package gazetteer projects the annotated matcher output into the
// canonical and entity-map tables, assembles them into a queryable store,
// and matches messy enforcement records against the result.
package gazetteer

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/lbd-works/gazetteer-cli/internal/dedupe"
)

// EntityMapColumns is the column order of the entity_map table and artifact.
var EntityMapColumns = []string{"id", "entity_id", "confidence_score"}

// Projection is the split of a deduplicated CSV into the canonical table
// (source columns plus the surrogate id) and the entity_map linkage table.
// BlockKeys carries the per-row blocking keys used to build the search index
// at assemble time, aligned with Canonical.
type Projection struct {
	CanonicalHeader []string
	Canonical       [][]string
	EntityMap       [][]string
	BlockKeys       [][]string
}

// Project reads a deduplicated CSV and splits it: canonical keeps every
// column except the match metadata (entity_id, confidence_score), entity_map
// keeps only the linkage columns. Rows are not transformed.
func Project(r io.Reader) (*Projection, error) {
	header, records, err := dedupe.ReadRecords(r)
	if err != nil {
		return nil, err
	}

	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[col] = i
	}
	for _, col := range dedupe.AppendedColumns {
		if _, ok := colIdx[col]; !ok {
			return nil, eris.Errorf("gazetteer: input is not a dedupe output, missing column %q", col)
		}
	}
	entityIdx := colIdx["entity_id"]
	confIdx := colIdx["confidence_score"]
	idIdx := colIdx["id"]

	p := &Projection{
		CanonicalHeader: dropColumns(header, entityIdx, confIdx),
		Canonical:       make([][]string, 0, len(records)),
		EntityMap:       make([][]string, 0, len(records)),
		BlockKeys:       make([][]string, 0, len(records)),
	}

	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		row := rec.Row
		if idIdx >= len(row) || entityIdx >= len(row) || confIdx >= len(row) {
			return nil, eris.Errorf("gazetteer: row %d is missing annotation fields", i+2)
		}
		id := row[idIdx]
		if _, dup := seen[id]; dup {
			return nil, eris.Errorf("gazetteer: duplicate surrogate id %q at row %d", id, i+2)
		}
		seen[id] = struct{}{}

		p.Canonical = append(p.Canonical, dropColumns(row, entityIdx, confIdx))
		p.EntityMap = append(p.EntityMap, []string{id, row[entityIdx], row[confIdx]})
		p.BlockKeys = append(p.BlockKeys, dedupe.BlockKeys(rec.Fields))
	}

	return p, nil
}

// WriteArtifacts writes canonical.csv and entity_map.csv into dir, each via
// a temp file plus rename so a partial artifact is never visible.
func (p *Projection) WriteArtifacts(dir string) error {
	if err := writeCSVAtomic(filepath.Join(dir, "canonical.csv"), p.CanonicalHeader, p.Canonical); err != nil {
		return err
	}
	return writeCSVAtomic(filepath.Join(dir, "entity_map.csv"), EntityMapColumns, p.EntityMap)
}

func dropColumns(row []string, drop ...int) []string {
	skip := make(map[int]struct{}, len(drop))
	for _, i := range drop {
		skip[i] = struct{}{}
	}
	out := make([]string, 0, len(row)-len(drop))
	for i, v := range row {
		if _, ok := skip[i]; ok {
			continue
		}
		out = append(out, v)
	}
	return out
}

func writeCSVAtomic(path string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return eris.Wrap(err, "gazetteer: create temp artifact")
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name()) // no-op once renamed
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "gazetteer: write header")
	}
	for i, row := range rows {
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "gazetteer: write row %d", i)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "gazetteer: flush artifact")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "gazetteer: close artifact")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrap(err, "gazetteer: finalize artifact")
	}
	return nil
}
