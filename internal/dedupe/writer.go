package dedupe

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
)

// AppendedColumns are the annotation columns added to the output, in order.
var AppendedColumns = []string{"entity_id", "confidence_score", "id"}

// WriteOutput writes the annotated records to path: the input columns in
// input order, plus entity_id, confidence_score, and id appended. The file
// is written to a temp name in the target directory and renamed into place,
// so downstream stages never see a truncated output.
func WriteOutput(path string, header []string, records []Record, results []Result) error {
	if len(records) != len(results) {
		return eris.Errorf("dedupe: %d records but %d results", len(records), len(results))
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return eris.Wrap(err, "dedupe: create temp output")
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name()) // no-op once renamed
	}()

	w := csv.NewWriter(tmp)

	outHeader := append(append([]string{}, header...), AppendedColumns...)
	if err := w.Write(outHeader); err != nil {
		return eris.Wrap(err, "dedupe: write header")
	}

	for i, rec := range records {
		res := results[i]
		row := append(append([]string{}, rec.Row...),
			res.EntityID,
			strconv.FormatFloat(res.Confidence, 'f', 6, 64),
			strconv.Itoa(res.ID),
		)
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "dedupe: write row %d", i)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "dedupe: flush output")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "dedupe: close output")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrap(err, "dedupe: finalize output")
	}

	return nil
}
