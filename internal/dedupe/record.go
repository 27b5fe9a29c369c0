package dedupe

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
)

// RequiredColumns are the columns the matcher needs to see in the input
// header. Fetch guarantees them for the pipeline's own artifacts; ad-hoc
// inputs are validated here so a renamed upstream column fails the run
// instead of silently producing degenerate groupings.
var RequiredColumns = []string{
	"case_id",
	"trade_nm",
	"legal_name",
	"street_addr_1_txt",
	"cty_nm",
	"st_cd",
	"zip_cd",
	"naic_cd",
}

// Fields holds the match-relevant attributes of one establishment record,
// already normalized for comparison.
type Fields struct {
	CaseID string
	Trade  string
	Legal  string
	Street string
	City   string
	State  string
	Zip    string
	NAICS  string
}

// Record is one input row: the raw CSV fields in input order plus the
// normalized attributes used for blocking and scoring.
type Record struct {
	Row    []string
	Fields Fields
}

// FromFields builds a Record from already-extracted raw field values,
// applying the same normalization as CSV ingestion. Used by gazetteer
// search, where the candidate side comes out of the store rather than
// a file.
func FromFields(caseID, trade, legal, street, city, state, zip, naics string) Record {
	return Record{
		Fields: Fields{
			CaseID: caseID,
			Trade:  NormalizeName(trade),
			Legal:  NormalizeName(legal),
			Street: Fold(street),
			City:   Fold(city),
			State:  Fold(state),
			Zip:    Fold(zip),
			NAICS:  Fold(naics),
		},
	}
}

// ReadRecords reads the whole input CSV, validates the header, and returns
// the header plus one Record per data row in input order.
func ReadRecords(r io.Reader) ([]string, []Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, eris.New("dedupe: input is empty")
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "dedupe: read header")
	}

	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[col] = i
	}
	for _, col := range RequiredColumns {
		if _, ok := colIdx[col]; !ok {
			return nil, nil, eris.Errorf("dedupe: input missing required column %q", col)
		}
	}

	get := func(row []string, col string) string {
		idx := colIdx[col]
		if idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrapf(err, "dedupe: read row %d", len(records)+2)
		}

		rec := FromFields(
			get(row, "case_id"),
			get(row, "trade_nm"),
			get(row, "legal_name"),
			get(row, "street_addr_1_txt"),
			get(row, "cty_nm"),
			get(row, "st_cd"),
			get(row, "zip_cd"),
			get(row, "naic_cd"),
		)
		rec.Row = row
		records = append(records, rec)
	}

	return header, records, nil
}
