package fetcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

// writeWorkbook builds a single-sheet workbook at path from string rows.
func writeWorkbook(t *testing.T, path, sheetName string, rows [][]string) {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	require.NoError(t, err)
	for _, row := range rows {
		r := sheet.AddRow()
		for _, cell := range row {
			r.AddCell().SetString(cell)
		}
	}
	require.NoError(t, f.Save(path))
}

func naicsFixture(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "codes.xlsx")
	writeWorkbook(t, path, "2022 NAICS", [][]string{
		{"Seq. No.", "2022 NAICS Code", "2022 NAICS Title"},
		{"1", "11", "Agriculture, Forestry, Fishing and Hunting"},
		{"2", "812320", "Drycleaning and Laundry Services"},
	})
	return path
}

func TestReadXLSX(t *testing.T) {
	path := naicsFixture(t, t.TempDir())

	rows, err := ReadXLSX(path, XLSXOptions{SkipRows: 1})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "812320", rows[1][1])
	assert.Equal(t, "Drycleaning and Laundry Services", rows[1][2])
}

func TestReadXLSX_HeaderChannel(t *testing.T) {
	path := naicsFixture(t, t.TempDir())

	headerCh := make(chan []string, 1)
	rows, err := ReadXLSX(path, XLSXOptions{SkipRows: 1, HeaderCh: headerCh})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	header := <-headerCh
	assert.Equal(t, "2022 NAICS Code", header[1])
}

func TestReadXLSX_NoSkip(t *testing.T) {
	path := naicsFixture(t, t.TempDir())

	rows, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Seq. No.", rows[0][0])
}

func TestReadXLSX_SheetByName(t *testing.T) {
	path := naicsFixture(t, t.TempDir())

	rows, err := ReadXLSX(path, XLSXOptions{SheetName: "2022 NAICS"})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestReadXLSX_SheetNameNotFound(t *testing.T) {
	path := naicsFixture(t, t.TempDir())

	_, err := ReadXLSX(path, XLSXOptions{SheetName: "2017 NAICS"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReadXLSX_SheetIndexOutOfRange(t *testing.T) {
	path := naicsFixture(t, t.TempDir())

	_, err := ReadXLSX(path, XLSXOptions{SheetIndex: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestReadXLSX_MissingFile(t *testing.T) {
	_, err := ReadXLSX(filepath.Join(t.TempDir(), "nope.xlsx"), XLSXOptions{})
	require.Error(t, err)
}
