package dataset

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createNAICSWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("2-6 digit codes")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "naics.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestNAICS_Metadata(t *testing.T) {
	d := &NAICS{}
	assert.Equal(t, "naics", d.Name())
	assert.Equal(t, "naics.csv", d.File())
	assert.Equal(t, Annual, d.Cadence())
}

func TestNAICS_ShouldRun(t *testing.T) {
	d := &NAICS{}

	t.Run("never fetched", func(t *testing.T) {
		assert.True(t, d.ShouldRun(time.Now(), nil))
	})

	t.Run("fetched this year after release", func(t *testing.T) {
		now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
		last := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
		assert.False(t, d.ShouldRun(now, &last))
	})

	t.Run("fetched last year", func(t *testing.T) {
		now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
		last := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
		assert.True(t, d.ShouldRun(now, &last))
	})
}

func TestNAICS_Fetch(t *testing.T) {
	xlsxPath := createNAICSWorkbook(t, [][]string{
		{"Seq. No.", "2022 NAICS US   Code", "2022 NAICS US Title"},
		{"1", "11", "Agriculture, Forestry, Fishing and HuntingT"},
		{"2", "111", "Crop ProductionT"},
		{"", "", ""},
		{"3", "812320", "Drycleaning and Laundry Services (except Coin-Operated)"},
	})

	f := &mockFetcher{}
	mockDownloadToFile(f, xlsxPath)

	dataDir := t.TempDir()
	d := &NAICS{}
	result, err := d.Fetch(context.Background(), f, dataDir)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Rows)

	file, err := os.Open(result.Path)
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, []string{"naics_code", "naics_title"}, rows[0])
	// Trailing footnote marker stripped from titles.
	assert.Equal(t, []string{"11", "Agriculture, Forestry, Fishing and Hunting"}, rows[1])
	assert.Equal(t, []string{"812320", "Drycleaning and Laundry Services (except Coin-Operated)"}, rows[3])
	f.AssertExpectations(t)
}

func TestNAICS_Fetch_EmptyWorkbook(t *testing.T) {
	xlsxPath := createNAICSWorkbook(t, [][]string{
		{"Seq. No.", "Code", "Title"},
	})

	f := &mockFetcher{}
	mockDownloadToFile(f, xlsxPath)

	d := &NAICS{}
	_, err := d.Fetch(context.Background(), f, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no code rows")
}
