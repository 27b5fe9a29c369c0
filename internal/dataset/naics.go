package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lbd-works/gazetteer-cli/internal/fetcher"
)

const naicsURL = "https://www.census.gov/naics/2022NAICS/2-6%20digit_2022_Codes.xlsx"

// NAICS fetches the Census 2-6 digit NAICS code/title reference table.
type NAICS struct{}

func (d *NAICS) Name() string     { return "naics" }
func (d *NAICS) File() string     { return "naics.csv" }
func (d *NAICS) Cadence() Cadence { return Annual }

func (d *NAICS) ShouldRun(now time.Time, lastFetch *time.Time) bool {
	return AnnualAfter(now, lastFetch, time.February)
}

func (d *NAICS) Fetch(ctx context.Context, f fetcher.Fetcher, dataDir string) (*FetchResult, error) {
	log := zap.L().With(zap.String("dataset", d.Name()))

	tempDir, err := os.MkdirTemp("", "naics")
	if err != nil {
		return nil, eris.Wrap(err, "naics: create temp dir")
	}
	defer os.RemoveAll(tempDir)

	xlsxPath := filepath.Join(tempDir, "naics_codes.xlsx")
	if _, err := f.DownloadToFile(ctx, naicsURL, xlsxPath); err != nil {
		return nil, eris.Wrap(err, "naics: download")
	}

	raw, err := fetcher.ReadXLSX(xlsxPath, fetcher.XLSXOptions{SkipRows: 1})
	if err != nil {
		return nil, eris.Wrap(err, "naics: read xlsx")
	}

	// Sheet layout: sequence number, code, title, trailing footnote columns.
	// Codes can be ranges like "31-33" at the sector level; keep them as-is.
	var rows [][]string
	for _, r := range raw {
		if len(r) < 3 {
			continue
		}
		code := strings.TrimSpace(r[1])
		title := strings.TrimSuffix(strings.TrimSpace(r[2]), "T")
		title = strings.TrimSpace(title)
		if code == "" || title == "" {
			continue
		}
		rows = append(rows, []string{code, title})
	}
	if len(rows) == 0 {
		return nil, eris.New("naics: no code rows in workbook")
	}

	outPath := filepath.Join(dataDir, d.File())
	if err := writeCSVAtomic(outPath, []string{"naics_code", "naics_title"}, rows); err != nil {
		return nil, err
	}

	log.Info("artifact written", zap.String("path", outPath), zap.Int("rows", len(rows)))
	return &FetchResult{
		Path:     outPath,
		Rows:     int64(len(rows)),
		Metadata: map[string]any{"source": naicsURL},
	}, nil
}
