package dataset

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lbd-works/gazetteer-cli/internal/fetcher"
)

const oshaURL = "https://enforcedata.dol.gov/data_catalog/OSHA/osha_inspection.csv.zip"

// oshaColumns is the inspection-record projection used when linking OSHA
// activity against the canonical establishment table.
var oshaColumns = []string{
	"activity_nr",
	"estab_name",
	"site_address",
	"site_city",
	"site_state",
	"site_zip",
	"naics_code",
	"open_date",
}

// OSHA fetches the OSHA inspection extract from the DOL enforcement catalog.
type OSHA struct{}

func (d *OSHA) Name() string     { return "osha" }
func (d *OSHA) File() string     { return "osha.csv" }
func (d *OSHA) Cadence() Cadence { return Monthly }

func (d *OSHA) ShouldRun(now time.Time, lastFetch *time.Time) bool {
	return MonthlySchedule(now, lastFetch)
}

func (d *OSHA) Fetch(ctx context.Context, f fetcher.Fetcher, dataDir string) (*FetchResult, error) {
	log := zap.L().With(zap.String("dataset", d.Name()))

	tempDir, err := os.MkdirTemp("", "osha")
	if err != nil {
		return nil, eris.Wrap(err, "osha: create temp dir")
	}
	defer os.RemoveAll(tempDir)

	zipPath := filepath.Join(tempDir, "osha_inspection.csv.zip")
	outPath := filepath.Join(dataDir, d.File())
	etag, changed, err := fetchArchive(ctx, f, oshaURL, zipPath, outPath)
	if err != nil {
		return nil, eris.Wrap(err, "osha: download")
	}
	if !changed {
		rowCount, err := countArtifactRows(outPath)
		if err != nil {
			return nil, err
		}
		log.Info("artifact unchanged upstream", zap.String("path", outPath))
		return &FetchResult{
			Path:     outPath,
			Rows:     rowCount,
			Metadata: map[string]any{"source": oshaURL, "unchanged": true},
		}, nil
	}

	csvPath, err := fetcher.ExtractZIPSingle(zipPath, tempDir)
	if err != nil {
		return nil, eris.Wrap(err, "osha: extract zip")
	}

	rows, err := projectCSV(ctx, d.Name(), csvPath, oshaColumns)
	if err != nil {
		return nil, err
	}

	if err := writeCSVAtomic(outPath, oshaColumns, rows); err != nil {
		return nil, err
	}
	recordArtifactETag(outPath, etag)

	log.Info("artifact written", zap.String("path", outPath), zap.Int("rows", len(rows)))
	return &FetchResult{
		Path:     outPath,
		Rows:     int64(len(rows)),
		Metadata: map[string]any{"source": oshaURL},
	}, nil
}
