package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lbd-works/gazetteer-cli/internal/config"
	"github.com/lbd-works/gazetteer-cli/internal/fetcher"
)

const whdURL = "https://enforcedata.dol.gov/data_catalog/WHD/whd_whisard.csv.zip"

// whdColumns is the projection pushed into the artifact, in output order.
// The WHISARD extract carries a few hundred columns; only these matter to
// the matcher and its downstream consumers.
var whdColumns = []string{
	"case_id",
	"trade_nm",
	"legal_name",
	"street_addr_1_txt",
	"cty_nm",
	"st_cd",
	"zip_cd",
	"naic_cd",
	"findings_start_date",
	"findings_end_date",
}

// WHD fetches the Wage and Hour Division WHISARD case extract.
type WHD struct {
	cfg *config.Config
}

func (d *WHD) Name() string     { return "whd" }
func (d *WHD) File() string     { return "whd.csv" }
func (d *WHD) Cadence() Cadence { return Quarterly }

func (d *WHD) ShouldRun(now time.Time, lastFetch *time.Time) bool {
	return QuarterlyWithLag(now, lastFetch, 1)
}

func (d *WHD) Fetch(ctx context.Context, f fetcher.Fetcher, dataDir string) (*FetchResult, error) {
	log := zap.L().With(zap.String("dataset", d.Name()))

	tempDir, err := os.MkdirTemp("", "whd")
	if err != nil {
		return nil, eris.Wrap(err, "whd: create temp dir")
	}
	defer os.RemoveAll(tempDir)

	zipPath := filepath.Join(tempDir, "whd_whisard.csv.zip")
	outPath := filepath.Join(dataDir, d.File())
	source := whdURL
	etag, changed, err := fetchArchive(ctx, f, whdURL, zipPath, outPath)
	if err != nil {
		mirror := d.mirrorURL()
		if mirror == "" {
			return nil, eris.Wrap(err, "whd: download")
		}
		log.Warn("primary download failed, trying FTP mirror",
			zap.String("mirror", mirror), zap.Error(err))
		ftpf := fetcher.NewFTPFetcher(fetcher.FTPOptions{})
		if _, ftpErr := ftpf.DownloadToFile(ctx, mirror, zipPath); ftpErr != nil {
			return nil, eris.Wrap(ftpErr, "whd: download from mirror")
		}
		// The FTP mirror carries no ETag, so the next run downloads in full.
		source, etag, changed = mirror, "", true
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
			Metadata: map[string]any{"source": source, "unchanged": true},
		}, nil
	}

	csvPath, err := fetcher.ExtractZIPSingle(zipPath, tempDir)
	if err != nil {
		return nil, eris.Wrap(err, "whd: extract zip")
	}

	rows, err := projectCSV(ctx, d.Name(), csvPath, whdColumns)
	if err != nil {
		return nil, err
	}

	if err := writeCSVAtomic(outPath, whdColumns, rows); err != nil {
		return nil, err
	}
	recordArtifactETag(outPath, etag)

	log.Info("artifact written", zap.String("path", outPath), zap.Int("rows", len(rows)))
	return &FetchResult{
		Path:     outPath,
		Rows:     int64(len(rows)),
		Metadata: map[string]any{"source": source},
	}, nil
}

// mirrorURL builds the FTP mirror URL for the WHISARD zip, or "" when no
// mirror is configured.
func (d *WHD) mirrorURL() string {
	if d.cfg == nil || d.cfg.Fetch.FTPMirror == "" {
		return ""
	}
	return strings.TrimRight(d.cfg.Fetch.FTPMirror, "/") + "/whd_whisard.csv.zip"
}

// projectCSV streams the extracted upstream CSV and projects it onto the
// given columns, lowercasing every field on the way through.
func projectCSV(ctx context.Context, name, path string, columns []string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: open csv", name)
	}
	defer file.Close()

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, file, fetcher.CSVOptions{
		HasHeader:  true,
		HeaderCh:   headerCh,
		LazyQuotes: true,
	})

	var raw [][]string
	for row := range rowCh {
		raw = append(raw, row)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrapf(err, "%s: stream csv", name)
	}

	// The header, if one was read, sits buffered in headerCh by now.
	var header []string
	select {
	case header = <-headerCh:
	default:
		return nil, eris.Errorf("%s: upstream file is empty", name)
	}

	idx, err := columnIndexes(name, header, columns)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(raw))
	for _, row := range raw {
		out := make([]string, len(idx))
		for i, j := range idx {
			out[i] = cleanField(getCol(row, j))
		}
		rows = append(rows, out)
	}
	return rows, nil
}
