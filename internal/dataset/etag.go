package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/lbd-works/gazetteer-cli/internal/fetcher"
)

// artifactETag reads the upstream ETag recorded beside an artifact. Returns
// "" when either the artifact or its sidecar is missing, which forces a full
// download.
func artifactETag(artifactPath string) string {
	if _, err := os.Stat(artifactPath); err != nil {
		return ""
	}
	b, err := os.ReadFile(artifactPath + ".etag")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// recordArtifactETag stores the upstream ETag beside a finalized artifact.
// Best effort: a missing sidecar only costs a re-download on the next run.
func recordArtifactETag(artifactPath, etag string) {
	if etag == "" {
		os.Remove(artifactPath + ".etag")
		return
	}
	_ = os.WriteFile(artifactPath+".etag", []byte(etag+"\n"), 0o644)
}

// fetchArchive downloads url to dest with a conditional GET against the ETag
// recorded for artifactPath. Reports changed=false when upstream still serves
// the same body and the existing artifact can be kept as-is.
func fetchArchive(ctx context.Context, f fetcher.Fetcher, url, dest, artifactPath string) (string, bool, error) {
	body, etag, changed, err := f.DownloadIfChanged(ctx, url, artifactETag(artifactPath))
	if err != nil {
		return "", false, err
	}
	if !changed {
		return etag, false, nil
	}
	defer body.Close()

	out, err := os.Create(dest)
	if err != nil {
		return "", false, eris.Wrap(err, "dataset: create archive file")
	}
	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		return "", false, eris.Wrap(err, "dataset: write archive file")
	}
	if err := out.Close(); err != nil {
		return "", false, eris.Wrap(err, "dataset: close archive file")
	}
	return etag, true, nil
}

// countArtifactRows counts the data rows in an existing CSV artifact.
func countArtifactRows(path string) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, eris.Wrapf(err, "dataset: open artifact %s", path)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	var n int64
	for {
		if _, err := r.Read(); err != nil {
			if err == io.EOF {
				break
			}
			return 0, eris.Wrapf(err, "dataset: read artifact %s", path)
		}
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return n - 1, nil // minus header
}
