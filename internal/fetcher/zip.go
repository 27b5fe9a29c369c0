package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractZIPSingle extracts the payload of an archive that holds exactly one
// file, which is how the enforcement portals package their CSV extracts.
// Returns the extracted file path.
func ExtractZIPSingle(zipPath, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrapf(err, "zip: open %s", zipPath)
	}
	defer r.Close() //nolint:errcheck

	var payload *zip.File
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if payload != nil {
			return "", eris.Errorf("zip: %s holds more than one file", zipPath)
		}
		payload = f
	}
	if payload == nil {
		return "", eris.Errorf("zip: %s holds no files", zipPath)
	}

	return writeEntry(payload, destDir)
}

// ExtractZIPFile extracts the named file from an archive.
func ExtractZIPFile(zipPath, fileName, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrapf(err, "zip: open %s", zipPath)
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.Name == fileName {
			return writeEntry(f, destDir)
		}
	}
	return "", eris.Errorf("zip: %q not found in %s", fileName, zipPath)
}

// writeEntry extracts one archive member below destDir, rejecting entry
// names that would escape it.
func writeEntry(f *zip.File, destDir string) (string, error) {
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: entry %q escapes destination", f.Name)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "zip: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "zip: write file")
	}

	return destPath, nil
}
