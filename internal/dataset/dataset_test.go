package dataset

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// createTestZip creates a ZIP file at dir/zipName containing a single file
// csvName with the given csvContent. Returns the full path to the ZIP.
func createTestZip(t *testing.T, dir, zipName, csvName, csvContent string) string {
	t.Helper()
	zipPath := filepath.Join(dir, zipName)
	zf, err := os.Create(zipPath)
	require.NoError(t, err)
	w := zip.NewWriter(zf)
	f, err := w.Create(csvName)
	require.NoError(t, err)
	_, err = f.Write([]byte(csvContent))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, zf.Close())
	return zipPath
}

// mockArchiveDownload sets up a DownloadIfChanged expectation that serves a
// pre-built file with the given ETag.
func mockArchiveDownload(t *testing.T, f *mockFetcher, srcPath, etag string) {
	t.Helper()
	data, err := os.ReadFile(srcPath)
	require.NoError(t, err)
	f.On("DownloadIfChanged", mock.Anything, mock.Anything, mock.Anything).
		Return(io.NopCloser(bytes.NewReader(data)), etag, true, nil)
}

// mockArchiveUnchanged sets up DownloadIfChanged to answer that the body
// behind the given ETag has not changed.
func mockArchiveUnchanged(f *mockFetcher, etag string) {
	f.On("DownloadIfChanged", mock.Anything, mock.Anything, etag).
		Return(nil, etag, false, nil)
}

// mockDownloadToFile sets up a DownloadToFile expectation that copies a
// pre-built file to whatever destination path the caller requests.
func mockDownloadToFile(f *mockFetcher, srcPath string) {
	f.On("DownloadToFile", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			destPath := args.String(2)
			data, err := os.ReadFile(srcPath)
			if err != nil {
				panic(fmt.Sprintf("mockDownloadToFile: ReadFile %s: %v", srcPath, err))
			}
			if err := os.WriteFile(destPath, data, 0644); err != nil {
				panic(fmt.Sprintf("mockDownloadToFile: WriteFile %s: %v", destPath, err))
			}
		}).
		Return(int64(1000), nil)
}
