package dataset

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactETag(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "whd.csv")

	t.Run("no artifact", func(t *testing.T) {
		assert.Empty(t, artifactETag(artifact))
	})

	t.Run("artifact without sidecar", func(t *testing.T) {
		require.NoError(t, os.WriteFile(artifact, []byte("x\n"), 0o644))
		assert.Empty(t, artifactETag(artifact))
	})

	t.Run("roundtrip", func(t *testing.T) {
		recordArtifactETag(artifact, `"v1"`)
		assert.Equal(t, `"v1"`, artifactETag(artifact))
	})

	t.Run("empty etag clears sidecar", func(t *testing.T) {
		recordArtifactETag(artifact, "")
		assert.Empty(t, artifactETag(artifact))
		_, err := os.Stat(artifact + ".etag")
		assert.True(t, os.IsNotExist(err))
	})
}

func TestFetchArchive_WritesBody(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "archive.zip")
	artifact := filepath.Join(dir, "whd.csv")

	f := &mockFetcher{}
	f.On("DownloadIfChanged", context.Background(), "https://example.test/x.zip", "").
		Return(io.NopCloser(bytes.NewReader([]byte("payload"))), `"v2"`, true, nil)

	etag, changed, err := fetchArchive(context.Background(), f, "https://example.test/x.zip", dest, artifact)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, `"v2"`, etag)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	f.AssertExpectations(t)
}

func TestFetchArchive_Unchanged(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "whd.csv")
	require.NoError(t, os.WriteFile(artifact, []byte("a\n1\n"), 0o644))
	recordArtifactETag(artifact, `"v1"`)

	f := &mockFetcher{}
	mockArchiveUnchanged(f, `"v1"`)

	_, changed, err := fetchArchive(context.Background(), f, "https://example.test/x.zip", filepath.Join(dir, "archive.zip"), artifact)
	require.NoError(t, err)
	assert.False(t, changed)
	f.AssertExpectations(t)
}

func TestCountArtifactRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "whd.csv")
	require.NoError(t, os.WriteFile(path, []byte("case_id,trade_nm\n1,acme\n2,zebra\n"), 0o644))

	n, err := countArtifactRows(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	n, err = countArtifactRows(path)
	require.NoError(t, err)
	assert.Zero(t, n)
}
