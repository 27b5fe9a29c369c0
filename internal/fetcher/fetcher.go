package fetcher

import (
	"context"
	"io"
)

// Fetcher retrieves raw dataset extracts from a remote source.
type Fetcher interface {
	// Download fetches url and returns the response body for streaming.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches url into path and reports bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)

	// HeadETag issues a HEAD request and returns the ETag header value.
	HeadETag(ctx context.Context, url string) (string, error)

	// DownloadIfChanged fetches url only when its ETag differs from etag.
	// Returns (body, newETag, changed, error); body is nil when unchanged.
	DownloadIfChanged(ctx context.Context, url string, etag string) (io.ReadCloser, string, bool, error)
}
