package dataset

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// --- Fetcher Mock ---

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *mockFetcher) DownloadToFile(ctx context.Context, url string, path string) (int64, error) {
	args := m.Called(ctx, url, path)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockFetcher) HeadETag(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

func (m *mockFetcher) DownloadIfChanged(ctx context.Context, url string, etag string) (io.ReadCloser, string, bool, error) {
	args := m.Called(ctx, url, etag)
	var body io.ReadCloser
	if args.Get(0) != nil {
		body = args.Get(0).(io.ReadCloser)
	}
	return body, args.String(1), args.Bool(2), args.Error(3)
}
