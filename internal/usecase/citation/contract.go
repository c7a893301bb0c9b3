package citation

import (
	"context"
	"io"
)

// ContentFetcher reads cited documents from the hosted file store.
type ContentFetcher interface {
	FetchFileContent(ctx context.Context, fileID string) (io.ReadCloser, error)
	FetchFileName(ctx context.Context, fileID string) (string, error)
}
