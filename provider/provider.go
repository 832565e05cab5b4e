package provider

import (
	"context"
	"io"
	"time"
)

// FileInfo is the metadata a storage backend reports for a file or a
// directory entry.
type FileInfo interface {
	Name() string
	Size() int64
	IsDir() bool
	ModTime() time.Time
}

// Provider abstracts a storage backend holding a tree of files. The two
// implementations are the local filesystem and an S3 bucket namespace;
// the sync engine moves whole trees between any pair of Providers.
type Provider interface {
	// Stat returns the FileInfo for the given path.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// List returns the immediate children of the given directory.
	// Implementations backed by paginated APIs follow continuation
	// tokens until the listing is complete.
	List(ctx context.Context, path string) ([]FileInfo, error)

	// OpenRead opens a file for streaming reads.
	OpenRead(ctx context.Context, path string) (io.ReadCloser, error)

	// OpenWrite opens a file for streaming writes, creating missing
	// parent directories. Source metadata is applied where the backend
	// supports it (timestamps on local files).
	OpenWrite(ctx context.Context, path string, metadata FileInfo) (io.WriteCloser, error)
}
