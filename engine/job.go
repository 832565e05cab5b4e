package engine

import (
	"github.com/franksops/goship/provider"
)

// TransferJob represents a single file transfer from a source provider
// path to a destination provider path.
type TransferJob struct {
	// SourcePath is the file path to read from the source provider.
	SourcePath string

	// DestinationPath is the path to write on the destination provider.
	// Always uses forward slashes so it can double as an object key.
	DestinationPath string

	// FileInfo holds the metadata of the source file.
	FileInfo provider.FileInfo
}

// JobChannel queues TransferJobs for the worker pool.
type JobChannel chan TransferJob
