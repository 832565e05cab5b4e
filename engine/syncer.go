package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/franksops/goship/provider"
)

// Syncer transfers a full directory tree between two Providers with
// bounded parallelism and aggregate progress reporting. The same type
// serves both directions: upload is local→S3, download is S3→local.
//
// A Syncer owns its Stats instance exclusively; do not share one
// Syncer across concurrent Sync calls.
type Syncer struct {
	src provider.Provider
	dst provider.Provider

	stats   *Stats
	report  Reporter
	buffers *BufferPool

	streams  int
	interval time.Duration
	log      *slog.Logger
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithReporter installs a progress observer.
func WithReporter(r Reporter) SyncerOption {
	return func(s *Syncer) { s.report = r }
}

// WithStreams overrides the transfer concurrency bound.
func WithStreams(n int) SyncerOption {
	return func(s *Syncer) { s.streams = n }
}

// WithReportInterval overrides the progress throttle interval.
func WithReportInterval(d time.Duration) SyncerOption {
	return func(s *Syncer) { s.interval = d }
}

// WithLogger installs a structured logger for per-file diagnostics.
func WithLogger(l *slog.Logger) SyncerOption {
	return func(s *Syncer) { s.log = l }
}

// NewSyncer creates a Syncer from src to dst.
func NewSyncer(src, dst provider.Provider, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		src:      src,
		dst:      dst,
		stats:    NewStats(),
		buffers:  NewBufferPool(0),
		streams:  DefaultTransferStreams,
		interval: DefaultReportInterval,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats exposes the tracker so callers can sample progress directly.
func (s *Syncer) Stats() *Stats {
	return s.stats
}

// Sync transfers every file under source to destPrefix. It first
// measures the whole tree so progress percentages are meaningful from
// the first sample, then streams files through a fixed-width worker
// pool. The first file failure aborts the operation: no further
// transfers are admitted and the error names the failing path.
func (s *Syncer) Sync(ctx context.Context, source, destPrefix string) error {
	s.stats.Reset()

	walker := NewWalker(s.src)

	// Statistics pass. Must complete before any transfer work begins.
	files, bytes, err := walker.Measure(ctx, source)
	if err != nil {
		return fmt.Errorf("enumerate %s: %w", source, err)
	}
	s.stats.AddPending(files, bytes)

	s.log.Debug("sync measured",
		slog.String("source", source),
		slog.Int64("files", files),
		slog.Int64("bytes", bytes))

	// Transfer pass.
	jobChan := make(JobChannel, s.streams*2)
	pool := NewWorkerPool(ctx, jobChan, s.transferFile)
	pool.Start(s.streams)

	walkErr := make(chan error, 1)
	go func() {
		defer close(jobChan)
		// The walker shares the pool's context so a failing transfer
		// also stops enumeration instead of blocking on a full channel.
		walkErr <- walker.Walk(pool.Context(), source, destPrefix, jobChan)
	}()

	poolErr := pool.Wait()
	enumErr := <-walkErr

	if s.report != nil {
		s.report(s.stats.Snapshot())
	}

	if poolErr != nil {
		return poolErr
	}
	// Workers drain without error when the parent context is cancelled,
	// so a partial transfer must be surfaced from the context itself.
	if err := ctx.Err(); err != nil {
		return err
	}
	if enumErr != nil {
		return fmt.Errorf("enumerate %s: %w", source, enumErr)
	}
	return nil
}

// transferFile streams one file from src to dst, accounting its size
// into the tracker on completion.
func (s *Syncer) transferFile(ctx context.Context, job TransferJob) error {
	srcReader, err := s.src.OpenRead(ctx, job.SourcePath)
	if err != nil {
		return fmt.Errorf("transfer %s: open source: %w", job.SourcePath, err)
	}
	defer srcReader.Close()

	reader := NewChecksumReader(srcReader)

	dstWriter, err := s.dst.OpenWrite(ctx, job.DestinationPath, job.FileInfo)
	if err != nil {
		return fmt.Errorf("transfer %s: open destination %s: %w", job.SourcePath, job.DestinationPath, err)
	}

	buf := s.buffers.Get()
	_, err = io.CopyBuffer(dstWriter, reader, *buf)
	s.buffers.Put(buf)
	if err != nil {
		dstWriter.Close()
		return fmt.Errorf("transfer %s: %w", job.SourcePath, err)
	}

	if err := dstWriter.Close(); err != nil {
		return fmt.Errorf("transfer %s: close destination: %w", job.SourcePath, err)
	}

	s.stats.FileDone(reader.BytesRead())

	s.log.Debug("file transferred",
		slog.String("source", job.SourcePath),
		slog.String("dest", job.DestinationPath),
		slog.Int64("bytes", reader.BytesRead()),
		slog.Uint64("crc64", reader.Checksum()))

	if p, ok := s.stats.MaybeReport(s.interval); ok && s.report != nil {
		s.report(p)
	}

	return nil
}
