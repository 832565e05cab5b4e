package engine

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultReportInterval throttles progress emission: at most one
// observation per interval even under bursty completions.
const DefaultReportInterval = 1 * time.Second

// Progress is one observation of an in-flight sync operation.
type Progress struct {
	FilesDone  int64
	TotalFiles int64
	BytesDone  int64
	TotalBytes int64
	Elapsed    time.Duration
}

// Reporter receives progress observations. Implementations log them,
// feed a terminal UI, or drop them.
type Reporter func(Progress)

// Stats accumulates file and byte counts for a single sync operation.
// Totals are filled by the statistics pass before any transfer begins,
// so percentages are meaningful from the first report. One Stats
// instance is owned by exactly one Sync call; counters use atomics
// because pool workers complete files concurrently.
type Stats struct {
	totalFiles atomic.Int64
	totalBytes atomic.Int64
	filesDone  atomic.Int64
	bytesDone  atomic.Int64

	mu         sync.Mutex
	start      time.Time
	lastReport time.Time
}

// NewStats returns a zeroed Stats stamped with the current time.
func NewStats() *Stats {
	s := &Stats{}
	s.Reset()
	return s
}

// Reset zeroes all counters and stamps the start time.
func (s *Stats) Reset() {
	s.totalFiles.Store(0)
	s.totalBytes.Store(0)
	s.filesDone.Store(0)
	s.bytesDone.Store(0)

	s.mu.Lock()
	s.start = time.Now()
	s.lastReport = time.Time{}
	s.mu.Unlock()
}

// AddPending registers files discovered by the statistics pass.
func (s *Stats) AddPending(files, bytes int64) {
	s.totalFiles.Add(files)
	s.totalBytes.Add(bytes)
}

// FileDone records the completion of one file transfer.
func (s *Stats) FileDone(bytes int64) {
	s.filesDone.Add(1)
	s.bytesDone.Add(bytes)
}

// Snapshot returns the current counters as a Progress observation.
func (s *Stats) Snapshot() Progress {
	s.mu.Lock()
	start := s.start
	s.mu.Unlock()

	return Progress{
		FilesDone:  s.filesDone.Load(),
		TotalFiles: s.totalFiles.Load(),
		BytesDone:  s.bytesDone.Load(),
		TotalBytes: s.totalBytes.Load(),
		Elapsed:    time.Since(start),
	}
}

// MaybeReport returns a Progress observation if at least interval has
// elapsed since the last emission, updating the emission timestamp.
// The second return value reports whether an observation was emitted.
func (s *Stats) MaybeReport(interval time.Duration) (Progress, bool) {
	s.mu.Lock()
	now := time.Now()
	if !s.lastReport.IsZero() && now.Sub(s.lastReport) < interval {
		s.mu.Unlock()
		return Progress{}, false
	}
	s.lastReport = now
	start := s.start
	s.mu.Unlock()

	return Progress{
		FilesDone:  s.filesDone.Load(),
		TotalFiles: s.totalFiles.Load(),
		BytesDone:  s.bytesDone.Load(),
		TotalBytes: s.totalBytes.Load(),
		Elapsed:    now.Sub(start),
	}, true
}
