// Package janitor prunes stale build directories from the worker's
// scratch space on a cron schedule.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// CurrentJobFunc reports the job the worker is processing right now, or
// "" when idle. The janitor never touches the active job's directory.
type CurrentJobFunc func() string

// Janitor removes entries under WorkDir whose modification time is
// older than MaxAge.
type Janitor struct {
	workDir    string
	maxAge     time.Duration
	currentJob CurrentJobFunc
	log        *slog.Logger
}

// New builds a Janitor. currentJob may be nil when no job tracking is
// available.
func New(workDir string, maxAge time.Duration, currentJob CurrentJobFunc, log *slog.Logger) *Janitor {
	if log == nil {
		log = slog.Default()
	}
	if currentJob == nil {
		currentJob = func() string { return "" }
	}
	return &Janitor{
		workDir:    workDir,
		maxAge:     maxAge,
		currentJob: currentJob,
		log:        log,
	}
}

// Sweep removes every stale entry once and returns how many were
// removed.
func (j *Janitor) Sweep() (int, error) {
	entries, err := os.ReadDir(j.workDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("janitor: read %s: %w", j.workDir, err)
	}

	cutoff := time.Now().Add(-j.maxAge)
	active := j.currentJob()

	removed := 0
	for _, entry := range entries {
		if entry.Name() == active {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(j.workDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			j.log.Warn("janitor: remove failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		removed++
	}

	if removed > 0 {
		j.log.Info("janitor: swept stale builds", slog.Int("removed", removed))
	}
	return removed, nil
}

// Run sweeps on the given cron schedule until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context, schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := j.Sweep(); err != nil {
			j.log.Error("janitor: sweep failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("janitor: schedule %q: %w", schedule, err)
	}

	c.Start()
	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	return nil
}
