// Package pipeline drives the build stage: it consumes job identifiers
// from the work queue, materializes each job's source tree, runs the
// build, and republishes the output for the content tier.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/franksops/goship/engine"
	"github.com/franksops/goship/provider"
	"github.com/franksops/goship/queue"
	"github.com/franksops/goship/store"
)

const (
	// ErrorPause throttles the consumer loop after any per-job error
	// so a persistently failing job can't spin it tight.
	ErrorPause = 5 * time.Second

	// DeployIDFormat derives the deployment identifier from the
	// publication wall-clock time.
	DeployIDFormat = "20060102T150405Z"

	deploymentsPrefix = "deployments"
	distPrefix        = "dist"
)

// StatusSetter records the terminal label for a job in the shared
// status store.
type StatusSetter interface {
	Set(jobID, label string) error
}

// Status labels written by the orchestrator. They mirror the status
// package constants; the local copies keep this package testable with
// a plain fake.
const (
	statusDeployed = "deployed"
	statusFailed   = "failed"
)

// Orchestrator is the long-running queue consumer. One instance
// processes jobs strictly one at a time; horizontal scaling is more
// processes popping the same queue.
type Orchestrator struct {
	broker  queue.Broker
	remote  provider.Provider
	workDir string

	runner   BuildRunner
	outDir   string
	streams  int
	statuses StatusSetter
	history  store.Store

	pause time.Duration
	log   *slog.Logger

	mu      sync.Mutex
	current string
}

// Options configures an Orchestrator.
type Options struct {
	// Broker delivers job identifiers.
	Broker queue.Broker
	// Remote is the object store holding source trees and receiving
	// published output.
	Remote provider.Provider
	// WorkDir is the local scratch root; each job gets a directory
	// named by its identifier.
	WorkDir string
	// Runner executes the build step.
	Runner BuildRunner
	// OutputDir is the build-output subdirectory expected after a
	// successful build, relative to the job directory.
	OutputDir string
	// TransferStreams bounds each sync's parallelism; defaults to
	// engine.DefaultTransferStreams.
	TransferStreams int
	// Statuses records terminal labels.
	Statuses StatusSetter
	// History is the worker-local build history; optional.
	History store.Store
	// Pause overrides ErrorPause; used by tests.
	Pause time.Duration
	// Log is the structured logger; defaults to slog.Default.
	Log *slog.Logger
}

// New creates an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Broker == nil {
		return nil, fmt.Errorf("pipeline: broker is required")
	}
	if opts.Remote == nil {
		return nil, fmt.Errorf("pipeline: remote provider is required")
	}
	if opts.Runner == nil {
		return nil, fmt.Errorf("pipeline: build runner is required")
	}
	if opts.Statuses == nil {
		return nil, fmt.Errorf("pipeline: status setter is required")
	}
	if opts.WorkDir == "" {
		return nil, fmt.Errorf("pipeline: work dir is required")
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "output"
	}
	if opts.TransferStreams <= 0 {
		opts.TransferStreams = engine.DefaultTransferStreams
	}
	if opts.Pause <= 0 {
		opts.Pause = ErrorPause
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	return &Orchestrator{
		broker:   opts.Broker,
		remote:   opts.Remote,
		workDir:  opts.WorkDir,
		runner:   opts.Runner,
		outDir:   opts.OutputDir,
		streams:  opts.TransferStreams,
		statuses: opts.Statuses,
		history:  opts.History,
		pause:    opts.Pause,
		log:      opts.Log,
	}, nil
}

// CurrentJob returns the identifier of the job being processed, or ""
// when the orchestrator is idle. The janitor uses it to leave the
// active job's directory alone.
func (o *Orchestrator) CurrentJob() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

func (o *Orchestrator) setCurrent(id string) {
	o.mu.Lock()
	o.current = id
	o.mu.Unlock()
}

// Run consumes jobs until ctx is cancelled. Per-job errors are logged
// and followed by a fixed pause; they never crash the loop.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		if err := o.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, queue.ErrClosed) {
				return err
			}
			o.log.Error("job failed", slog.String("error", err.Error()))
			if !o.sleep(ctx) {
				return ctx.Err()
			}
		}
	}
}

// RunOnce blocks for the next job and processes it to completion.
// Exposed so tests can drive single iterations.
func (o *Orchestrator) RunOnce(ctx context.Context) error {
	jobID, err := o.broker.Pop(ctx)
	if err != nil {
		return err
	}

	o.setCurrent(jobID)
	defer o.setCurrent("")

	o.log.Info("job received", slog.String("job", jobID))

	if err := o.process(ctx, jobID); err != nil {
		o.recordFailure(jobID, err)
		return fmt.Errorf("job %s: %w", jobID, err)
	}
	return nil
}

func (o *Orchestrator) process(ctx context.Context, jobID string) error {
	started := time.Now().UTC()
	o.saveHistory(&store.BuildRecord{
		JobID:     jobID,
		State:     store.StateBuilding,
		StartedAt: started,
	})

	local := provider.NewLocalProvider(o.workDir)

	// Materialize the source tree: remote <jobID>/ down to the job's
	// working directory.
	down := engine.NewSyncer(o.remote, local, engine.WithLogger(o.log), engine.WithStreams(o.streams))
	if err := down.Sync(ctx, jobID, jobID); err != nil {
		return fmt.Errorf("fetch source: %w", err)
	}

	buildDir := filepath.Join(o.workDir, jobID)
	if err := o.runner.Run(ctx, buildDir); err != nil {
		return err
	}

	// Exit code 0 alone isn't success; the build must have produced
	// the expected output subdirectory.
	outputPath := filepath.Join(buildDir, o.outDir)
	stat, err := os.Stat(outputPath)
	if err != nil || !stat.IsDir() {
		return fmt.Errorf("build produced no %s directory in %s", o.outDir, buildDir)
	}

	deployID := time.Now().UTC().Format(DeployIDFormat)
	outputRel := filepath.Join(jobID, o.outDir)

	up := engine.NewSyncer(local, o.remote, engine.WithLogger(o.log), engine.WithStreams(o.streams))
	if err := up.Sync(ctx, outputRel, path.Join(deploymentsPrefix, jobID, deployID)); err != nil {
		return fmt.Errorf("publish deployment: %w", err)
	}
	// Refresh the live copy the content server reads from.
	if err := up.Sync(ctx, outputRel, path.Join(distPrefix, jobID)); err != nil {
		return fmt.Errorf("publish live copy: %w", err)
	}

	if err := o.statuses.Set(jobID, statusDeployed); err != nil {
		return fmt.Errorf("record status: %w", err)
	}

	o.saveHistory(&store.BuildRecord{
		JobID:      jobID,
		State:      store.StateDeployed,
		DeployID:   deployID,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	})

	o.log.Info("job deployed",
		slog.String("job", jobID),
		slog.String("deploy", deployID),
		slog.Duration("took", time.Since(started)))
	return nil
}

// recordFailure marks the job failed in both stores. Failures here are
// logged and dropped; the job error itself is what propagates.
func (o *Orchestrator) recordFailure(jobID string, cause error) {
	if err := o.statuses.Set(jobID, statusFailed); err != nil {
		o.log.Error("failed to record status", slog.String("job", jobID), slog.String("error", err.Error()))
	}
	o.saveHistory(&store.BuildRecord{
		JobID:      jobID,
		State:      store.StateFailed,
		FinishedAt: time.Now().UTC(),
		Error:      cause.Error(),
	})
}

func (o *Orchestrator) saveHistory(rec *store.BuildRecord) {
	if o.history == nil {
		return
	}
	if err := o.history.SaveBuild(rec); err != nil {
		o.log.Error("failed to save build history", slog.String("job", rec.JobID), slog.String("error", err.Error()))
	}
}

// sleep waits out the error pause, returning false if ctx ended first.
func (o *Orchestrator) sleep(ctx context.Context) bool {
	timer := time.NewTimer(o.pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
