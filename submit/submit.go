// Package submit accepts repository URLs and turns them into queued
// build jobs: clone, upload the tree to object storage under a fresh
// job identifier, enqueue the identifier.
package submit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/google/uuid"

	"github.com/franksops/goship/engine"
	"github.com/franksops/goship/provider"
	"github.com/franksops/goship/queue"
)

// Cloner fetches a repository into a local directory.
type Cloner interface {
	Clone(ctx context.Context, url, dir string) error
}

// GoGitCloner clones over the wire with go-git.
type GoGitCloner struct{}

// Clone performs a shallow clone of url into dir.
func (GoGitCloner) Clone(ctx context.Context, url, dir string) error {
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:   url,
		Depth: 1,
	})
	if err != nil {
		return fmt.Errorf("clone %s: %w", url, err)
	}
	return nil
}

// Receipt is returned to the submitter.
type Receipt struct {
	JobID            string `json:"id"`
	ProcessingTimeMS int64  `json:"processingTimeMs"`
}

// Handler drives one submission end to end.
type Handler struct {
	cloner  Cloner
	remote  provider.Provider
	broker  queue.Broker
	workDir string
	log     *slog.Logger
}

// NewHandler creates a Handler. workDir is the local scratch root for
// clones; each submission gets a directory named by its job id.
func NewHandler(cloner Cloner, remote provider.Provider, broker queue.Broker, workDir string, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		cloner:  cloner,
		remote:  remote,
		broker:  broker,
		workDir: workDir,
		log:     log,
	}
}

// Submit clones repoURL, uploads the tree under a fresh job id, and
// enqueues the id. There is no rollback: a failure midway can leave a
// partial upload behind, which the fresh-id-per-submission scheme
// makes harmless.
func (h *Handler) Submit(ctx context.Context, repoURL string) (Receipt, error) {
	start := time.Now()
	jobID := uuid.NewString()

	dir := filepath.Join(h.workDir, jobID)
	if err := h.cloner.Clone(ctx, repoURL, dir); err != nil {
		return Receipt{}, fmt.Errorf("submit: %w", err)
	}

	// The worker builds from the tree, not the history.
	if err := os.RemoveAll(filepath.Join(dir, ".git")); err != nil {
		return Receipt{}, fmt.Errorf("submit: strip repository metadata: %w", err)
	}

	local := provider.NewLocalProvider(h.workDir)
	up := engine.NewSyncer(local, h.remote, engine.WithLogger(h.log))
	if err := up.Sync(ctx, jobID, jobID); err != nil {
		return Receipt{}, fmt.Errorf("submit: upload source: %w", err)
	}

	if err := h.broker.Push(ctx, jobID); err != nil {
		return Receipt{}, fmt.Errorf("submit: enqueue: %w", err)
	}

	elapsed := time.Since(start)
	h.log.Info("job submitted",
		slog.String("job", jobID),
		slog.String("repo", repoURL),
		slog.Duration("took", elapsed))

	return Receipt{
		JobID:            jobID,
		ProcessingTimeMS: elapsed.Milliseconds(),
	}, nil
}
