package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
)

// BuildRunner executes the project build over a materialized source
// directory. Implementations must return a non-nil error for any
// non-zero exit.
type BuildRunner interface {
	Run(ctx context.Context, dir string) error
}

// CommandRunner shells out to the configured build command (typically
// a package manager invocation) with the job directory as its working
// directory, streaming stdout and stderr lines to the logger as they
// arrive.
type CommandRunner struct {
	// Command is the argv of the build step, e.g. ["npm", "run", "build"].
	Command []string

	Log *slog.Logger
}

// Run executes the build command in dir.
func (r *CommandRunner) Run(ctx context.Context, dir string) error {
	if len(r.Command) == 0 {
		return fmt.Errorf("build: no command configured")
	}

	log := r.Log
	if log == nil {
		log = slog.Default()
	}

	cmd := exec.CommandContext(ctx, r.Command[0], r.Command[1:]...)
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("build: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("build: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("build: start %q: %w", r.Command[0], err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go streamLines(&wg, stdout, func(line string) {
		log.Info("build output", slog.String("line", line))
	})
	go streamLines(&wg, stderr, func(line string) {
		log.Warn("build output", slog.String("line", line))
	})
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("build: %q in %s: %w", r.Command[0], dir, err)
	}
	return nil
}

func streamLines(wg *sync.WaitGroup, r io.Reader, emit func(string)) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		emit(scanner.Text())
	}
}
