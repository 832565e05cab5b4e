package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCommandRunner_Success(t *testing.T) {
	dir := t.TempDir()

	r := &CommandRunner{Command: []string{"sh", "-c", "echo building && mkdir -p output && echo done > output/marker"}}
	if err := r.Run(context.Background(), dir); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "output", "marker")); err != nil {
		t.Errorf("build did not run in the job directory: %v", err)
	}
}

func TestCommandRunner_NonZeroExit(t *testing.T) {
	r := &CommandRunner{Command: []string{"sh", "-c", "echo broken >&2; exit 1"}}
	if err := r.Run(context.Background(), t.TempDir()); err == nil {
		t.Fatal("expected an error for non-zero exit")
	}
}

func TestCommandRunner_NoCommand(t *testing.T) {
	r := &CommandRunner{}
	if err := r.Run(context.Background(), t.TempDir()); err == nil {
		t.Fatal("expected an error when no command is configured")
	}
}
