package engine

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/franksops/goship/provider"
)

// Walker traverses a directory tree on a Provider without recursion,
// using an explicit worklist so very deep trees cannot exhaust the
// call stack. It runs twice per sync: once to measure the tree and
// once to emit TransferJobs.
type Walker struct {
	src provider.Provider
}

// NewWalker creates a Walker over the given source provider.
func NewWalker(src provider.Provider) *Walker {
	return &Walker{src: src}
}

// Measure enumerates every file under sourcePath and returns the total
// file count and byte size. Directory entries contribute nothing.
func (w *Walker) Measure(ctx context.Context, sourcePath string) (files, bytes int64, err error) {
	err = w.walk(ctx, sourcePath, func(relPath string, info provider.FileInfo) error {
		files++
		bytes += info.Size()
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return files, bytes, nil
}

// Walk enumerates every file under sourcePath and sends a TransferJob
// for each onto jobChan. Destination paths are destPrefix joined with
// the file's source-relative path, normalized to forward slashes.
func (w *Walker) Walk(ctx context.Context, sourcePath, destPrefix string, jobChan JobChannel) error {
	return w.walk(ctx, sourcePath, func(relPath string, info provider.FileInfo) error {
		dest := destPrefix
		if relPath != "" {
			dest = path.Join(destPrefix, filepath.ToSlash(relPath))
		}
		job := TransferJob{
			SourcePath:      joinSource(sourcePath, relPath),
			DestinationPath: dest,
			FileInfo:        info,
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case jobChan <- job:
			return nil
		}
	})
}

// walk drives the iterative traversal, invoking fn for every file leaf.
func (w *Walker) walk(ctx context.Context, sourcePath string, fn func(relPath string, info provider.FileInfo) error) error {
	stat, err := w.src.Stat(ctx, sourcePath)
	if err != nil {
		return fmt.Errorf("failed to stat source %s: %w", sourcePath, err)
	}

	// A plain file is a one-entry tree; the empty relative path means
	// "the source itself".
	if !stat.IsDir() {
		return fn("", stat)
	}

	stack := []string{""}

	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		listPath := joinSource(sourcePath, curr)

		entries, err := w.src.List(ctx, listPath)
		if err != nil {
			return fmt.Errorf("failed to list directory %s: %w", listPath, err)
		}

		for _, entry := range entries {
			entryRel := entry.Name()
			if curr != "" {
				entryRel = filepath.Join(curr, entry.Name())
			}

			if entry.IsDir() {
				stack = append(stack, entryRel)
				continue
			}

			if err := fn(entryRel, entry); err != nil {
				return err
			}
		}
	}

	return nil
}

func joinSource(sourcePath, relPath string) string {
	if relPath == "" {
		return sourcePath
	}
	return filepath.Join(sourcePath, relPath)
}
