package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/franksops/goship/engine"
	"github.com/franksops/goship/provider"
	"github.com/franksops/goship/ui"
)

func newSyncCmd() *cobra.Command {
	var (
		streams int
		bucket  string
		quiet   bool
	)

	cmd := &cobra.Command{
		Use:   "sync <source> <destination>",
		Short: "Copy a directory tree between local disk and the object store",
		Long: `Copy a directory tree between endpoints. An endpoint is either a local
path or s3://<prefix> inside the configured bucket. One side must be
local and the other remote.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, args[0], args[1], bucket, streams, quiet)
		},
	}

	cmd.Flags().IntVar(&streams, "streams", engine.DefaultTransferStreams, "concurrent transfer streams")
	cmd.Flags().StringVar(&bucket, "bucket", "", "object store bucket (required)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "disable the progress display")
	return cmd
}

// endpoint resolves a CLI argument into a provider and the path within
// it. s3:// arguments resolve against the given bucket.
func endpoint(ctx context.Context, arg, bucket string) (provider.Provider, string, error) {
	if rest, ok := strings.CutPrefix(arg, "s3://"); ok {
		if bucket == "" {
			return nil, "", fmt.Errorf("s3 endpoint %q requires --bucket", arg)
		}
		p, err := provider.NewS3Provider(ctx, bucket, "")
		if err != nil {
			return nil, "", fmt.Errorf("open object store: %w", err)
		}
		return p, rest, nil
	}
	return provider.NewLocalProvider("."), arg, nil
}

func runSync(cmd *cobra.Command, srcArg, dstArg, bucket string, streams int, quiet bool) error {
	ctx, stop := signalContext()
	defer stop()

	src, srcPath, err := endpoint(ctx, srcArg, bucket)
	if err != nil {
		return err
	}
	dst, dstPath, err := endpoint(ctx, dstArg, bucket)
	if err != nil {
		return err
	}

	if quiet {
		syncer := engine.NewSyncer(src, dst, engine.WithStreams(streams))
		if err := syncer.Sync(ctx, srcPath, dstPath); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "sync complete")
		return nil
	}

	prog := tea.NewProgram(ui.NewModel())

	syncer := engine.NewSyncer(src, dst,
		engine.WithStreams(streams),
		engine.WithReporter(func(p engine.Progress) {
			prog.Send(ui.ProgressMsg(p))
		}))

	syncCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		err := syncer.Sync(syncCtx, srcPath, dstPath)
		result <- err
		prog.Send(ui.DoneMsg{Err: err})
	}()

	if _, err := prog.Run(); err != nil {
		cancel()
		<-result
		return fmt.Errorf("progress display: %w", err)
	}
	// Quitting the display early aborts the transfer; either way the
	// sync's own result is what we report.
	cancel()
	return <-result
}
