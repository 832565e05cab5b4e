package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/franksops/goship/janitor"
	"github.com/franksops/goship/pipeline"
	"github.com/franksops/goship/provider"
	"github.com/franksops/goship/queue"
	"github.com/franksops/goship/store"
)

func newWorkerCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
		logFormat  string
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a build worker consuming the job queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(configPath, logLevel, logFormat)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
	return cmd
}

func runWorker(configPath, logLevel, logFormat string) error {
	cfg, log, err := loadConfig(configPath, logLevel, logFormat)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	remote, err := provider.NewS3Provider(ctx, cfg.Storage.Bucket, cfg.Storage.Prefix)
	if err != nil {
		return fmt.Errorf("open object store: %w", err)
	}

	broker, err := queue.NewSQSBroker(ctx, cfg.Queue.URL)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}

	statuses, err := connectStatus(cfg)
	if err != nil {
		return err
	}

	history, err := store.NewBoltStore(cfg.Worker.HistoryPath)
	if err != nil {
		return fmt.Errorf("open build history: %w", err)
	}
	defer history.Close()

	orch, err := pipeline.New(pipeline.Options{
		Broker:  broker,
		Remote:  remote,
		WorkDir: cfg.Worker.WorkDir,
		Runner: &pipeline.CommandRunner{
			Command: cfg.Worker.BuildCommand,
			Log:     log,
		},
		OutputDir:       cfg.Worker.OutputDir,
		TransferStreams: cfg.Worker.TransferStreams,
		Statuses:        statuses,
		History:         history,
		Pause:           cfg.Worker.ErrorPause.Std(),
		Log:             log,
	})
	if err != nil {
		return err
	}

	sweeper := janitor.New(cfg.Worker.WorkDir, cfg.Worker.JanitorMaxAge.Std(), orch.CurrentJob, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return orch.Run(gctx)
	})
	g.Go(func() error {
		return sweeper.Run(gctx, cfg.Worker.JanitorSchedule)
	})

	log.Info("worker starting", "queue", cfg.Queue.URL, "work_dir", cfg.Worker.WorkDir)
	return g.Wait()
}
