package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/franksops/goship/provider"
	"github.com/franksops/goship/queue"
	"github.com/franksops/goship/server"
	"github.com/franksops/goship/submit"
)

func newServerCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
		logFormat  string
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the HTTP tier: submissions, status queries, and content",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(configPath, logLevel, logFormat)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
	return cmd
}

func runServer(configPath, logLevel, logFormat string) error {
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

	handler := submit.NewHandler(submit.GoGitCloner{}, remote, broker, cfg.Server.WorkDir, log)

	log.Info("server starting", "port", cfg.Server.Port)
	return server.Start(ctx, server.Options{
		Submitter: handler,
		Statuses:  statuses,
		Remote:    remote,
		Port:      cfg.Server.Port,
		Log:       log,
	})
}
