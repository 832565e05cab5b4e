package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/franksops/goship/config"
	"github.com/franksops/goship/logging"
	"github.com/franksops/goship/status"
)

// loadConfig reads the config file and installs the process logger.
func loadConfig(path, logLevel, logFormat string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(logLevel),
		Format: logFormat,
	})
	return cfg, log, nil
}

// connectStatus opens the status store named by the config: MySQL when
// a DSN is present, a local SQLite file otherwise.
func connectStatus(cfg *config.Config) (*status.Store, error) {
	if cfg.Status.DSN != "" {
		st, err := status.ConnectMySQL(cfg.Status.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect status store: %w", err)
		}
		return st, nil
	}
	st, err := status.ConnectSQLite(cfg.Status.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open status store: %w", err)
	}
	return st, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
