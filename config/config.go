// Package config provides YAML-based configuration loading for goship.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings such
// as "5s" or "24h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a standard time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level goship configuration, loaded from config.yaml.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Queue   QueueConfig   `yaml:"queue"`
	Status  StatusConfig  `yaml:"status"`
	Server  ServerConfig  `yaml:"server"`
	Worker  WorkerConfig  `yaml:"worker"`
}

// StorageConfig holds object store settings shared by every tier.
type StorageConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// QueueConfig names the build queue.
type QueueConfig struct {
	URL string `yaml:"url"`
}

// StatusConfig selects the job status backend. A MySQL DSN is used when
// set, otherwise the store falls back to a local SQLite file.
type StatusConfig struct {
	DSN        string `yaml:"dsn"`
	SQLitePath string `yaml:"sqlite_path"`
}

// ServerConfig holds HTTP tier settings.
type ServerConfig struct {
	Port    int    `yaml:"port"`
	WorkDir string `yaml:"work_dir"`
}

// WorkerConfig holds build worker settings.
type WorkerConfig struct {
	WorkDir         string   `yaml:"work_dir"`
	BuildCommand    []string `yaml:"build_command"`
	OutputDir       string   `yaml:"output_dir"`
	HistoryPath     string   `yaml:"history_path"`
	TransferStreams int      `yaml:"transfer_streams"`
	ErrorPause      Duration `yaml:"error_pause"`
	JanitorSchedule string   `yaml:"janitor_schedule"`
	JanitorMaxAge   Duration `yaml:"janitor_max_age"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Status.SQLitePath == "" {
		c.Status.SQLitePath = "goship-status.db"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.WorkDir == "" {
		c.Server.WorkDir = "work/submit"
	}
	if c.Worker.WorkDir == "" {
		c.Worker.WorkDir = "work/builds"
	}
	if len(c.Worker.BuildCommand) == 0 {
		c.Worker.BuildCommand = []string{"npm", "run", "build"}
	}
	if c.Worker.OutputDir == "" {
		c.Worker.OutputDir = "output"
	}
	if c.Worker.HistoryPath == "" {
		c.Worker.HistoryPath = "goship-history.db"
	}
	if c.Worker.TransferStreams == 0 {
		c.Worker.TransferStreams = 5
	}
	if c.Worker.ErrorPause == 0 {
		c.Worker.ErrorPause = Duration(5 * time.Second)
	}
	if c.Worker.JanitorSchedule == "" {
		c.Worker.JanitorSchedule = "@hourly"
	}
	if c.Worker.JanitorMaxAge == 0 {
		c.Worker.JanitorMaxAge = Duration(24 * time.Hour)
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Storage.Bucket == "" {
		errs = append(errs, "storage.bucket is required")
	}
	if c.Queue.URL == "" {
		errs = append(errs, "queue.url is required")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be a valid port number")
	}
	if c.Worker.TransferStreams < 1 {
		errs = append(errs, "worker.transfer_streams must be at least 1")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
