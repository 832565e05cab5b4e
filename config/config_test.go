package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullYAML = `
storage:
  bucket: goship-deployments
  prefix: prod

queue:
  url: https://sqs.us-east-1.amazonaws.com/123456789012/goship-builds

status:
  dsn: user:pass@tcp(10.0.0.5:3306)/goship

server:
  port: 9090
  work_dir: /var/goship/submit

worker:
  work_dir: /var/goship/builds
  build_command: ["yarn", "build"]
  output_dir: public
  history_path: /var/goship/history.db
  transfer_streams: 8
  error_pause: 10s
  janitor_schedule: "0 * * * *"
  janitor_max_age: 48h
`

const minimalYAML = `
storage:
  bucket: goship-deployments
queue:
  url: https://sqs.us-east-1.amazonaws.com/123456789012/goship-builds
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Storage.Bucket != "goship-deployments" {
		t.Errorf("Storage.Bucket = %q, want goship-deployments", cfg.Storage.Bucket)
	}
	if cfg.Storage.Prefix != "prod" {
		t.Errorf("Storage.Prefix = %q, want prod", cfg.Storage.Prefix)
	}
	if !strings.HasPrefix(cfg.Queue.URL, "https://sqs.") {
		t.Errorf("Queue.URL = %q", cfg.Queue.URL)
	}
	if cfg.Status.DSN == "" {
		t.Error("Status.DSN should be set")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Worker.WorkDir != "/var/goship/builds" {
		t.Errorf("Worker.WorkDir = %q", cfg.Worker.WorkDir)
	}
	if len(cfg.Worker.BuildCommand) != 2 || cfg.Worker.BuildCommand[0] != "yarn" {
		t.Errorf("Worker.BuildCommand = %v, want [yarn build]", cfg.Worker.BuildCommand)
	}
	if cfg.Worker.OutputDir != "public" {
		t.Errorf("Worker.OutputDir = %q, want public", cfg.Worker.OutputDir)
	}
	if cfg.Worker.TransferStreams != 8 {
		t.Errorf("Worker.TransferStreams = %d, want 8", cfg.Worker.TransferStreams)
	}
	if cfg.Worker.ErrorPause.Std() != 10*time.Second {
		t.Errorf("Worker.ErrorPause = %v, want 10s", cfg.Worker.ErrorPause.Std())
	}
	if cfg.Worker.JanitorMaxAge.Std() != 48*time.Hour {
		t.Errorf("Worker.JanitorMaxAge = %v, want 48h", cfg.Worker.JanitorMaxAge.Std())
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Status.SQLitePath != "goship-status.db" {
		t.Errorf("Status.SQLitePath = %q, want goship-status.db", cfg.Status.SQLitePath)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if len(cfg.Worker.BuildCommand) != 3 || cfg.Worker.BuildCommand[0] != "npm" {
		t.Errorf("Worker.BuildCommand = %v, want [npm run build]", cfg.Worker.BuildCommand)
	}
	if cfg.Worker.OutputDir != "output" {
		t.Errorf("Worker.OutputDir = %q, want output", cfg.Worker.OutputDir)
	}
	if cfg.Worker.TransferStreams != 5 {
		t.Errorf("Worker.TransferStreams = %d, want 5", cfg.Worker.TransferStreams)
	}
	if cfg.Worker.ErrorPause.Std() != 5*time.Second {
		t.Errorf("Worker.ErrorPause = %v, want 5s", cfg.Worker.ErrorPause.Std())
	}
	if cfg.Worker.JanitorSchedule != "@hourly" {
		t.Errorf("Worker.JanitorSchedule = %q, want @hourly", cfg.Worker.JanitorSchedule)
	}
}

func TestParse_MissingRequired(t *testing.T) {
	_, err := Parse([]byte(`server: {port: 8080}`))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "storage.bucket is required") {
		t.Errorf("error missing bucket complaint: %v", err)
	}
	if !strings.Contains(err.Error(), "queue.url is required") {
		t.Errorf("error missing queue complaint: %v", err)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("storage: [unclosed"))
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.Bucket != "goship-deployments" {
		t.Errorf("Storage.Bucket = %q", cfg.Storage.Bucket)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
