package janitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func makeBuildDir(t *testing.T, workDir, name string, age time.Duration) string {
	t.Helper()
	dir := filepath.Join(workDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "file.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(dir, stamp, stamp); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestSweep_RemovesStaleEntries(t *testing.T) {
	workDir := t.TempDir()
	stale := makeBuildDir(t, workDir, "old-job", 48*time.Hour)
	fresh := makeBuildDir(t, workDir, "new-job", time.Minute)

	j := New(workDir, 24*time.Hour, nil, nil)
	removed, err := j.Sweep()
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale dir still present: %v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh dir was removed: %v", err)
	}
}

func TestSweep_SkipsActiveJob(t *testing.T) {
	workDir := t.TempDir()
	active := makeBuildDir(t, workDir, "busy-job", 48*time.Hour)

	j := New(workDir, 24*time.Hour, func() string { return "busy-job" }, nil)
	removed, err := j.Sweep()
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
	if _, err := os.Stat(active); err != nil {
		t.Errorf("active dir was removed: %v", err)
	}
}

func TestSweep_MissingWorkDir(t *testing.T) {
	j := New(filepath.Join(t.TempDir(), "absent"), time.Hour, nil, nil)
	removed, err := j.Sweep()
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
}
