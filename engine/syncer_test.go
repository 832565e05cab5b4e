package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"
)

func TestSyncer_RoundTrip(t *testing.T) {
	src := newMemProvider()
	src.put("tree/index.html", []byte("<html></html>"))
	src.put("tree/assets/app.js", []byte("console.log(1)"))
	src.put("tree/assets/css/site.css", []byte("body{}"))

	remote := newMemProvider()

	up := NewSyncer(src, remote)
	if err := up.Sync(context.Background(), "tree", "abc123"); err != nil {
		t.Fatalf("upload sync failed: %v", err)
	}

	dst := newMemProvider()
	down := NewSyncer(remote, dst)
	if err := down.Sync(context.Background(), "abc123", "restored"); err != nil {
		t.Fatalf("download sync failed: %v", err)
	}

	for p, want := range map[string]string{
		"restored/index.html":          "<html></html>",
		"restored/assets/app.js":       "console.log(1)",
		"restored/assets/css/site.css": "body{}",
	} {
		rc, err := dst.OpenRead(context.Background(), p)
		if err != nil {
			t.Fatalf("missing %s after round trip: %v", p, err)
		}
		got, _ := io.ReadAll(rc)
		rc.Close()
		if string(got) != want {
			t.Errorf("%s: expected %q, got %q", p, want, got)
		}
	}

	p := down.Stats().Snapshot()
	if p.TotalFiles != 3 || p.FilesDone != 3 {
		t.Errorf("expected 3/3 files, got %d/%d", p.FilesDone, p.TotalFiles)
	}
	wantBytes := int64(len("<html></html>") + len("console.log(1)") + len("body{}"))
	if p.TotalBytes != wantBytes || p.BytesDone != wantBytes {
		t.Errorf("expected %d/%d bytes, got %d/%d", wantBytes, wantBytes, p.BytesDone, p.TotalBytes)
	}
}

func TestSyncer_StatsPassBeforeTransfers(t *testing.T) {
	src := newMemProvider()
	for i := 0; i < 12; i++ {
		src.put(fmt.Sprintf("tree/f%02d.dat", i), bytes.Repeat([]byte("x"), i+1))
	}
	dst := newMemProvider()

	var first Progress
	sawReport := false
	s := NewSyncer(src, dst,
		WithReportInterval(0),
		WithReporter(func(p Progress) {
			if !sawReport {
				first = p
				sawReport = true
			}
		}))

	if err := s.Sync(context.Background(), "tree", "out"); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if !sawReport {
		t.Fatal("expected at least one progress report")
	}
	// Totals must be final in the very first observation.
	if first.TotalFiles != 12 {
		t.Errorf("first report saw %d total files, want 12", first.TotalFiles)
	}
	if first.TotalBytes != 78 {
		t.Errorf("first report saw %d total bytes, want 78", first.TotalBytes)
	}
}

func TestSyncer_ConcurrencyBound(t *testing.T) {
	src := newMemProvider()
	src.openDelay = 3 * time.Millisecond
	for i := 0; i < 40; i++ {
		src.put(fmt.Sprintf("tree/file%02d.bin", i), bytes.Repeat([]byte("y"), 64))
	}
	dst := newMemProvider()

	s := NewSyncer(src, dst)
	if err := s.Sync(context.Background(), "tree", "out"); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	src.mu.Lock()
	hw := src.highWater
	src.mu.Unlock()
	if hw > DefaultTransferStreams {
		t.Errorf("observed %d concurrent reads, bound is %d", hw, DefaultTransferStreams)
	}
	if hw == 0 {
		t.Error("instrumentation recorded no reads")
	}
}

func TestSyncer_FailFast(t *testing.T) {
	src := newMemProvider()
	for i := 0; i < 30; i++ {
		src.put(fmt.Sprintf("tree/file%02d.bin", i), []byte("data"))
	}
	src.failRead["tree/file10.bin"] = true
	dst := newMemProvider()

	s := NewSyncer(src, dst)
	err := s.Sync(context.Background(), "tree", "out")
	if err == nil {
		t.Fatal("expected Sync to fail")
	}
	if !strings.Contains(err.Error(), "tree/file10.bin") {
		t.Errorf("error should identify the failing path, got: %v", err)
	}

	// Far fewer than all files should have landed.
	dst.mu.Lock()
	landed := len(dst.files)
	dst.mu.Unlock()
	if landed >= 30 {
		t.Errorf("expected the sync to abort early, but %d files transferred", landed)
	}
}

func TestSyncer_CancellationSurfacesError(t *testing.T) {
	src := newMemProvider()
	src.openDelay = 20 * time.Millisecond
	for i := 0; i < 40; i++ {
		src.put(fmt.Sprintf("tree/file%02d.bin", i), []byte("data"))
	}
	dst := newMemProvider()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	s := NewSyncer(src, dst)
	err := s.Sync(ctx, "tree", "out")
	if err == nil {
		t.Fatal("expected Sync to report the cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in the chain, got: %v", err)
	}

	// Cancellation mid-run must not have looked like a full transfer.
	dst.mu.Lock()
	landed := len(dst.files)
	dst.mu.Unlock()
	if landed >= 40 {
		t.Errorf("expected a partial transfer, but all %d files landed", landed)
	}
}

func TestSyncer_EnumerationErrorAborts(t *testing.T) {
	src := newMemProvider()
	dst := newMemProvider()

	s := NewSyncer(src, dst)
	err := s.Sync(context.Background(), "no/such/tree", "out")
	if err == nil {
		t.Fatal("expected an enumeration error")
	}
	if !strings.Contains(err.Error(), "no/such/tree") {
		t.Errorf("error should name the source, got: %v", err)
	}
}
