package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPool_DrainsChannel(t *testing.T) {
	ch := make(JobChannel, 100)

	var processed atomic.Int64
	handler := func(ctx context.Context, job TransferJob) error {
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool(context.Background(), ch, handler)
	pool.Start(3)

	for i := 0; i < 10; i++ {
		ch <- TransferJob{SourcePath: "file.txt"}
	}
	close(ch)

	if err := pool.Wait(); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if got := processed.Load(); got != 10 {
		t.Errorf("expected 10 processed jobs, got %d", got)
	}
}

func TestWorkerPool_BoundsConcurrency(t *testing.T) {
	ch := make(JobChannel, 100)

	var mu sync.Mutex
	inflight, highWater := 0, 0

	handler := func(ctx context.Context, job TransferJob) error {
		mu.Lock()
		inflight++
		if inflight > highWater {
			highWater = inflight
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		inflight--
		mu.Unlock()
		return nil
	}

	pool := NewWorkerPool(context.Background(), ch, handler)
	pool.Start(DefaultTransferStreams)

	for i := 0; i < 40; i++ {
		ch <- TransferJob{}
	}
	close(ch)

	if err := pool.Wait(); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if highWater > DefaultTransferStreams {
		t.Errorf("concurrency high-water mark %d exceeds bound %d", highWater, DefaultTransferStreams)
	}
}

func TestWorkerPool_FirstErrorStopsAdmission(t *testing.T) {
	ch := make(JobChannel, 100)
	boom := errors.New("boom")

	var after atomic.Int64
	handler := func(ctx context.Context, job TransferJob) error {
		if job.SourcePath == "bad" {
			return boom
		}
		after.Add(1)
		return nil
	}

	pool := NewWorkerPool(context.Background(), ch, handler)
	pool.Start(1) // single worker makes admission order deterministic

	ch <- TransferJob{SourcePath: "ok"}
	ch <- TransferJob{SourcePath: "bad"}
	ch <- TransferJob{SourcePath: "never"}
	ch <- TransferJob{SourcePath: "never"}
	close(ch)

	err := pool.Wait()
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := after.Load(); got != 1 {
		t.Errorf("expected exactly 1 successful job before the failure, got %d", got)
	}
}

func TestWorkerPool_Stop(t *testing.T) {
	ch := make(JobChannel)
	pool := NewWorkerPool(context.Background(), ch, func(ctx context.Context, job TransferJob) error {
		return nil
	})
	pool.Start(2)

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
