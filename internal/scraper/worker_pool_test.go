package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolRunsAllTasks(t *testing.T) {
	pool := NewWorkerPool(3, 16)
	results := pool.Run(context.Background())

	var ran int32
	for i := 0; i < 10; i++ {
		pool.Submit(Task{
			ID: fmt.Sprintf("t%d", i),
			Run: func(ctx context.Context) error {
				atomic.AddInt32(&ran, 1)
				return nil
			},
		})
	}
	pool.Close()

	count := 0
	for r := range results {
		if r.Err != nil {
			t.Fatalf("task %s failed: %v", r.ID, r.Err)
		}
		count++
	}
	if count != 10 || atomic.LoadInt32(&ran) != 10 {
		t.Fatalf("ran=%d results=%d, want 10/10", ran, count)
	}
}

func TestWorkerPoolReportsErrorsWithID(t *testing.T) {
	pool := NewWorkerPool(2, 4)
	results := pool.Run(context.Background())

	wantErr := errors.New("boom")
	pool.Submit(Task{ID: "bad", Run: func(ctx context.Context) error { return wantErr }})
	pool.Submit(Task{ID: "good", Run: func(ctx context.Context) error { return nil }})
	pool.Close()

	got := map[string]error{}
	for r := range results {
		got[r.ID] = r.Err
	}
	if !errors.Is(got["bad"], wantErr) {
		t.Fatalf("bad task error = %v", got["bad"])
	}
	if got["good"] != nil {
		t.Fatalf("good task error = %v", got["good"])
	}
}

func TestWorkerPoolStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkerPool(1, 0)
	results := pool.Run(ctx)

	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-results:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("results channel never closed after cancel")
		}
	}
}
