package exports

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestPoolDeliversOneOutcomePerTask verifies tagged outcomes arrive for
// every dispatched task.
func TestPoolDeliversOneOutcomePerTask(t *testing.T) {
	pool := NewPool(2, 8, func(ctx context.Context, task Task) (string, error) {
		return task.OutputPath, nil
	})

	tasks := []Task{
		{Key: "a.mid", OutputPath: "a.mp4"},
		{Key: "b.mp3", OutputPath: "b.mp4"},
		{Key: "c.wav", OutputPath: "c.mp4"},
	}
	for _, task := range tasks {
		if err := pool.Dispatch(task); err != nil {
			t.Fatalf("dispatch %s: %v", task.Key, err)
		}
	}
	pool.Shutdown()

	got := map[string]string{}
	for outcome := range pool.Results() {
		if outcome.Err != nil {
			t.Fatalf("outcome error for %s: %v", outcome.Key, outcome.Err)
		}
		got[outcome.Key] = outcome.OutputPath
	}
	if len(got) != len(tasks) {
		t.Fatalf("outcomes = %d, want %d", len(got), len(tasks))
	}
	for _, task := range tasks {
		if got[task.Key] != task.OutputPath {
			t.Fatalf("outcome for %s = %q, want %q", task.Key, got[task.Key], task.OutputPath)
		}
	}
}

// TestPoolDefaultsEmptyOutputToTaskPath verifies the outcome always carries
// a usable output path.
func TestPoolDefaultsEmptyOutputToTaskPath(t *testing.T) {
	pool := NewPool(1, 4, func(ctx context.Context, task Task) (string, error) {
		return "", nil
	})

	if err := pool.Dispatch(Task{Key: "a.mid", OutputPath: "a.mp4"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	pool.Shutdown()

	outcome, ok := <-pool.Results()
	if !ok {
		t.Fatal("expected one outcome")
	}
	if outcome.OutputPath != "a.mp4" {
		t.Fatalf("output path = %q, want a.mp4", outcome.OutputPath)
	}
}

// TestPoolDispatchAfterShutdown verifies intake closes cleanly.
func TestPoolDispatchAfterShutdown(t *testing.T) {
	pool := NewPool(1, 4, func(ctx context.Context, task Task) (string, error) {
		return task.OutputPath, nil
	})
	pool.Shutdown()

	err := pool.Dispatch(Task{Key: "late.mid"})
	if !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("dispatch error = %v, want ErrPoolClosed", err)
	}
}

// TestPoolDispatchQueueFull verifies non-blocking intake rejects overflow
// and shutdown still completes when outcomes outnumber the results buffer.
func TestPoolDispatchQueueFull(t *testing.T) {
	block := make(chan struct{})
	pool := NewPool(1, 1, func(ctx context.Context, task Task) (string, error) {
		<-block
		return task.OutputPath, nil
	})

	// First task occupies the worker, second fills the queue.
	if err := pool.Dispatch(Task{Key: "busy"}); err != nil {
		t.Fatalf("dispatch 1: %v", err)
	}
	waitForQueuedTask(t, pool)
	if err := pool.Dispatch(Task{Key: "queued"}); err != nil {
		t.Fatalf("dispatch 2: %v", err)
	}

	if err := pool.Dispatch(Task{Key: "overflow"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("dispatch error = %v, want ErrQueueFull", err)
	}

	// Drain concurrently the way the coordinator's result loop does: the
	// two admitted outcomes exceed the size-1 results buffer, so a worker
	// still holds one when Shutdown starts waiting.
	done := make(chan int)
	go func() {
		delivered := 0
		for range pool.Results() {
			delivered++
		}
		done <- delivered
	}()

	close(block)
	pool.Shutdown()

	if delivered := <-done; delivered != 2 {
		t.Fatalf("delivered = %d, want 2", delivered)
	}
}

// TestPoolShutdownDrainsInFlight verifies queued work completes before the
// results channel closes.
func TestPoolShutdownDrainsInFlight(t *testing.T) {
	pool := NewPool(1, 8, func(ctx context.Context, task Task) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return task.OutputPath, nil
	})

	const count = 4
	for i := 0; i < count; i++ {
		if err := pool.Dispatch(Task{Key: string(rune('a' + i))}); err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
	}
	pool.Shutdown()

	delivered := 0
	for range pool.Results() {
		delivered++
	}
	if delivered != count {
		t.Fatalf("delivered = %d, want %d", delivered, count)
	}
}

// waitForQueuedTask waits until the worker has picked up the first task so
// queue occupancy is deterministic.
func waitForQueuedTask(t *testing.T, pool *Pool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(pool.tasks) == 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("worker did not pick up the first task")
}
