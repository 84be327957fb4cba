package exports

import (
	"context"
	"errors"
	"sync"
)

// Errors returned by Dispatch.
var (
	ErrPoolClosed = errors.New("dispatch pool is closed")
	ErrQueueFull  = errors.New("dispatch queue is full")
)

// Task is one unit of export work handed to the pool.
type Task struct {
	Key        string
	ImagePath  string
	OutputPath string
}

// Outcome is the tagged result a worker posts back to the coordinator.
// The key travels through the worker boundary so reconciliation normally
// needs no path inversion.
type Outcome struct {
	Key        string
	OutputPath string
	Err        error
}

// WorkerFunc runs one export out-of-line and returns the produced output
// path. Workers share nothing with the coordinator beyond task in and
// outcome out.
type WorkerFunc func(ctx context.Context, task Task) (string, error)

// Pool runs tasks on a fixed number of workers and delivers exactly one
// outcome per dispatched task.
type Pool struct {
	run     WorkerFunc
	tasks   chan Task
	results chan Outcome
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPool creates a pool with the given worker count and intake buffer
// and starts its workers.
func NewPool(workers, queueSize int, run WorkerFunc) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}

	p := &Pool{
		run:     run,
		tasks:   make(chan Task, queueSize),
		results: make(chan Outcome, queueSize),
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Dispatch enqueues a task without blocking on execution.
func (p *Pool) Dispatch(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Results returns the outcome channel. It is closed after Shutdown once
// every in-flight task has reported.
func (p *Pool) Results() <-chan Outcome {
	return p.results
}

// Shutdown stops intake, waits for in-flight and queued tasks to finish,
// then closes the results channel. The caller must keep draining Results
// while Shutdown runs: outcomes beyond the buffer are delivered during
// the drain, and a blocked worker cannot finish. Safe to call more than
// once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	close(p.results)
}

// worker drains the task channel until intake closes.
func (p *Pool) worker() {
	defer p.wg.Done()

	for task := range p.tasks {
		output, err := p.run(context.Background(), task)
		if output == "" {
			output = task.OutputPath
		}
		p.results <- Outcome{Key: task.Key, OutputPath: output, Err: err}
	}
}
