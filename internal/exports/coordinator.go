package exports

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
)

// ErrShuttingDown is returned by Submit after Shutdown has begun.
var ErrShuttingDown = errors.New("export coordinator is shutting down")

const (
	statusShortMS = 3000
	statusLongMS  = 5000
)

// Coordinator orchestrates the registry and the dispatch pool. It owns the
// reconciliation of asynchronous outcomes back to task keys and publishes
// lifecycle events for any number of observers.
type Coordinator struct {
	layout   Layout
	registry *Registry
	pool     *Pool
	hub      *Hub

	mu       sync.Mutex
	closed   bool
	loopDone chan struct{}
	shutdown sync.Once
}

// NewCoordinator builds a coordinator with its own registry, event hub,
// and a running pool of the given size, then starts the result loop.
func NewCoordinator(layout Layout, workers int, run WorkerFunc) *Coordinator {
	c := &Coordinator{
		layout:   layout,
		registry: NewRegistry(),
		hub:      NewHub(1000),
		loopDone: make(chan struct{}),
	}
	c.pool = NewPool(workers, 4*workersOrOne(workers), run)

	go c.resultLoop()
	return c
}

// Events returns the lifecycle event hub for subscription and polling.
func (c *Coordinator) Events() *Hub {
	return c.hub
}

// ActiveKeys returns a snapshot of in-flight task keys.
func (c *Coordinator) ActiveKeys() []string {
	return c.registry.Snapshot()
}

// Submit reserves the source path as task key and hands the work to the
// pool. It returns false when the key is already in flight and never
// blocks on worker execution.
func (c *Coordinator) Submit(musicPath, imagePath string) (bool, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return false, ErrShuttingDown
	}

	key := musicPath
	if !c.registry.Reserve(key) {
		return false, nil
	}

	outputPath := c.layout.OutputPath(key)
	c.hub.Publish(Event{
		Kind:      KindStatus,
		Message:   fmt.Sprintf("Export queued: %s", filepath.Base(outputPath)),
		DisplayMS: statusShortMS,
	})
	c.hub.Publish(Event{Kind: KindSubmitted, Key: key})

	if err := c.pool.Dispatch(Task{Key: key, ImagePath: imagePath, OutputPath: outputPath}); err != nil {
		c.registry.Release(key)
		c.hub.Publish(Event{Kind: KindFailed, Key: key, Error: err.Error()})
		return false, err
	}
	return true, nil
}

// Shutdown stops accepting submissions, drains in-flight work, and waits
// for the result loop to finish. It is safe to call more than once.
func (c *Coordinator) Shutdown() {
	c.shutdown.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.pool.Shutdown()
		<-c.loopDone
	})
}

// resultLoop is the single consumption point for worker outcomes, so
// reconciliation always runs serially.
func (c *Coordinator) resultLoop() {
	defer close(c.loopDone)

	for outcome := range c.pool.Results() {
		if outcome.Err != nil {
			c.handleFailure(outcome)
			continue
		}
		c.handleSuccess(outcome)
	}
}

// handleFailure releases the key directly and emits the failure
// diagnostics. Failed outcomes never go through path inversion.
func (c *Coordinator) handleFailure(outcome Outcome) {
	c.registry.Release(outcome.Key)
	c.hub.Publish(Event{
		Kind:      KindStatus,
		Message:   fmt.Sprintf("Export failed: %s", filepath.Base(outcome.Key)),
		DisplayMS: statusLongMS,
	})
	c.hub.Publish(Event{Kind: KindFailed, Key: outcome.Key, Error: outcome.Err.Error()})
}

// handleSuccess reconciles the outcome to its registry key. The key
// normally travels through the outcome; when it is absent or stale the
// lossy output path is inverted against the registry. An unmatched result
// is an anomaly, not a crash: observers still get the finished event.
func (c *Coordinator) handleSuccess(outcome Outcome) {
	key := outcome.Key
	if key == "" || !c.registry.Contains(key) {
		key = c.ResolveKey(outcome.OutputPath)
	}

	if key != "" {
		c.registry.Release(key)
	} else {
		c.hub.Publish(Event{
			Kind:      KindStatus,
			Message:   fmt.Sprintf("Warning: no active task matches %s", outcome.OutputPath),
			DisplayMS: statusLongMS,
		})
	}

	c.hub.Publish(Event{
		Kind:      KindStatus,
		Message:   fmt.Sprintf("Export finished: %s", filepath.Base(outcome.OutputPath)),
		DisplayMS: statusLongMS,
	})
	c.hub.Publish(Event{Kind: KindFinished, Key: key, OutputPath: outcome.OutputPath})
}

// ResolveKey inverts a derived output path to the reserved key that
// produced it. The forward mapping discards the source extension, so the
// inverse probes the supported extensions in fixed priority order and
// returns the first candidate present in the registry, or "".
func (c *Coordinator) ResolveKey(outputPath string) string {
	for _, candidate := range c.layout.CandidateKeys(outputPath) {
		if c.registry.Contains(candidate) {
			return candidate
		}
	}
	return ""
}

// workersOrOne mirrors the pool's worker floor for queue sizing.
func workersOrOne(workers int) int {
	if workers <= 0 {
		return 1
	}
	return workers
}
