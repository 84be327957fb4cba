package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// wavRenderer produces a WAV file from a MIDI source.
type wavRenderer interface {
	Render(ctx context.Context, midiPath, wavPath string) error
}

// Cache is a content-addressed store of rendered waveforms in the scratch
// directory, shared by the preview and export paths so a MIDI source is
// synthesized at most once per content revision. Slots are filled through
// the renderer's isolated-temp-then-rename step, never written directly.
type Cache struct {
	dir      string
	renderer wavRenderer
	readFile func(name string) ([]byte, error)
	stat     func(name string) (os.FileInfo, error)

	mu    sync.Mutex
	slots map[string]*sync.Mutex
}

// NewCache creates a render cache rooted at dir.
func NewCache(dir string, renderer wavRenderer) *Cache {
	return &Cache{
		dir:      dir,
		renderer: renderer,
		readFile: os.ReadFile,
		stat:     os.Stat,
		slots:    make(map[string]*sync.Mutex),
	}
}

// Ensure returns the cached WAV for midiPath, rendering it first when the
// slot is empty. Concurrent callers for the same content serialize on a
// per-slot lock, so redundant synthesis never runs.
func (c *Cache) Ensure(ctx context.Context, midiPath string) (string, error) {
	slot, err := c.slotPath(midiPath)
	if err != nil {
		return "", err
	}

	lock := c.slotLock(slot)
	lock.Lock()
	defer lock.Unlock()

	if _, err := c.stat(slot); err == nil {
		return slot, nil
	}

	if err := c.renderer.Render(ctx, midiPath, slot); err != nil {
		return "", err
	}
	return slot, nil
}

// slotPath addresses the cache slot by a digest of the MIDI content, so
// same-named tracks in different projects never collide and edits to a
// source invalidate its slot naturally.
func (c *Cache) slotPath(midiPath string) (string, error) {
	data, err := c.readFile(midiPath)
	if err != nil {
		return "", fmt.Errorf("read midi source: %w", err)
	}

	sum := sha256.Sum256(data)
	name := fmt.Sprintf("render-%s.wav", hex.EncodeToString(sum[:8]))
	return filepath.Join(c.dir, name), nil
}

// slotLock returns the mutex guarding one cache slot.
func (c *Cache) slotLock(slot string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.slots[slot]
	if !ok {
		lock = &sync.Mutex{}
		c.slots[slot] = lock
	}
	return lock
}

// NewCacheForTests creates a cache with injectable dependencies.
func NewCacheForTests(
	dir string,
	renderer wavRenderer,
	readFile func(name string) ([]byte, error),
	stat func(name string) (os.FileInfo, error),
) *Cache {
	return &Cache{
		dir:      dir,
		renderer: renderer,
		readFile: readFile,
		stat:     stat,
		slots:    make(map[string]*sync.Mutex),
	}
}
