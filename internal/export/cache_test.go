package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// fakeWavRenderer records render calls and writes the requested output.
type fakeWavRenderer struct {
	calls int
	fail  error
}

func (f *fakeWavRenderer) Render(ctx context.Context, midiPath, wavPath string) error {
	f.calls++
	if f.fail != nil {
		return f.fail
	}
	return os.WriteFile(wavPath, []byte("wav"), 0o644)
}

// TestCacheEnsureRendersOnce checks the slot is filled on first use and
// reused afterwards.
func TestCacheEnsureRendersOnce(t *testing.T) {
	dir := t.TempDir()
	midiPath := filepath.Join(dir, "song.mid")
	mustWriteFile(t, midiPath, "midi-content")

	renderer := &fakeWavRenderer{}
	cache := NewCacheForTests(dir, renderer, os.ReadFile, os.Stat)

	first, err := cache.Ensure(context.Background(), midiPath)
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	second, err := cache.Ensure(context.Background(), midiPath)
	if err != nil {
		t.Fatalf("second Ensure() error = %v", err)
	}

	if first != second {
		t.Fatalf("slot paths differ: %q vs %q", first, second)
	}
	if renderer.calls != 1 {
		t.Fatalf("render calls = %d, want 1", renderer.calls)
	}
	if _, err := os.Stat(first); err != nil {
		t.Fatalf("cached wav missing: %v", err)
	}
}

// TestCacheEnsureAddressesByContent checks same-named files with different
// content get distinct slots, and identical content shares one.
func TestCacheEnsureAddressesByContent(t *testing.T) {
	dir := t.TempDir()
	songA := filepath.Join(dir, "a", "song.mid")
	songB := filepath.Join(dir, "b", "song.mid")
	songC := filepath.Join(dir, "c", "song.mid")
	mustWriteFile(t, songA, "content-one")
	mustWriteFile(t, songB, "content-two")
	mustWriteFile(t, songC, "content-one")

	renderer := &fakeWavRenderer{}
	cache := NewCacheForTests(dir, renderer, os.ReadFile, os.Stat)

	slotA, err := cache.Ensure(context.Background(), songA)
	if err != nil {
		t.Fatalf("Ensure(a) error = %v", err)
	}
	slotB, err := cache.Ensure(context.Background(), songB)
	if err != nil {
		t.Fatalf("Ensure(b) error = %v", err)
	}
	slotC, err := cache.Ensure(context.Background(), songC)
	if err != nil {
		t.Fatalf("Ensure(c) error = %v", err)
	}

	if slotA == slotB {
		t.Fatal("different content should get different slots")
	}
	if slotA != slotC {
		t.Fatalf("identical content should share a slot: %q vs %q", slotA, slotC)
	}
	if renderer.calls != 2 {
		t.Fatalf("render calls = %d, want 2", renderer.calls)
	}
}

// TestCacheEnsureRenderFailure checks render errors surface and leave the
// slot empty for retry.
func TestCacheEnsureRenderFailure(t *testing.T) {
	dir := t.TempDir()
	midiPath := filepath.Join(dir, "song.mid")
	mustWriteFile(t, midiPath, "midi")

	renderer := &fakeWavRenderer{fail: errors.New("render broke")}
	cache := NewCacheForTests(dir, renderer, os.ReadFile, os.Stat)

	if _, err := cache.Ensure(context.Background(), midiPath); err == nil {
		t.Fatal("expected error")
	}

	renderer.fail = nil
	slot, err := cache.Ensure(context.Background(), midiPath)
	if err != nil {
		t.Fatalf("retry Ensure() error = %v", err)
	}
	if _, err := os.Stat(slot); err != nil {
		t.Fatalf("cached wav missing after retry: %v", err)
	}
	if renderer.calls != 2 {
		t.Fatalf("render calls = %d, want 2", renderer.calls)
	}
}

// TestCacheEnsureMissingSource checks unreadable sources fail fast.
func TestCacheEnsureMissingSource(t *testing.T) {
	dir := t.TempDir()
	cache := NewCacheForTests(dir, &fakeWavRenderer{}, os.ReadFile, os.Stat)

	if _, err := cache.Ensure(context.Background(), filepath.Join(dir, "nope.mid")); err == nil {
		t.Fatal("expected error for missing source")
	}
}
