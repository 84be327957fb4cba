package config

import (
	"os"
	"path/filepath"
	"testing"

	"music-video-maker/internal/domain"
)

// TestJSONStoreLoadMissingFileReturnsDefaults verifies first-run behavior.
func TestJSONStoreLoadMissingFileReturnsDefaults(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "settings.json"))

	settings, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	defaults := DefaultSettings()
	if settings.MusicDir != defaults.MusicDir {
		t.Fatalf("music dir = %q, want %q", settings.MusicDir, defaults.MusicDir)
	}
	if settings.MaxConcurrentExports != DefaultMaxConcurrentExports {
		t.Fatalf("max concurrent exports = %d, want %d", settings.MaxConcurrentExports, DefaultMaxConcurrentExports)
	}
}

// TestJSONStoreSaveThenLoadRoundTrip verifies persistence.
func TestJSONStoreSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	store := NewJSONStore(path)

	want := domain.Settings{
		MusicDir:             "/library/music",
		MovieDir:             "/library/movie",
		SoundFontPath:        "/fonts/gm.sf2",
		ScratchDir:           "/tmp/scratch",
		MaxConcurrentExports: 4,
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != want {
		t.Fatalf("loaded settings = %+v, want %+v", got, want)
	}
}

// TestJSONStoreLoadCorruptFile verifies malformed JSON surfaces an error.
func TestJSONStoreLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	store := NewJSONStore(path)
	if _, err := store.Load(); err == nil {
		t.Fatal("expected error for corrupt settings file")
	}
}
