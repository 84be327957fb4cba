package diagnostics

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"music-video-maker/internal/domain"
)

// Checker validates external tools and required filesystem paths before
// any export runs. Missing tools or directories are configuration errors,
// not per-task failures.
type Checker struct {
	lookPath   func(string) (string, error)
	stat       func(string) (os.FileInfo, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkTool("ffmpeg"),
		c.checkTool("fluidsynth"),
		c.checkSoundFont(settings.SoundFontPath),
		c.checkMusicDir(settings.MusicDir),
		c.checkWritableDir("movie_dir", "Movie directory", settings.MovieDir),
		c.checkWritableDir("scratch_dir", "Scratch directory", settings.ScratchDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkTool verifies a required CLI executable is on PATH.
func (c *Checker) checkTool(name string) domain.DiagnosticItem {
	path, err := c.lookPath(name)
	if err != nil {
		return domain.DiagnosticItem{
			ID:      "tool_" + name,
			Name:    name,
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Tool not found in PATH: %s", name),
			Hint:    "Install it and ensure the binary is available on PATH before exporting.",
		}
	}

	return domain.DiagnosticItem{
		ID:      "tool_" + name,
		Name:    name,
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

// checkSoundFont validates the configured soundfont file.
func (c *Checker) checkSoundFont(soundFontPath string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "soundfont",
		Name: "Soundfont",
	}

	trimmed := strings.TrimSpace(soundFontPath)
	if trimmed == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Soundfont path is empty."
		item.Hint = "Set a General MIDI soundfont (.sf2) path in settings or download one from the catalog."
		return item
	}

	info, err := c.stat(trimmed)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		if errors.Is(err, os.ErrNotExist) {
			item.Message = fmt.Sprintf("Soundfont does not exist: %s", trimmed)
		} else {
			item.Message = fmt.Sprintf("Cannot access soundfont: %s", trimmed)
		}
		item.Hint = "Download a soundfont from the catalog or point settings at an existing .sf2 file."
		return item
	}

	if info.IsDir() {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Soundfont path is a directory: %s", trimmed)
		item.Hint = "Point settings at a soundfont file, not a folder."
		return item
	}

	ext := strings.ToLower(filepath.Ext(trimmed))
	if ext != ".sf2" && ext != ".sf3" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Not a soundfont file: %s", trimmed)
		item.Hint = "fluidsynth needs an .sf2 or .sf3 soundfont."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Soundfont found: %s", trimmed)
	return item
}

// checkMusicDir validates the music library root, creating it on first run.
func (c *Checker) checkMusicDir(musicDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "music_dir",
		Name: "Music directory",
	}

	trimmed := strings.TrimSpace(musicDir)
	if trimmed == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Music directory is empty."
		item.Hint = "Set the folder that holds your per-project audio sources."
		return item
	}

	if err := c.mkdirAll(trimmed, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create music directory: %s", trimmed)
		item.Hint = "Choose an accessible location or adjust filesystem permissions."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Music directory ready: %s", trimmed)
	return item
}

// checkWritableDir validates directory existence and write access.
func (c *Checker) checkWritableDir(id, name, dir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   id,
		Name: name,
	}

	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("%s is empty.", name)
		item.Hint = "Set a writable directory in settings."
		return item
	}

	if err := c.mkdirAll(trimmed, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create directory: %s", trimmed)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(trimmed, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Directory is not writable: %s", trimmed)
		item.Hint = "Choose a writable directory."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", trimmed)
	return item
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		stat:       stat,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
