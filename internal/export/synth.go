package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Renderer turns a MIDI file into a 44.1 kHz WAV by invoking fluidsynth.
// Inputs are copied to scratch-local names before invocation so paths with
// special characters never reach the tool, and output lands in an isolated
// temp file that is renamed into place only when complete.
type Renderer struct {
	fluidsynthPath string
	soundFontPath  string
	scratchDir     string
	runner         commandRunner
	stat           func(name string) (os.FileInfo, error)
	remove         func(name string) error
	rename         func(oldpath, newpath string) error
	copyFile       func(src, dst string) error
}

// NewRenderer constructs the production renderer with OS dependencies.
func NewRenderer(soundFontPath, scratchDir string) *Renderer {
	return &Renderer{
		fluidsynthPath: "fluidsynth",
		soundFontPath:  soundFontPath,
		scratchDir:     scratchDir,
		runner:         &execRunner{},
		stat:           os.Stat,
		remove:         os.Remove,
		rename:         os.Rename,
		copyFile:       copyFileContents,
	}
}

// Render synthesizes midiPath into wavPath. Every temp file created here
// is removed on every exit path.
func (r *Renderer) Render(ctx context.Context, midiPath, wavPath string) error {
	safeIn := filepath.Join(r.scratchDir, fmt.Sprintf("render-in-%s.mid", uuid.NewString()))
	if err := r.copyFile(midiPath, safeIn); err != nil {
		return fmt.Errorf("stage midi input: %w", err)
	}
	defer func() { _ = r.remove(safeIn) }()

	safeOut := filepath.Join(r.scratchDir, fmt.Sprintf("render-out-%s.wav", uuid.NewString()))
	defer func() { _ = r.remove(safeOut) }()

	args := buildFluidsynthArgs(r.soundFontPath, safeIn, safeOut)
	result, runErr := r.runner.Run(ctx, r.fluidsynthPath, args...)
	log := CommandLog{
		Command:  r.fluidsynthPath,
		Args:     args,
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
	}
	if runErr != nil {
		return &ToolError{
			Tool:       "fluidsynth",
			Message:    "midi synthesis failed",
			CommandLog: log,
			Err:        runErr,
		}
	}

	if _, err := r.stat(safeOut); err != nil {
		return &ToolError{
			Tool:       "fluidsynth",
			Message:    "synthesis completed but output wav is missing",
			CommandLog: log,
			Err:        err,
		}
	}

	if err := replacePath(r.remove, r.rename, safeOut, wavPath); err != nil {
		return fmt.Errorf("place rendered wav: %w", err)
	}
	return nil
}

// buildFluidsynthArgs builds the fixed synthesis CLI invocation.
func buildFluidsynthArgs(soundFontPath, midiPath, wavPath string) []string {
	return []string{
		"-ni", soundFontPath,
		midiPath,
		"-F", wavPath,
		"-r", "44100",
	}
}

// NewRendererForTests constructs a renderer with injectable dependencies.
func NewRendererForTests(
	fluidsynthPath string,
	soundFontPath string,
	scratchDir string,
	runner commandRunner,
	stat func(name string) (os.FileInfo, error),
	remove func(name string) error,
	rename func(oldpath, newpath string) error,
	copyFile func(src, dst string) error,
) *Renderer {
	return &Renderer{
		fluidsynthPath: fluidsynthPath,
		soundFontPath:  soundFontPath,
		scratchDir:     scratchDir,
		runner:         runner,
		stat:           stat,
		remove:         remove,
		rename:         rename,
		copyFile:       copyFile,
	}
}
