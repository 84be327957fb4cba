package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"music-video-maker/internal/exports"
)

// audioSource resolves the audio input for a mux: a pass-through for
// WAV/MP3 sources, the render cache for MIDI.
type audioSource interface {
	Ensure(ctx context.Context, midiPath string) (string, error)
}

// Exporter is the worker function: it combines one audio track and one
// still image into an MP4. It runs out-of-line on pool workers and shares
// nothing with the coordinator.
type Exporter struct {
	ffmpegPath string
	cache      audioSource
	runner     commandRunner
	stat       func(name string) (os.FileInfo, error)
	remove     func(name string) error
	rename     func(oldpath, newpath string) error
	mkdirAll   func(path string, perm os.FileMode) error
}

// NewExporter constructs the production exporter on top of a render cache.
func NewExporter(cache *Cache) *Exporter {
	return &Exporter{
		ffmpegPath: "ffmpeg",
		cache:      cache,
		runner:     &execRunner{},
		stat:       os.Stat,
		remove:     os.Remove,
		rename:     os.Rename,
		mkdirAll:   os.MkdirAll,
	}
}

// Export produces outputPath from musicPath and imagePath and returns the
// produced path. MIDI sources are synthesized through the render cache
// first. The mux writes to a temp file beside the final output and the
// last step is an atomic remove-then-rename, so readers never observe a
// partial video. All temp files are removed on every exit path.
func (e *Exporter) Export(ctx context.Context, musicPath, imagePath, outputPath string) (string, error) {
	if _, err := e.stat(musicPath); err != nil {
		return "", fmt.Errorf("access audio source %s: %w", musicPath, err)
	}
	if _, err := e.stat(imagePath); err != nil {
		return "", fmt.Errorf("access image %s: %w", imagePath, err)
	}
	if err := e.mkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	audioPath := musicPath
	if exports.IsMIDISource(musicPath) {
		rendered, err := e.cache.Ensure(ctx, musicPath)
		if err != nil {
			return "", err
		}
		audioPath = rendered
	}

	tmpOut := filepath.Join(filepath.Dir(outputPath), fmt.Sprintf(".export-%s.mp4", uuid.NewString()))
	defer func() { _ = e.remove(tmpOut) }()

	args := buildMuxArgs(imagePath, audioPath, tmpOut)
	result, runErr := e.runner.Run(ctx, e.ffmpegPath, args...)
	log := CommandLog{
		Command:  e.ffmpegPath,
		Args:     args,
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
	}
	if runErr != nil {
		return "", &ToolError{
			Tool:       "ffmpeg",
			Message:    "video mux failed",
			CommandLog: log,
			Err:        runErr,
		}
	}

	if _, err := e.stat(tmpOut); err != nil {
		return "", &ToolError{
			Tool:       "ffmpeg",
			Message:    "mux completed but output video is missing",
			CommandLog: log,
			Err:        err,
		}
	}

	if err := replacePath(e.remove, e.rename, tmpOut, outputPath); err != nil {
		return "", fmt.Errorf("place output video: %w", err)
	}
	return outputPath, nil
}

// buildMuxArgs builds the fixed still-image mux invocation: one looped
// frame, x264 tuned for still images, AAC audio, duration clipped to the
// shorter stream, and a pixel format every mainstream player accepts.
func buildMuxArgs(imagePath, audioPath, outPath string) []string {
	return []string{
		"-y",
		"-loop", "1",
		"-i", imagePath,
		"-i", audioPath,
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-shortest",
		outPath,
	}
}

// NewExporterForTests constructs an exporter with injectable dependencies.
func NewExporterForTests(
	ffmpegPath string,
	cache audioSource,
	runner commandRunner,
	stat func(name string) (os.FileInfo, error),
	remove func(name string) error,
	rename func(oldpath, newpath string) error,
	mkdirAll func(path string, perm os.FileMode) error,
) *Exporter {
	return &Exporter{
		ffmpegPath: ffmpegPath,
		cache:      cache,
		runner:     runner,
		stat:       stat,
		remove:     remove,
		rename:     rename,
		mkdirAll:   mkdirAll,
	}
}
