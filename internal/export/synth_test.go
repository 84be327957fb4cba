package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeRunner simulates command execution order and outcomes.
type fakeRunner struct {
	run func(ctx context.Context, name string, args ...string) (commandResult, error)
}

// Run delegates to injected behavior.
func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	if f.run == nil {
		return commandResult{}, nil
	}
	return f.run(ctx, name, args...)
}

// TestRendererRenderSuccess checks the happy path: staged input, rendered
// output moved into place, scratch left clean.
func TestRendererRenderSuccess(t *testing.T) {
	root := t.TempDir()
	scratch := filepath.Join(root, "scratch")
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		t.Fatalf("mkdir scratch: %v", err)
	}
	midiPath := filepath.Join(root, "song.mid")
	wavPath := filepath.Join(scratch, "render-abc.wav")
	soundFont := filepath.Join(root, "default.sf2")
	mustWriteFile(t, midiPath, "midi")

	var gotArgs []string
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			if name != "fluidsynth-custom" {
				t.Fatalf("command name = %q, want fluidsynth-custom", name)
			}
			gotArgs = append([]string{}, args...)
			mustWriteFile(t, argValue(args, "-F"), "wav")
			return commandResult{Stdout: "ok", ExitCode: 0}, nil
		},
	}

	renderer := NewRendererForTests("fluidsynth-custom", soundFont, scratch, runner, os.Stat, os.Remove, os.Rename, copyFileContents)
	if err := renderer.Render(context.Background(), midiPath, wavPath); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if _, err := os.Stat(wavPath); err != nil {
		t.Fatalf("rendered wav missing: %v", err)
	}
	if gotArgs[0] != "-ni" || gotArgs[1] != soundFont {
		t.Fatalf("unexpected args: %v", gotArgs)
	}
	if got := argValue(gotArgs, "-r"); got != "44100" {
		t.Fatalf("sample rate arg = %q, want 44100", got)
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatalf("read scratch: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "render-in-") || strings.HasPrefix(entry.Name(), "render-out-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

// TestRendererRenderFailureReportsStderr checks tool failure propagation
// and temp cleanup.
func TestRendererRenderFailureReportsStderr(t *testing.T) {
	root := t.TempDir()
	scratch := filepath.Join(root, "scratch")
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		t.Fatalf("mkdir scratch: %v", err)
	}
	midiPath := filepath.Join(root, "song.mid")
	mustWriteFile(t, midiPath, "midi")

	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			return commandResult{Stderr: "bad soundfont", ExitCode: 1}, errors.New("exit status 1")
		},
	}

	renderer := NewRendererForTests("fluidsynth", "missing.sf2", scratch, runner, os.Stat, os.Remove, os.Rename, copyFileContents)
	err := renderer.Render(context.Background(), midiPath, filepath.Join(scratch, "out.wav"))
	if err == nil {
		t.Fatal("expected error")
	}

	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("error type = %T, want *ToolError", err)
	}
	if toolErr.Tool != "fluidsynth" {
		t.Fatalf("tool = %q, want fluidsynth", toolErr.Tool)
	}
	if toolErr.CommandLog.ExitCode != 1 {
		t.Fatalf("exit code = %d, want 1", toolErr.CommandLog.ExitCode)
	}
	if !strings.Contains(toolErr.Error(), "bad soundfont") {
		t.Fatalf("error message should carry stderr: %q", toolErr.Error())
	}

	entries, readErr := os.ReadDir(scratch)
	if readErr != nil {
		t.Fatalf("read scratch: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("scratch should be clean after failure, found %d entries", len(entries))
	}
}

// TestRendererRenderMissingOutput checks a zero-exit run that produced
// nothing is still an error.
func TestRendererRenderMissingOutput(t *testing.T) {
	root := t.TempDir()
	scratch := filepath.Join(root, "scratch")
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		t.Fatalf("mkdir scratch: %v", err)
	}
	midiPath := filepath.Join(root, "song.mid")
	mustWriteFile(t, midiPath, "midi")

	renderer := NewRendererForTests("fluidsynth", "font.sf2", scratch, &fakeRunner{}, os.Stat, os.Remove, os.Rename, copyFileContents)
	err := renderer.Render(context.Background(), midiPath, filepath.Join(scratch, "out.wav"))
	if err == nil {
		t.Fatal("expected error")
	}

	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("error type = %T, want *ToolError", err)
	}
	if !strings.Contains(toolErr.Message, "missing") {
		t.Fatalf("message = %q, want missing-output report", toolErr.Message)
	}
}

// TestBuildFluidsynthArgs verifies deterministic synthesis arguments.
func TestBuildFluidsynthArgs(t *testing.T) {
	args := buildFluidsynthArgs("/fonts/gm.sf2", "/tmp/in.mid", "/tmp/out.wav")
	want := []string{
		"-ni", "/fonts/gm.sf2",
		"/tmp/in.mid",
		"-F", "/tmp/out.wav",
		"-r", "44100",
	}

	if len(args) != len(want) {
		t.Fatalf("args len = %d, want %d", len(args), len(want))
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

// mustWriteFile creates parent directory and writes file content.
func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir parent: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file %s: %v", path, err)
	}
}

// argValue returns value for key-style CLI args.
func argValue(args []string, key string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == key {
			return args[i+1]
		}
	}
	return ""
}
