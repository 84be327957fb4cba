package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"sort"
	"strings"
	"sync"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"music-video-maker/internal/config"
	"music-video-maker/internal/diagnostics"
	"music-video-maker/internal/domain"
	"music-video-maker/internal/export"
	"music-video-maker/internal/exports"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

const maxConcurrentExportsCap = 32

var imageDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Image files",
		Pattern:     "*.png;*.jpg;*.jpeg;*.bmp;*.webp",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

var soundFontDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Soundfonts",
		Pattern:     "*.sf2;*.sf3",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// App wires configuration, the export coordinator, the render cache, and
// UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Coordinator *exports.Coordinator
	Diagnostics domain.DiagnosticReport
	assets      fs.FS
	checker     *diagnostics.Checker
	cache       previewCache
	layout      exports.Layout

	mu         sync.Mutex
	runtimeCtx context.Context
}

// previewCache isolates the render cache behind an interface.
type previewCache interface {
	Ensure(ctx context.Context, midiPath string) (string, error)
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	store := config.NewJSONStore(defaultSettingsPath())
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	checker := diagnostics.NewChecker()
	report := checker.Run(settings)

	if err := os.MkdirAll(settings.ScratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare scratch directory: %w", err)
	}
	cleanScratchStaging(settings.ScratchDir)
	cleanExportStaging(settings.MovieDir)

	renderer := export.NewRenderer(settings.SoundFontPath, settings.ScratchDir)
	cache := export.NewCache(settings.ScratchDir, renderer)
	exporter := export.NewExporter(cache)

	layout := exports.Layout{MusicRoot: settings.MusicDir, MovieRoot: settings.MovieDir}
	coordinator := exports.NewCoordinator(layout, settings.MaxConcurrentExports, func(ctx context.Context, task exports.Task) (string, error) {
		return exporter.Export(ctx, task.Key, task.ImagePath, task.OutputPath)
	})

	app := &App{
		Settings:    settings,
		Store:       store,
		Coordinator: coordinator,
		Diagnostics: report,
		assets:      assets,
		checker:     checker,
		cache:       cache,
		layout:      layout,
	}

	coordinator.Events().Subscribe(exports.KindAll, app.forwardEvent)
	return app, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Music Video Maker",
		Width:       1180,
		Height:      780,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			a.runtimeCtx = nil
			scratchDir := a.Settings.ScratchDir
			movieDir := a.Settings.MovieDir
			a.mu.Unlock()
			a.Coordinator.Shutdown()
			cleanScratchStaging(scratchDir)
			cleanExportStaging(movieDir)
		},
		Bind: []interface{}{a},
	})
}

// Startup stores Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// SubmitExport queues one track for export. It returns false without error
// when the same source is already exporting.
func (a *App) SubmitExport(musicPath, imagePath string) (bool, error) {
	music := strings.TrimSpace(musicPath)
	if music == "" {
		return false, fmt.Errorf("music path is required")
	}
	image := strings.TrimSpace(imagePath)
	if image == "" {
		return false, fmt.Errorf("image path is required")
	}

	return a.Coordinator.Submit(music, image)
}

// ActiveExports returns the source paths currently being exported.
func (a *App) ActiveExports() []string {
	return a.Coordinator.ActiveKeys()
}

// ExportEvents returns all events with sequence greater than sinceSeq.
func (a *App) ExportEvents(sinceSeq int64) []exports.Event {
	return a.Coordinator.Events().Since(sinceSeq)
}

// PreparePreview resolves a playable audio path for the given track. MIDI
// sources are synthesized through the render cache; anything else plays
// directly.
func (a *App) PreparePreview(musicPath string) (string, error) {
	path := strings.TrimSpace(musicPath)
	if path == "" {
		return "", fmt.Errorf("music path is required")
	}

	if !exports.IsMIDISource(path) {
		return path, nil
	}
	return a.cache.Ensure(context.Background(), path)
}

// PreRenderProject warms the render cache for every MIDI track in a
// project so previews and exports start instantly. Rendering runs in the
// background; progress is reported through status events.
func (a *App) PreRenderProject(projectName string) error {
	project, err := a.findProject(strings.TrimSpace(projectName))
	if err != nil {
		return err
	}

	midiTracks := make([]domain.Track, 0, len(project.Tracks))
	for _, track := range project.Tracks {
		if track.IsMIDI {
			midiTracks = append(midiTracks, track)
		}
	}
	if len(midiTracks) == 0 {
		return nil
	}

	hub := a.Coordinator.Events()
	go func() {
		for i, track := range midiTracks {
			hub.Publish(exports.Event{
				Kind:      exports.KindStatus,
				Message:   fmt.Sprintf("Rendering %s (%d/%d)", track.Name, i+1, len(midiTracks)),
				DisplayMS: 3000,
			})
			if _, err := a.cache.Ensure(context.Background(), track.Path); err != nil {
				hub.Publish(exports.Event{
					Kind:      exports.KindStatus,
					Message:   fmt.Sprintf("Render failed: %s: %v", track.Name, err),
					DisplayMS: 5000,
				})
			}
		}
		hub.Publish(exports.Event{
			Kind:      exports.KindStatus,
			Message:   fmt.Sprintf("Project %s rendered", project.Name),
			DisplayMS: 3000,
		})
	}()
	return nil
}

// ListProjects scans the music library and returns each project folder
// with its tracks, marking the ones that already have an exported video.
func (a *App) ListProjects() ([]domain.Project, error) {
	a.mu.Lock()
	musicDir := a.Settings.MusicDir
	a.mu.Unlock()

	entries, err := os.ReadDir(musicDir)
	if err != nil {
		return nil, fmt.Errorf("read music directory: %w", err)
	}

	projects := make([]domain.Project, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		project, err := a.readProject(filepath.Join(musicDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if len(project.Tracks) == 0 {
			continue
		}
		projects = append(projects, project)
	}

	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	return projects, nil
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// RefreshDiagnostics reloads settings and reruns dependency checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	return a.refreshDiagnosticsFromSettings(settings), nil
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes
// diagnostics. Directory and soundfont changes take effect on next launch.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.refreshDiagnosticsFromSettings(normalized)
	return normalized, nil
}

// PickImageFile opens a native file dialog for the still image.
func (a *App) PickImageFile() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select image",
		Filters: imageDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// PickSoundFontFile opens a native file dialog for soundfont selection.
func (a *App) PickSoundFontFile() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select soundfont",
		Filters: soundFontDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// PickMusicDirectory opens a native directory picker for the music library.
func (a *App) PickMusicDirectory() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select music directory",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// PickMovieDirectory opens a native directory picker for video outputs.
func (a *App) PickMovieDirectory() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select movie directory",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// OpenOutputFolder opens the given path (or configured movie dir) in file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.Settings.MovieDir
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// readProject collects the supported tracks of one project folder.
func (a *App) readProject(dir string) (domain.Project, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return domain.Project{}, fmt.Errorf("read project directory: %w", err)
	}

	project := domain.Project{Name: filepath.Base(dir)}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !isSupportedTrack(name) {
			continue
		}

		trackPath := filepath.Join(dir, name)
		track := domain.Track{
			Name:   strings.TrimSuffix(name, filepath.Ext(name)),
			Path:   trackPath,
			IsMIDI: exports.IsMIDISource(trackPath),
		}
		if _, err := os.Stat(a.layout.OutputPath(trackPath)); err == nil {
			track.HasVideo = true
		}
		project.Tracks = append(project.Tracks, track)
	}

	sort.Slice(project.Tracks, func(i, j int) bool { return project.Tracks[i].Name < project.Tracks[j].Name })
	return project, nil
}

// findProject resolves one project by folder name.
func (a *App) findProject(name string) (domain.Project, error) {
	if name == "" {
		return domain.Project{}, fmt.Errorf("project name is required")
	}

	a.mu.Lock()
	musicDir := a.Settings.MusicDir
	a.mu.Unlock()

	dir := filepath.Join(musicDir, name)
	info, err := os.Stat(dir)
	if err != nil {
		return domain.Project{}, fmt.Errorf("resolve project %s: %w", name, err)
	}
	if !info.IsDir() {
		return domain.Project{}, fmt.Errorf("project %s is not a directory", name)
	}

	return a.readProject(dir)
}

// forwardEvent pushes coordinator events to the UI over the Wails runtime.
func (a *App) forwardEvent(event exports.Event) {
	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "export:event", event)
	}
}

// refreshDiagnosticsFromSettings updates cached settings and report together.
func (a *App) refreshDiagnosticsFromSettings(settings domain.Settings) domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Settings = settings
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(settings)
	}
	return a.Diagnostics
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// cleanScratchStaging removes staging temps left by interrupted renders.
// Finished cache slots stay so later sessions reuse them.
func cleanScratchStaging(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "render-in-") || strings.HasPrefix(name, "render-out-") {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}
}

// cleanExportStaging removes orphaned mux temps from the movie tree. The
// exporter writes them beside the final output, so an interrupted export
// leaves them in the per-project folders, not in scratch.
func cleanExportStaging(movieDir string) {
	projects, err := os.ReadDir(movieDir)
	if err != nil {
		return
	}
	for _, project := range projects {
		if !project.IsDir() {
			continue
		}
		projectDir := filepath.Join(movieDir, project.Name())
		entries, err := os.ReadDir(projectDir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if strings.HasPrefix(entry.Name(), ".export-") {
				_ = os.Remove(filepath.Join(projectDir, entry.Name()))
			}
		}
	}
}

// defaultSettingsPath locates the per-user settings file.
func defaultSettingsPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".music-video-maker", "settings.json")
}

// isSupportedTrack reports whether the file name has an exportable audio
// extension.
func isSupportedTrack(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mid", ".midi", ".mp3", ".wav":
		return true
	default:
		return false
	}
}

// normalizeSettings trims user inputs, fills empty paths with defaults,
// and bounds the worker count.
func normalizeSettings(settings domain.Settings) domain.Settings {
	defaults := config.DefaultSettings()

	settings.MusicDir = strings.TrimSpace(settings.MusicDir)
	if settings.MusicDir == "" {
		settings.MusicDir = defaults.MusicDir
	}
	settings.MovieDir = strings.TrimSpace(settings.MovieDir)
	if settings.MovieDir == "" {
		settings.MovieDir = defaults.MovieDir
	}
	settings.SoundFontPath = strings.TrimSpace(settings.SoundFontPath)
	if settings.SoundFontPath == "" {
		settings.SoundFontPath = defaults.SoundFontPath
	}
	settings.ScratchDir = strings.TrimSpace(settings.ScratchDir)
	if settings.ScratchDir == "" {
		settings.ScratchDir = defaults.ScratchDir
	}
	if settings.MaxConcurrentExports <= 0 {
		settings.MaxConcurrentExports = config.DefaultMaxConcurrentExports
	}
	if settings.MaxConcurrentExports > maxConcurrentExportsCap {
		settings.MaxConcurrentExports = maxConcurrentExportsCap
	}
	return settings
}

// openInFileManager launches the platform file explorer for the provided path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
