package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"music-video-maker/internal/domain"
)

var soundFontCatalog = []domain.SoundFontOption{
	{
		ID:          "vintage-dreams",
		Name:        "Vintage Dreams Waves",
		FileName:    "VintageDreamsWaves-v2.sf2",
		URL:         "https://github.com/FluidSynth/fluidsynth/raw/master/sf2/VintageDreamsWaves-v2.sf2",
		SizeLabel:   "~300 KB",
		Description: "Tiny synth-flavored bank bundled with fluidsynth. Good for a quick test.",
	},
	{
		ID:          "generaluser-gs",
		Name:        "GeneralUser GS",
		FileName:    "GeneralUser-GS.sf2",
		URL:         "https://github.com/mrbumpy409/GeneralUser-GS/raw/main/GeneralUser-GS.sf2",
		SizeLabel:   "~30 MB",
		Description: "Balanced General MIDI bank with consistent instrument levels.",
	},
	{
		ID:          "fluid-r3-gm",
		Name:        "FluidR3 GM",
		FileName:    "FluidR3_GM.sf2",
		URL:         "https://github.com/urish/cinto/raw/master/media/FluidR3%20GM.sf2",
		SizeLabel:   "~140 MB",
		Description: "Full General MIDI bank with high-quality sampled instruments.",
	},
}

// GetSoundFonts returns built-in soundfont presets for one-click downloads.
func (a *App) GetSoundFonts() []domain.SoundFontOption {
	fonts := make([]domain.SoundFontOption, len(soundFontCatalog))
	copy(fonts, soundFontCatalog)

	dirs := a.knownSoundFontDirs()
	markDownloadedSoundFonts(fonts, dirs)
	return fonts
}

// DownloadSoundFont downloads the selected soundfont and updates
// settings.SoundFontPath to point at it.
func (a *App) DownloadSoundFont(fontID string) (domain.Settings, error) {
	id := strings.TrimSpace(fontID)
	if id == "" {
		return domain.Settings{}, fmt.Errorf("soundfont id is required")
	}

	font, found := getSoundFontByID(id)
	if !found {
		return domain.Settings{}, fmt.Errorf("unknown soundfont id: %s", id)
	}

	if a.Store == nil {
		return domain.Settings{}, fmt.Errorf("settings store is not configured")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	dir, err := defaultSoundFontDirectory()
	if err != nil {
		return domain.Settings{}, err
	}

	targetPath := filepath.Join(dir, font.FileName)
	if err := downloadURLToFile(targetPath, font.URL, soundFontDownloadTimeout); err != nil {
		return domain.Settings{}, fmt.Errorf("download soundfont %s: %w", font.Name, err)
	}

	settings.SoundFontPath = targetPath
	if err := a.Store.Save(settings); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.refreshDiagnosticsFromSettings(settings)
	return settings, nil
}

func getSoundFontByID(id string) (domain.SoundFontOption, bool) {
	for _, font := range soundFontCatalog {
		if font.ID == id {
			return font, true
		}
	}
	return domain.SoundFontOption{}, false
}

// defaultSoundFontOption is the catalog entry used by one-click remediation.
func defaultSoundFontOption() domain.SoundFontOption {
	return soundFontCatalog[1]
}

// knownSoundFontDirs collects directories that may already hold catalog
// downloads.
func (a *App) knownSoundFontDirs() []string {
	seen := map[string]struct{}{}
	add := func(path string) {
		p := strings.TrimSpace(path)
		if p == "" {
			return
		}
		clean := filepath.Clean(p)
		if clean == "." {
			return
		}
		seen[clean] = struct{}{}
	}

	if dir, err := defaultSoundFontDirectory(); err == nil {
		add(dir)
	}

	a.mu.Lock()
	fontPath := strings.TrimSpace(a.Settings.SoundFontPath)
	a.mu.Unlock()
	if fontPath != "" {
		add(filepath.Dir(fontPath))
	}

	result := make([]string, 0, len(seen))
	for dir := range seen {
		result = append(result, dir)
	}
	return result
}

func markDownloadedSoundFonts(fonts []domain.SoundFontOption, dirs []string) {
	for i := range fonts {
		for _, dir := range dirs {
			candidate := filepath.Join(dir, fonts[i].FileName)
			info, err := os.Stat(candidate)
			if err != nil || info.IsDir() {
				continue
			}
			fonts[i].Downloaded = true
			fonts[i].LocalPath = candidate
			break
		}
	}
}
