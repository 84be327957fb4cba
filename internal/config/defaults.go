package config

import (
	"os"
	"path/filepath"

	"music-video-maker/internal/domain"
)

// DefaultMaxConcurrentExports caps parallel export workers out of the box.
const DefaultMaxConcurrentExports = 8

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		MusicDir:             filepath.Join(homeDir, "MusicVideoMaker", "Music"),
		MovieDir:             filepath.Join(homeDir, "MusicVideoMaker", "Movie"),
		SoundFontPath:        filepath.Join(homeDir, ".music-video-maker", "soundfonts", "default.sf2"),
		ScratchDir:           filepath.Join(os.TempDir(), "music-video-maker"),
		MaxConcurrentExports: DefaultMaxConcurrentExports,
	}
}
