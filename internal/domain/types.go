package domain

// Settings contains user-selectable runtime configuration.
type Settings struct {
	MusicDir             string `json:"musicDir"`
	MovieDir             string `json:"movieDir"`
	SoundFontPath        string `json:"soundFontPath"`
	ScratchDir           string `json:"scratchDir"`
	MaxConcurrentExports int    `json:"maxConcurrentExports"`
}

// Track is one audio source inside a project folder.
type Track struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	IsMIDI   bool   `json:"isMidi"`
	HasVideo bool   `json:"hasVideo"`
}

// Project groups the tracks of one music library folder.
type Project struct {
	Name   string  `json:"name"`
	Tracks []Track `json:"tracks"`
}
