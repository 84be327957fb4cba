package exports

import (
	"path/filepath"
	"strings"
)

// sourceExtensions is the fixed probe order used when inverting an output
// path back to a task key. MIDI wins over compressed audio on ties.
var sourceExtensions = []string{".mid", ".mp3", ".wav"}

// Layout maps between the music library tree and the movie output tree.
// Sources live at <MusicRoot>/<project>/<base>.{mid,mp3,wav}; the produced
// video mirrors them at <MovieRoot>/<project>/<base>.mp4.
type Layout struct {
	MusicRoot string
	MovieRoot string
}

// OutputPath derives the video path for a task key. The mapping is lossy:
// the source extension is discarded.
func (l Layout) OutputPath(key string) string {
	base := strings.TrimSuffix(filepath.Base(key), filepath.Ext(key))
	project := filepath.Base(filepath.Dir(key))
	return filepath.Join(l.MovieRoot, project, base+".mp4")
}

// CandidateKeys enumerates every source path that could have produced
// outputPath, in probe priority order. The caller tests each candidate
// against the registry to recover the original key.
func (l Layout) CandidateKeys(outputPath string) []string {
	base := strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath))
	project := filepath.Base(filepath.Dir(outputPath))

	candidates := make([]string, 0, len(sourceExtensions))
	for _, ext := range sourceExtensions {
		candidates = append(candidates, filepath.Join(l.MusicRoot, project, base+ext))
	}
	return candidates
}

// IsMIDISource reports whether the path names a MIDI-family file that
// needs synthesis before muxing.
func IsMIDISource(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mid", ".midi":
		return true
	default:
		return false
	}
}
