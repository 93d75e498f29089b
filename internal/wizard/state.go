package wizard

// State is a step of a wizard run.
type State int

const (
	NotStarted State = iota
	MatchingGame
	AddingGameData
	MatchingMedia
	ExtractingChapters
	DownloadingMedia
	AligningChapters
	SegmentingAudio
	PersistingTracks
	Success
	Failed
)

var stateNames = [...]string{
	NotStarted:         "Not started",
	MatchingGame:       "Matching game",
	AddingGameData:     "Adding game data",
	MatchingMedia:      "Matching media",
	ExtractingChapters: "Extracting chapters",
	DownloadingMedia:   "Downloading media",
	AligningChapters:   "Aligning chapters",
	SegmentingAudio:    "Segmenting audio",
	PersistingTracks:   "Persisting tracks",
	Success:            "Success",
	Failed:             "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Success || s == Failed
}

// Floor bounds how far the chapter extraction may fall back through the
// ranked candidates.
type Floor struct {
	StartScore int
}

// Accepts reports whether a candidate scoring score may still be tried.
// A candidate is rejected only once it is both more than 10% and more than
// one point below the starting candidate.
func (f Floor) Accepts(score int) bool {
	start := float64(f.StartScore)
	s := float64(score)
	return !(start*0.9 > s && start-1 > s)
}
