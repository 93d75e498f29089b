package domain

// MediaType distinguishes single videos from playlists.
type MediaType string

const (
	MediaVideo    MediaType = "video"
	MediaPlaylist MediaType = "playlist"
)

// VideoCandidate is a scored search result pointing at one video.
type VideoCandidate struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Duration string `json:"duration,omitempty"`
	Score    int    `json:"score"`
}

// PlaylistCandidate is a scored search result aggregating its member videos.
type PlaylistCandidate struct {
	ID     string           `json:"id"`
	Title  string           `json:"title"`
	Score  int              `json:"score"`
	Videos []VideoCandidate `json:"videos"`
}

// MatchResult holds the ranked candidates of one match run, best first.
type MatchResult struct {
	Videos    []VideoCandidate    `json:"videos"`
	Playlists []PlaylistCandidate `json:"playlists"`
}

// Empty reports whether no candidate of either kind was found.
func (m MatchResult) Empty() bool {
	return len(m.Videos) == 0 && len(m.Playlists) == 0
}

// References flattens the result into media references. Videos come first
// only when their top score is strictly higher; ties favor playlists.
func (m MatchResult) References() []MediaReference {
	videos := make([]MediaReference, 0, len(m.Videos))
	for _, v := range m.Videos {
		videos = append(videos, MediaReference{MediaID: v.ID, MediaType: MediaVideo, Score: v.Score})
	}
	playlists := make([]MediaReference, 0, len(m.Playlists))
	for _, p := range m.Playlists {
		playlists = append(playlists, MediaReference{MediaID: p.ID, MediaType: MediaPlaylist, Score: p.Score})
	}

	if len(videos) > 0 && (len(playlists) == 0 || videos[0].Score > playlists[0].Score) {
		return append(videos, playlists...)
	}
	return append(playlists, videos...)
}

// MediaReference is the candidate driving the rest of the pipeline.
type MediaReference struct {
	MediaID   string    `json:"mediaId"`
	MediaType MediaType `json:"mediaType"`
	Score     int       `json:"score,omitempty"`
}
