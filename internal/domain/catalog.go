package domain

import "time"

// Existence is the catalog state of a game.
type Existence int

const (
	ExistenceAbsent Existence = iota
	ExistencePartial
	ExistenceComplete
)

func (e Existence) String() string {
	switch e {
	case ExistencePartial:
		return "partial"
	case ExistenceComplete:
		return "complete"
	default:
		return "absent"
	}
}

// Game is a catalog game record built from IGDB data.
type Game struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Slug          string     `json:"slug"`
	Summary       string     `json:"summary,omitempty"`
	ReleaseDate   *time.Time `json:"releaseDate,omitempty"`
	Rating        float64    `json:"rating,omitempty"`
	CoverImageID  string     `json:"coverImageId,omitempty"`
	CoverBlurhash string     `json:"coverBlurhash,omitempty"`
	Genres        []string   `json:"genres,omitempty"`
	Companies     []Company  `json:"companies,omitempty"`
	Complete      bool       `json:"complete"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Company is a developer or publisher credited on a game.
type Company struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug,omitempty"`
	Developer bool   `json:"developer,omitempty"`
	Publisher bool   `json:"publisher,omitempty"`
}

// Album groups the tracks built from one media source.
type Album struct {
	ID        int64     `json:"id"`
	GameID    int64     `json:"gameId"`
	Name      string    `json:"name"`
	MediaID   string    `json:"mediaId"`
	MediaType MediaType `json:"mediaType"`
	CreatedAt time.Time `json:"createdAt"`
}

// Track is one chapter after segmentation. ID is the position in the album.
type Track struct {
	ID        int     `json:"id"`
	Title     string  `json:"title"`
	Slug      string  `json:"slug"`
	Duration  float64 `json:"duration"`
	SourceRef string  `json:"sourceRef,omitempty"`
}

// SegmentManifest describes the fixed-length segmentation of one track.
type SegmentManifest struct {
	TrackIndex   int     `json:"trackIndex"`
	SegmentCount int     `json:"segmentCount"`
	Duration     float64 `json:"duration"`
	SampleRate   int     `json:"sampleRate"`
	Bitrate      int     `json:"bitrate"`
	Codec        string  `json:"codec"`
	Path         string  `json:"path"`
}
