package domain

import "math"

// Chapter marks where one soundtrack track begins inside a longer audio source.
type Chapter struct {
	// ID is the source video ID for playlist-derived chapters.
	ID        string  `json:"id,omitempty"`
	Title     string  `json:"title"`
	Timestamp float64 `json:"timestamp"`
	// CorrectedTimestamp is set by alignment.
	CorrectedTimestamp *float64 `json:"corrected_timestamp,omitempty"`
	// Duration is only known for playlist entries and is dropped on the last one.
	Duration *float64 `json:"duration,omitempty"`
}

// Start returns the corrected timestamp when alignment ran, else the nominal one.
func (c Chapter) Start() float64 {
	if c.CorrectedTimestamp != nil {
		return *c.CorrectedTimestamp
	}
	return c.Timestamp
}

// ChaptersFile is the on-disk form of an extraction result, keyed by media ID.
type ChaptersFile struct {
	GameID   int64     `json:"gameID"`
	Chapters []Chapter `json:"chapters"`
}

// MinAcceptedChapters is the smallest chapter count accepted from description
// or comment parsing; shorter lists are treated as noise.
const MinAcceptedChapters = 4

// SameTimestamp compares two timestamps at millisecond precision.
func SameTimestamp(a, b float64) bool {
	return math.Abs(a-b) < 0.0005
}
