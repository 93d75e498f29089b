// Package chapters cleans chapter titles, enforces chapter ordering and
// persists chapters files between pipeline stages.
package chapters

import "github.com/aresapp/ares-server/internal/domain"

// Link is a timestamp annotation inside an annotated text. Offsets are in
// UTF-16 code units, the unit the page payload uses.
type Link struct {
	Start   int
	Length  int
	Seconds float64
}

// Annotated is a flat text with jump-to-time links, as found in video
// descriptions and comments.
type Annotated struct {
	Content string
	Links   []Link
}

// AnalysisResult contains chapter title statistics.
type AnalysisResult struct {
	Total          int     `json:"total"`
	GenericCount   int     `json:"genericCount"`
	GenericPercent float64 `json:"genericPercent"`
	MostlyGeneric  bool    `json:"mostlyGeneric"`
}

// Chapter is re-exported for callers that only deal with chapter lists.
type Chapter = domain.Chapter
