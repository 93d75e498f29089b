package chapters

import (
	"regexp"
	"strings"
)

// placeholderTitle matches titles uploaders use when a track has no real
// name: "Track 12", "BGM 3", "Untitled", "Deleted video", bare numbers.
var placeholderTitle = regexp.MustCompile(`(?i)^(?:` +
	`(?:chapter|track|part|song|bgm|music|untitled)\s*\d*` +
	`|(?:deleted|private) video` +
	`|\d+\s*[.\-]?` +
	`)$`)

// IsGenericName reports whether a chapter title is a placeholder.
func IsGenericName(title string) bool {
	title = strings.TrimSpace(title)
	return title == "" || placeholderTitle.MatchString(title)
}

// Analyze counts placeholder titles in a chapter list.
func Analyze(chs []Chapter) AnalysisResult {
	res := AnalysisResult{Total: len(chs)}
	if res.Total == 0 {
		return res
	}
	for _, ch := range chs {
		if IsGenericName(ch.Title) {
			res.GenericCount++
		}
	}
	res.GenericPercent = float64(res.GenericCount) / float64(res.Total)
	res.MostlyGeneric = res.GenericPercent > 0.5
	return res
}
