package chapters

import (
	"fmt"

	"github.com/aresapp/ares-server/internal/domain"
)

// Validate checks that timestamps are non-negative and strictly increasing
// and that no two chapters repeat the same (timestamp, title) pair.
func Validate(chs []Chapter) error {
	seen := make(map[string]struct{}, len(chs))
	for i, ch := range chs {
		if ch.Timestamp < 0 {
			return fmt.Errorf("chapter %d: negative timestamp %v", i, ch.Timestamp)
		}
		if i > 0 && ch.Timestamp <= chs[i-1].Timestamp {
			return fmt.Errorf("chapter %d: timestamp %v not after %v", i, ch.Timestamp, chs[i-1].Timestamp)
		}
		key := fmt.Sprintf("%.3f|%s", ch.Timestamp, ch.Title)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("chapter %d: duplicate %q at %v", i, ch.Title, ch.Timestamp)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Accepted reports whether a parsed chapter list is long enough to trust.
func Accepted(chs []Chapter) bool {
	return len(chs) >= domain.MinAcceptedChapters
}

// FromDurations turns playlist entries carrying durations into chapters with
// cumulative start times. Entries repeating an earlier video ID are dropped,
// durations are cleared on every output chapter.
func FromDurations(entries []Chapter) []Chapter {
	seen := make(map[string]struct{}, len(entries))
	out := make([]Chapter, 0, len(entries))
	var offset float64
	for _, e := range entries {
		if e.ID != "" {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
		}
		ch := Chapter{ID: e.ID, Title: e.Title, Timestamp: offset}
		if e.Duration != nil {
			offset += *e.Duration
		}
		out = append(out, ch)
	}
	return out
}

// Durations returns each chapter's length given the total source length.
// The last chapter runs to the end of the source.
func Durations(chs []Chapter, total float64) []float64 {
	out := make([]float64, len(chs))
	for i, ch := range chs {
		end := total
		if i+1 < len(chs) {
			end = chs[i+1].Start()
		}
		out[i] = max(0, end-ch.Start())
	}
	return out
}
