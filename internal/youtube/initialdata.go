package youtube

import (
	"bytes"
	"errors"
)

var (
	initialDataMarker      = []byte("var ytInitialData = ")
	innertubeContextMarker = []byte(`"INNERTUBE_CONTEXT":`)
)

// ErrNoInitialData is returned when a page carries no ytInitialData blob.
var ErrNoInitialData = errors.New("youtube: ytInitialData not found")

// extractInitialData returns the ytInitialData JSON object embedded in a page.
func extractInitialData(page []byte) ([]byte, error) {
	data := extractObjectAfter(page, initialDataMarker)
	if data == nil {
		return nil, ErrNoInitialData
	}
	return data, nil
}

// extractObjectAfter returns the JSON object that starts right after marker,
// or nil when the marker is absent or the object is unterminated.
func extractObjectAfter(page, marker []byte) []byte {
	idx := bytes.Index(page, marker)
	if idx < 0 {
		return nil
	}
	rest := bytes.TrimLeft(page[idx+len(marker):], " \t\r\n")
	return extractJSON(rest)
}

// extractJSON extracts a complete JSON object starting at b[0] == '{' by
// tracking brace depth outside of string literals.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
