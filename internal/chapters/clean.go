package chapters

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf16"
)

var (
	parentheticalRe = regexp.MustCompile(`\([^)]*\)`)
	timecodeRe      = regexp.MustCompile(`\b(?:\d{1,2}:)?\d{1,2}:\d{1,2}\b`)
)

// CleanLine turns a raw description or comment row into a chapter title:
// parenthetical asides are removed, only the first non-empty line is kept,
// embedded timecodes are dropped, and the result is trimmed to run from the
// first letter to the last letter or digit. A row without letters yields "".
// CleanLine(CleanLine(s)) == CleanLine(s).
func CleanLine(raw string) string {
	s := parentheticalRe.ReplaceAllString(raw, "")

	line := ""
	for l := range strings.SplitSeq(s, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			line = t
			break
		}
	}

	// Trimming can expose a timecode the previous pass could not match, so
	// repeat until nothing changes. Every pass only removes text.
	for {
		next := trimTitle(timecodeRe.ReplaceAllString(line, ""))
		if next == line {
			return line
		}
		line = next
	}
}

func trimTitle(line string) string {
	line = strings.Join(strings.Fields(line), " ")

	first := strings.IndexFunc(line, unicode.IsLetter)
	if first < 0 {
		return ""
	}
	last := strings.LastIndexFunc(line, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	})
	_, size := lastRune(line[last:])
	return strings.TrimSpace(line[first : last+size])
}

func lastRune(s string) (rune, int) {
	for _, r := range s {
		return r, len(string(r))
	}
	return 0, 0
}

// titleBounds expands [start, end) outwards to the enclosing newlines.
func titleBounds(text []uint16, start, end int) (int, int) {
	start = max(0, min(start, len(text)))
	end = max(start, min(end, len(text)))
	for start > 0 && text[start-1] != '\n' {
		start--
	}
	for end < len(text) && text[end] != '\n' {
		end++
	}
	return start, end
}

// Collect converts annotated text into chapters. Each link's row (the text
// between the surrounding newlines) is cleaned into a title; a row is kept
// only if its timestamp is greater than the last kept one and its title
// differs from the last kept title.
func Collect(a Annotated) []Chapter {
	text := utf16.Encode([]rune(a.Content))

	var out []Chapter
	lastTS := -1.0
	lastTitle := ""
	for _, link := range a.Links {
		start, end := titleBounds(text, link.Start, link.Start+link.Length)
		title := CleanLine(string(utf16.Decode(text[start:end])))

		if link.Seconds > lastTS && title != lastTitle {
			out = append(out, Chapter{Title: title, Timestamp: link.Seconds})
			lastTS = link.Seconds
			lastTitle = title
		}
	}
	return out
}

// Run is one text run of a comment, with an optional jump-to-time target.
type Run struct {
	Text    string
	Seconds *float64
}

// FromRuns flattens comment runs into annotated text, turning every
// timestamped run into a link over its own span.
func FromRuns(runs []Run) Annotated {
	var b strings.Builder
	var links []Link
	offset := 0
	for _, r := range runs {
		n := len(utf16.Encode([]rune(r.Text)))
		if r.Seconds != nil {
			links = append(links, Link{Start: offset, Length: n, Seconds: *r.Seconds})
		}
		b.WriteString(r.Text)
		offset += n
	}
	return Annotated{Content: b.String(), Links: links}
}
