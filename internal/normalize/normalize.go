// Package normalize cleans game names and scores fuzzy matches between them.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var yearRe = regexp.MustCompile(`\((\d{4})\)`)

// Fold lowercases s, strips diacritics and removes null bytes.
// "Pokémon" -> "pokemon".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, sanitizeString(s))
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// DetectYear extracts a "(YYYY)" release year from a game name.
// Returns 0 and the unchanged (trimmed) name when none is present.
//
//	"Halo (2001)" -> 2001, "Halo"
func DetectYear(name string) (int, string) {
	m := yearRe.FindStringSubmatch(name)
	if m == nil {
		return 0, strings.TrimSpace(name)
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, strings.TrimSpace(name)
	}
	cleaned := strings.TrimSpace(yearRe.ReplaceAllString(name, ""))
	return year, strings.Join(strings.Fields(cleaned), " ")
}

// Ratio returns a 0..100 similarity score between a and b, computed as
// 100 * (len(a)+len(b) - indelDistance) / (len(a)+len(b)) over runes.
// Two empty strings score 100.
func Ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	dist := indelDistance(ra, rb)
	ratio := float64(total-dist) / float64(total)
	return int(ratio*100 + 0.5)
}

// indelDistance is the Levenshtein distance with substitutions costing 2
// (insert + delete), which equals total length minus twice the LCS.
func indelDistance(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			sub := prev[j-1]
			if a[i-1] != b[j-1] {
				sub += 2
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, sub)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// sanitizeString removes null bytes, which show up in scraped titles and
// break JSON and SQLite text handling downstream.
func sanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, s)
}
