// Package util provides common utility functions.
package util

import (
	"regexp"
	"strings"

	"github.com/aresapp/ares-server/internal/normalize"
)

var (
	wordSeparatorRe   = regexp.MustCompile(`[\s_/]+`)
	nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9-]`)
	multipleDashRe    = regexp.MustCompile(`-+`)
)

// Slugify converts a game or track title to a URL slug.
//
// Rules:
//  1. Fold accents and lowercase ("Pokémon" → "pokemon")
//  2. Replace spaces, underscores and slashes with dashes
//  3. Remove non-alphanumeric characters (except dashes)
//  4. Collapse multiple dashes and trim them at both ends
//
// Examples:
//
//	"Gerudo Valley"          → "gerudo-valley"
//	"Pokémon Red/Blue"       → "pokemon-red-blue"
//	"01 - Main Theme (Remix)" → "01-main-theme-remix"
func Slugify(input string) string {
	s := normalize.Fold(strings.TrimSpace(input))
	s = wordSeparatorRe.ReplaceAllString(s, "-")
	s = nonAlphanumericRe.ReplaceAllString(s, "")
	s = multipleDashRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SlugifyOr returns Slugify(input), or fallback when the title slugs to nothing
// (chapter titles made only of symbols do occur).
func SlugifyOr(input, fallback string) string {
	if s := Slugify(input); s != "" {
		return s
	}
	return fallback
}
