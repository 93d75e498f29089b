// Package search provides full-text search over the catalog using Bleve.
// Games and tracks share one index and are told apart by a type field.
package search

import (
	"strconv"
	"strings"

	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/util"
)

// DocType represents the type of document in the unified index.
type DocType string

// Document types for the search index.
const (
	DocTypeGame  DocType = "game"
	DocTypeTrack DocType = "track"
)

// SearchDocument is the unified document structure for the Bleve index.
// Track documents carry the game name so a single query matches both.
type SearchDocument struct {
	ID   string  `json:"id"`
	Type DocType `json:"type"`

	// Game: name, Track: title.
	Name string `json:"name"`

	GameID   int64  `json:"game_id"`
	GameName string `json:"game_name,omitempty"`
	AlbumID  int64  `json:"album_id,omitempty"`
	Position int    `json:"position,omitempty"`

	Summary   string   `json:"summary,omitempty"`
	Companies string   `json:"companies,omitempty"`
	Genres    []string `json:"genres,omitempty"`

	Duration    float64 `json:"duration,omitempty"` // seconds, tracks only
	ReleaseYear int     `json:"release_year,omitempty"`
	Rating      float64 `json:"rating,omitempty"`

	CreatedAt int64 `json:"created_at"` // Unix millis
}

// GameDocID is the index id of a game document.
func GameDocID(gameID int64) string {
	return "game:" + strconv.FormatInt(gameID, 10)
}

// TrackDocID is the index id of a track document.
func TrackDocID(albumID int64, position int) string {
	return "track:" + strconv.FormatInt(albumID, 10) + ":" + strconv.Itoa(position)
}

// ToMap converts the document to a map with lowercase field names
// matching the index mapping.
func (d *SearchDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"type":       string(d.Type),
		"name":       d.Name,
		"game_id":    float64(d.GameID),
		"created_at": d.CreatedAt,
	}

	if d.GameName != "" {
		m["game_name"] = d.GameName
	}
	if d.AlbumID > 0 {
		m["album_id"] = float64(d.AlbumID)
	}
	if d.Type == DocTypeTrack {
		m["position"] = float64(d.Position)
	}
	if d.Summary != "" {
		m["summary"] = d.Summary
	}
	if d.Companies != "" {
		m["companies"] = d.Companies
	}
	if len(d.Genres) > 0 {
		m["genres"] = d.Genres
	}
	if d.Duration > 0 {
		m["duration"] = d.Duration
	}
	if d.ReleaseYear > 0 {
		m["release_year"] = d.ReleaseYear
	}
	if d.Rating > 0 {
		m["rating"] = d.Rating
	}
	return m
}

// GameToSearchDocument converts a catalog game to a SearchDocument.
func GameToSearchDocument(g *domain.Game) *SearchDocument {
	doc := &SearchDocument{
		ID:        GameDocID(g.ID),
		Type:      DocTypeGame,
		Name:      g.Name,
		GameID:    g.ID,
		Summary:   g.Summary,
		Rating:    g.Rating,
		CreatedAt: g.CreatedAt.UnixMilli(),
	}
	if g.ReleaseDate != nil {
		doc.ReleaseYear = g.ReleaseDate.Year()
	}

	names := make([]string, 0, len(g.Companies))
	for _, c := range g.Companies {
		names = append(names, c.Name)
	}
	doc.Companies = strings.Join(names, ", ")

	for _, genre := range g.Genres {
		doc.Genres = append(doc.Genres, util.Slugify(genre))
	}
	return doc
}

// TrackToSearchDocument converts a stored track to a SearchDocument.
func TrackToSearchDocument(gameID int64, gameName string, albumID int64, t domain.Track) *SearchDocument {
	return &SearchDocument{
		ID:       TrackDocID(albumID, t.ID),
		Type:     DocTypeTrack,
		Name:     t.Title,
		GameID:   gameID,
		GameName: gameName,
		AlbumID:  albumID,
		Position: t.ID,
		Duration: t.Duration,
	}
}
