package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchResultReferences(t *testing.T) {
	m := MatchResult{
		Videos:    []VideoCandidate{{ID: "v1", Score: 30}, {ID: "v2", Score: 12}},
		Playlists: []PlaylistCandidate{{ID: "p1", Score: 41}},
	}

	refs := m.References()
	assert.Equal(t, []MediaReference{
		{MediaID: "p1", MediaType: MediaPlaylist, Score: 41},
		{MediaID: "v1", MediaType: MediaVideo, Score: 30},
		{MediaID: "v2", MediaType: MediaVideo, Score: 12},
	}, refs)
}

func TestMatchResultReferences_TieFavorsPlaylist(t *testing.T) {
	m := MatchResult{
		Videos:    []VideoCandidate{{ID: "v1", Score: 20}},
		Playlists: []PlaylistCandidate{{ID: "p1", Score: 20}},
	}
	refs := m.References()
	assert.Equal(t, "p1", refs[0].MediaID)
	assert.Equal(t, "v1", refs[1].MediaID)

	m.Videos[0].Score = 21
	assert.Equal(t, "v1", m.References()[0].MediaID)

	assert.Equal(t, "v1", MatchResult{Videos: m.Videos}.References()[0].MediaID)
	assert.Empty(t, MatchResult{}.References())
	assert.True(t, MatchResult{}.Empty())
}

func TestChapterStart(t *testing.T) {
	c := Chapter{Timestamp: 10}
	assert.Equal(t, 10.0, c.Start())

	corrected := 9.5
	c.CorrectedTimestamp = &corrected
	assert.Equal(t, 9.5, c.Start())
}

func TestReportAdd(t *testing.T) {
	var r Report
	r.Add(ReportGame{GameName: "Halo", Status: ReportSuccess})
	r.Add(ReportGame{GameName: "Nope", Status: ReportError, Error: "no match"})

	assert.Equal(t, 1, r.NSuccess)
	assert.Equal(t, 1, r.NError)
	assert.Len(t, r.Games, 2)
}
